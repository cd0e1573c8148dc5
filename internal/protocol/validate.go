package protocol

import (
	"context"
	"fmt"
	"os"

	"github.com/clawinfra/skrills/internal/frontmatter"
	"github.com/clawinfra/skrills/internal/skillsrc"
)

// ValidationIssue is one problem found with a single skill.
type ValidationIssue struct {
	URI     string `json:"uri"`
	Message string `json:"message"`
	Fixable bool   `json:"fixable"`
}

// ValidationResult is the structured_content of a validate-skills call.
type ValidationResult struct {
	Target string             `json:"target"`
	Issues []ValidationIssue  `json:"issues"`
	Valid  int                `json:"valid"`
	Total  int                `json:"total"`
}

func toolValidateSkills(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	target := argString(args, "target", "both")
	errorsOnly := argBool(args, "errors_only", false)
	checkDeps := argBool(args, "check_dependencies", true)

	skills, _, err := h.Cache.CurrentSkills(ctx)
	if err != nil {
		return errorResult(err.Error())
	}

	var g = h.Cache.Graph()

	result := ValidationResult{Target: target, Total: len(skills)}
	for _, m := range skills {
		if target != "both" && m.Source.Label() != target {
			continue
		}
		issues := validateOne(m)
		if checkDeps && g != nil {
			for _, d := range g.Diagnostics {
				if d.URI == m.URI() {
					issues = append(issues, ValidationIssue{URI: m.URI(), Message: d.Message})
				}
			}
		}
		if len(issues) == 0 {
			result.Valid++
			if errorsOnly {
				continue
			}
		}
		result.Issues = append(result.Issues, issues...)
	}

	return textResult(result)
}

func validateOne(m skillsrc.Meta) []ValidationIssue {
	var issues []ValidationIssue
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return []ValidationIssue{{URI: m.URI(), Message: fmt.Sprintf("unreadable: %v", err)}}
	}
	parsed, err := frontmatter.Parse(string(data))
	if err != nil {
		return []ValidationIssue{{URI: m.URI(), Message: fmt.Sprintf("invalid frontmatter: %v", err)}}
	}
	if parsed.Frontmatter.Name == "" {
		issues = append(issues, ValidationIssue{URI: m.URI(), Message: "missing name", Fixable: true})
	} else if len(parsed.Frontmatter.Name) > frontmatter.MaxNameLen {
		issues = append(issues, ValidationIssue{URI: m.URI(), Message: "name exceeds strict-client length limit"})
	}
	if parsed.Frontmatter.Description == "" {
		issues = append(issues, ValidationIssue{URI: m.URI(), Message: "missing description", Fixable: true})
	} else if len(parsed.Frontmatter.Description) > frontmatter.MaxDescriptionLen {
		issues = append(issues, ValidationIssue{URI: m.URI(), Message: "description exceeds strict-client length limit"})
	}
	return issues
}
