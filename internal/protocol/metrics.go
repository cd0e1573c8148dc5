package protocol

import (
	"context"
	"os"

	"github.com/clawinfra/skrills/internal/frontmatter"
	"github.com/clawinfra/skrills/internal/skillsrc"
)

// Metrics is the structured_content of a skill-metrics call.
type Metrics struct {
	TotalSkills   int            `json:"total_skills"`
	BySource      map[string]int `json:"by_source"`
	Duplicates    int            `json:"duplicates"`
	WithVersion   int            `json:"with_version"`
	WithDeps      int            `json:"with_dependencies"`
	ValidationOK  int            `json:"validation_ok,omitempty"`
	ValidationBad int            `json:"validation_bad,omitempty"`
}

func toolSkillMetrics(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	includeValidation := argBool(args, "include_validation", false)

	skills, dups, err := h.Cache.CurrentSkills(ctx)
	if err != nil {
		return errorResult(err.Error())
	}

	m := Metrics{TotalSkills: len(skills), BySource: map[string]int{}, Duplicates: len(dups)}
	for _, s := range skills {
		m.BySource[s.Source.Label()]++
		if includeValidation {
			accountValidation(&m, s)
		} else {
			accountDeps(&m, s)
		}
	}
	return textResult(m)
}

func accountDeps(m *Metrics, s skillsrc.Meta) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return
	}
	parsed, err := frontmatter.Parse(string(data))
	if err != nil {
		return
	}
	if parsed.Frontmatter.Version != "" {
		m.WithVersion++
	}
	if len(parsed.Dependencies) > 0 {
		m.WithDeps++
	}
}

func accountValidation(m *Metrics, s skillsrc.Meta) {
	accountDeps(m, s)
	if len(validateOne(s)) == 0 {
		m.ValidationOK++
	} else {
		m.ValidationBad++
	}
}
