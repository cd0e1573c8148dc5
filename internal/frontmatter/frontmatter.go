// Package frontmatter splits and decodes the YAML frontmatter of a
// SKILL.md file, and normalizes its declared dependencies.
package frontmatter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// MaxNameLen and MaxDescriptionLen are the strict-client size limits
// from spec §4.1. They are advisory: Parse does not enforce them, since
// not every client requires strictness, but callers that need it can
// check len(Frontmatter.Name) / len(Frontmatter.Description) themselves.
const (
	MaxNameLen        = 100
	MaxDescriptionLen = 500
)

// Frontmatter is the decoded YAML head of a SKILL.md file.
type Frontmatter struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Version     string       `yaml:"version"`
	Depends     []RawDepend  `yaml:"depends"`
}

// RawDepend is one entry of the frontmatter's depends[] list, still in
// whichever of the three wire shapes it was written as. yaml.v3 decodes
// scalars and mappings into the same node, so RawDepend captures the raw
// node and defers shape detection to Normalize.
type RawDepend struct {
	node yaml.Node
}

// UnmarshalYAML stores the raw node so Normalize can detect its shape.
func (d *RawDepend) UnmarshalYAML(value *yaml.Node) error {
	d.node = *value
	return nil
}

// NormalizedDependency is the single, shape-independent representation
// of a declared dependency.
type NormalizedDependency struct {
	Name       string
	VersionReq *semver.Constraints
	Source     string
	Optional   bool
}

// structuredDepend is the decode target for shape (c): an object.
type structuredDepend struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Source   string `yaml:"source"`
	Optional bool   `yaml:"optional"`
}

// compactRe parses shape (b): "[source:]name[@version]".
var compactRe = regexp.MustCompile(`^(?:([a-z]+):)?([^@:\s]+)(?:@(.+))?$`)

// Normalize converts every declared dependency to its NormalizedDependency
// form, or returns the first failure message. Invalid version syntax (in
// any of the three shapes) fails the whole call, matching spec §4.1.
func Normalize(deps []RawDepend) ([]NormalizedDependency, error) {
	out := make([]NormalizedDependency, 0, len(deps))
	for i, d := range deps {
		nd, err := normalizeOne(d.node)
		if err != nil {
			return nil, fmt.Errorf("frontmatter: depends[%d]: %w", i, err)
		}
		out = append(out, nd)
	}
	return out, nil
}

func normalizeOne(node yaml.Node) (NormalizedDependency, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return normalizeCompact(node.Value)
	case yaml.MappingNode:
		var sd structuredDepend
		if err := node.Decode(&sd); err != nil {
			return NormalizedDependency{}, fmt.Errorf("decode structured dependency: %w", err)
		}
		if sd.Name == "" {
			return NormalizedDependency{}, fmt.Errorf("structured dependency missing name")
		}
		nd := NormalizedDependency{Name: sd.Name, Source: sd.Source, Optional: sd.Optional}
		if sd.Version != "" {
			c, err := semver.NewConstraint(sd.Version)
			if err != nil {
				return NormalizedDependency{}, fmt.Errorf("invalid version %q for %q: %w", sd.Version, sd.Name, err)
			}
			nd.VersionReq = c
		}
		return nd, nil
	default:
		return NormalizedDependency{}, fmt.Errorf("unsupported dependency shape: %v", node.Kind)
	}
}

// normalizeCompact parses shapes (a) bare string and (b) "[source:]name[@version]".
// Shape (a) is the degenerate case of (b) with no source or version.
func normalizeCompact(raw string) (NormalizedDependency, error) {
	m := compactRe.FindStringSubmatch(raw)
	if m == nil {
		return NormalizedDependency{}, fmt.Errorf("invalid dependency syntax: %q", raw)
	}
	nd := NormalizedDependency{Source: m[1], Name: m[2]}
	if m[3] != "" {
		c, err := semver.NewConstraint(m[3])
		if err != nil {
			return NormalizedDependency{}, fmt.Errorf("invalid version %q for %q: %w", m[3], nd.Name, err)
		}
		nd.VersionReq = c
	}
	return nd, nil
}

// Split separates the "---"-delimited YAML head from the markdown body.
// It recognizes both "\n---" and "\r\n---" line endings. The absence of
// a closing fence means "no frontmatter": yamlHead is "", body is the
// full content, and bodyStart is 0.
func Split(content string) (yamlHead string, body string, bodyStart int) {
	norm := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(norm, "---\n") && norm != "---" {
		return "", content, 0
	}
	rest := strings.TrimPrefix(norm, "---\n")
	closeIdx := findClosingFence(rest)
	if closeIdx < 0 {
		return "", content, 0
	}
	head := rest[:closeIdx]
	afterFence := rest[closeIdx:]
	// afterFence starts at the "---" closing line; strip it and one
	// following newline if present.
	afterFence = strings.TrimPrefix(afterFence, "---")
	afterFence = strings.TrimPrefix(afterFence, "\n")

	// Body start line = opening fence (1) + yaml lines + closing fence (1).
	yamlLines := 0
	if head != "" {
		yamlLines = strings.Count(head, "\n")
		if !strings.HasSuffix(head, "\n") {
			yamlLines++
		}
	}
	bodyStart = 1 + yamlLines + 1
	return head, afterFence, bodyStart
}

// findClosingFence returns the index within s where a line consisting
// of exactly "---" begins, or -1 if none is found.
func findClosingFence(s string) int {
	pos := 0
	for {
		lineEnd := strings.IndexByte(s[pos:], '\n')
		var line string
		if lineEnd < 0 {
			line = s[pos:]
		} else {
			line = s[pos : pos+lineEnd]
		}
		if line == "---" {
			return pos
		}
		if lineEnd < 0 {
			return -1
		}
		pos += lineEnd + 1
	}
}

// ParsedSkill is the result of a successful Parse.
type ParsedSkill struct {
	Frontmatter Frontmatter
	Dependencies []NormalizedDependency
	Body        string
	BodyStart   int
}

// Parse splits content and decodes its frontmatter, normalizing
// dependencies. A SKILL.md with no frontmatter yields a zero-value
// Frontmatter and no error.
func Parse(content string) (ParsedSkill, error) {
	head, body, bodyStart := Split(content)
	ps := ParsedSkill{Body: body, BodyStart: bodyStart}
	if head == "" {
		return ps, nil
	}
	if err := yaml.Unmarshal([]byte(head), &ps.Frontmatter); err != nil {
		return ParsedSkill{}, fmt.Errorf("frontmatter: decode yaml: %w", err)
	}
	deps, err := Normalize(ps.Frontmatter.Depends)
	if err != nil {
		return ParsedSkill{}, err
	}
	ps.Dependencies = deps
	return ps, nil
}

// needsQuoting reports whether a YAML scalar value must be quoted
// because it contains characters that would otherwise be parsed as
// YAML syntax (":" or "#").
func needsQuoting(v string) bool {
	return strings.ContainsAny(v, ":#")
}

// Generate emits a minimal YAML frontmatter block for name and
// description. Values containing ":" or "#" are quoted; values with
// newlines or longer than 80 characters switch to a literal block
// scalar.
func Generate(name, description string) string {
	var b strings.Builder
	b.WriteString("---\n")
	writeScalarField(&b, "name", name)
	writeScalarField(&b, "description", description)
	b.WriteString("---\n")
	return b.String()
}

func writeScalarField(b *strings.Builder, key, value string) {
	switch {
	case strings.Contains(value, "\n") || len(value) > 80:
		fmt.Fprintf(b, "%s: |\n", key)
		for _, line := range strings.Split(value, "\n") {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	case needsQuoting(value):
		fmt.Fprintf(b, "%s: %q\n", key, value)
	default:
		fmt.Fprintf(b, "%s: %s\n", key, value)
	}
}
