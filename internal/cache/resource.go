package cache

import (
	"context"
	"fmt"
	"os"

	"github.com/clawinfra/skrills/internal/skillsrc"
)

// ResourceContent is one element of a read_resource response: a skill's
// text plus the role it plays in the response (requested or dependency).
type ResourceContent struct {
	URI  string
	Text string
	Role string // "requested" or "dependency"
}

const (
	RoleRequested  = "requested"
	RoleDependency = "dependency"
)

// ReadResource resolves uri (parsing its optional ?resolve= query) to
// the requested skill's content plus, if resolve=true, every transitive
// dependency's content in deterministic depth-first order.
func (c *Cache) ReadResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	parsed, err := skillsrc.ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	skills, _, err := c.CurrentSkills(ctx)
	if err != nil {
		return nil, err
	}

	byURI := make(map[string]skillsrc.Meta, len(skills))
	for _, m := range skills {
		byURI[m.URI()] = m
	}

	base := skillsrc.WithResolve(uri, false)
	target, ok := byURI[base]
	if !ok {
		return nil, fmt.Errorf("cache: skill not found for spec: %s%s", parsed.SourceLabel, "/"+parsed.Name)
	}

	text, err := os.ReadFile(target.Path)
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", target.Path, err)
	}
	out := []ResourceContent{{URI: base, Text: string(text), Role: RoleRequested}}

	if !parsed.Resolve {
		return out, nil
	}

	g := c.Graph()
	if g == nil {
		return out, nil
	}
	for _, depURI := range g.TransitiveDependencies(base) {
		dm, ok := byURI[depURI]
		if !ok {
			continue
		}
		depText, err := os.ReadFile(dm.Path)
		if err != nil {
			continue
		}
		out = append(out, ResourceContent{URI: depURI, Text: string(depText), Role: RoleDependency})
	}
	return out, nil
}
