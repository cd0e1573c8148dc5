// Package graph builds and queries the skill dependency graph: forward
// and reverse adjacency keyed by canonical URI, built from declared
// (frontmatter) and inferred (markdown link) edges.
package graph

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/clawinfra/skrills/internal/frontmatter"
	"github.com/clawinfra/skrills/internal/skillsrc"
)

// Diagnostic records a non-fatal problem encountered while building the
// graph: an unresolved declared dependency, or a parse failure for one
// skill's content. Diagnostics never abort the build.
type Diagnostic struct {
	URI     string
	Message string
}

// Graph is two independent URI -> []URI maps plus the diagnostics
// gathered while building them. It deliberately avoids node objects
// with pointers, so serialization and cycle tolerance are trivial.
type Graph struct {
	forward map[string][]string
	reverse map[string][]string

	Diagnostics []Diagnostic
}

// ReadFunc loads the raw content of a skill given its metadata. Build
// reads each skill's content exactly once.
type ReadFunc func(skillsrc.Meta) (string, error)

var inferredLinkRe = regexp.MustCompile(`\]\((\.{1,2}/[^)]+?SKILL\.md)\)`)

// loadedSkill caches the one-time read+parse of a skill's content so
// both the version index and the edge-building pass can use it without
// re-reading the file (spec §4.5: "read its content once").
type loadedSkill struct {
	parsed frontmatter.ParsedSkill
	err    error
}

// Build indexes skills by (source, name) and by bare name (ranked by
// priority), reads every skill's content exactly once to learn its own
// frontmatter version, then derives forward/reverse edges for every
// skill from its declared depends[] and inferred markdown links.
func Build(skills []skillsrc.Meta, priority []skillsrc.Source, read ReadFunc, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Graph{forward: make(map[string][]string), reverse: make(map[string][]string)}

	rank := make(map[string]int, len(priority))
	for i, s := range priority {
		rank[s.Label()] = i
	}

	loaded := make(map[string]loadedSkill, len(skills))
	for _, meta := range skills {
		uri := meta.URI()
		content, err := read(meta)
		if err != nil {
			loaded[uri] = loadedSkill{err: fmt.Errorf("read content: %w", err)}
			continue
		}
		parsed, err := frontmatter.Parse(content)
		if err != nil {
			loaded[uri] = loadedSkill{err: fmt.Errorf("parse frontmatter: %w", err)}
			continue
		}
		loaded[uri] = loadedSkill{parsed: parsed}
	}

	versions := make(map[string]string, len(skills))
	for i := range skills {
		if l := loaded[skills[i].URI()]; l.err == nil {
			versions[skills[i].URI()] = l.parsed.Frontmatter.Version
			// Populate the shared skillsrc.Meta's Version field too, so
			// callers that read the discovery snapshot directly (not
			// through the graph) can see it without re-parsing.
			skills[i].Version = l.parsed.Frontmatter.Version
		}
	}

	bySourceName := indexBySourceName(skills)
	byNameRanked := indexByNameRanked(skills, rank)

	for _, meta := range skills {
		uri := meta.URI()
		l := loaded[uri]
		if l.err != nil {
			g.Diagnostics = append(g.Diagnostics, Diagnostic{URI: uri, Message: l.err.Error()})
			continue
		}
		parsed := l.parsed

		edges := make(map[string]bool)
		for _, dep := range parsed.Dependencies {
			target, ok := resolveDeclared(dep, bySourceName, byNameRanked, versions)
			if !ok {
				if !dep.Optional {
					g.Diagnostics = append(g.Diagnostics, Diagnostic{
						URI:     uri,
						Message: fmt.Sprintf("unresolved dependency %q", dep.Name),
					})
				}
				continue
			}
			edges[target] = true
		}

		for _, target := range resolveInferred(meta, parsed.Body, skills) {
			edges[target] = true
		}

		if len(edges) == 0 {
			continue
		}
		list := make([]string, 0, len(edges))
		for e := range edges {
			list = append(list, e)
		}
		sort.Strings(list)
		g.forward[uri] = list
		for _, target := range list {
			g.reverse[target] = append(g.reverse[target], uri)
		}
	}

	for target := range g.reverse {
		sort.Strings(g.reverse[target])
	}

	return g
}

type sourceNameKey struct {
	source string
	name   string
}

func indexBySourceName(skills []skillsrc.Meta) map[sourceNameKey]skillsrc.Meta {
	idx := make(map[sourceNameKey]skillsrc.Meta, len(skills))
	for _, m := range skills {
		idx[sourceNameKey{source: m.Source.Label(), name: bareName(m.Name)}] = m
	}
	return idx
}

// indexByNameRanked maps a bare skill name to every skill defining it,
// sorted by source priority (highest-priority source first), so
// resolveDeclared can walk candidates in priority order when checking
// version constraints.
func indexByNameRanked(skills []skillsrc.Meta, rank map[string]int) map[string][]skillsrc.Meta {
	idx := make(map[string][]skillsrc.Meta)
	for _, m := range skills {
		name := bareName(m.Name)
		idx[name] = append(idx[name], m)
	}
	for name := range idx {
		candidates := idx[name]
		sort.SliceStable(candidates, func(i, j int) bool {
			return rank[candidates[i].Source.Label()] < rank[candidates[j].Source.Label()]
		})
		idx[name] = candidates
	}
	return idx
}

// bareName strips a trailing "/SKILL.md" (or returns the directory
// component) so frontmatter's short dependency names match discovery's
// path-relative names.
func bareName(name string) string {
	trimmed := strings.TrimSuffix(name, "/SKILL.md")
	if trimmed == name {
		return name
	}
	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// resolveDeclared implements the three-step resolution cascade from
// spec §4.5, trying each step in order and returning the first match:
//
//  1. explicit source + name (+ version match), if dep names a source;
//  2. name + version match in the highest-priority source that has it;
//  3. name-only in the highest-priority source, version ignored.
//
// A dep with no VersionReq trivially satisfies the version check at
// every step, so an unversioned dependency resolves at step 1 or 2
// exactly as it did before version-awareness was added.
func resolveDeclared(dep frontmatter.NormalizedDependency, bySourceName map[sourceNameKey]skillsrc.Meta, byNameRanked map[string][]skillsrc.Meta, versions map[string]string) (string, bool) {
	versionMatches := func(uri string) bool {
		if dep.VersionReq == nil {
			return true
		}
		v, ok := versions[uri]
		if !ok || v == "" {
			return false
		}
		sv, err := semver.NewVersion(v)
		if err != nil {
			return false
		}
		return dep.VersionReq.Check(sv)
	}

	if dep.Source != "" {
		if m, ok := bySourceName[sourceNameKey{source: dep.Source, name: dep.Name}]; ok && versionMatches(m.URI()) {
			return m.URI(), true
		}
	}

	candidates := byNameRanked[dep.Name]
	for _, m := range candidates {
		if versionMatches(m.URI()) {
			return m.URI(), true
		}
	}

	if len(candidates) > 0 {
		return candidates[0].URI(), true
	}
	return "", false
}

// resolveInferred extracts relative markdown links of the form
// (./...SKILL.md) or (../...SKILL.md) from body and canonicalizes each
// resolvable target against the current skill set.
func resolveInferred(meta skillsrc.Meta, body string, skills []skillsrc.Meta) []string {
	matches := inferredLinkRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	byPath := make(map[string]skillsrc.Meta, len(skills))
	for _, m := range skills {
		byPath[m.Path] = m
	}

	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		resolved := resolveRelativeLink(meta.Path, m[1])
		target, ok := byPath[resolved]
		if !ok {
			continue
		}
		if seen[target.URI()] {
			continue
		}
		seen[target.URI()] = true
		out = append(out, target.URI())
	}
	return out
}
