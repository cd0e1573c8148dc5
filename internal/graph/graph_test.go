package graph

import (
	"sort"
	"testing"

	"github.com/clawinfra/skrills/internal/skillsrc"
)

// buildFixture constructs the spec's "transitive resolution" scenario:
// A depends on B and C, B depends on D, C depends on D, D has no deps.
func buildFixture(t *testing.T) (*Graph, map[string]skillsrc.Meta) {
	t.Helper()
	metas := map[string]skillsrc.Meta{
		"a": {Name: "skill-a/SKILL.md", Path: "/root/skill-a/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
		"b": {Name: "skill-b/SKILL.md", Path: "/root/skill-b/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
		"c": {Name: "skill-c/SKILL.md", Path: "/root/skill-c/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
		"d": {Name: "skill-d/SKILL.md", Path: "/root/skill-d/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
	}
	content := map[string]string{
		"a": "---\nname: skill-a\ndepends:\n  - skill-b\n  - skill-c\n---\nbody",
		"b": "---\nname: skill-b\ndepends:\n  - skill-d\n---\nbody",
		"c": "---\nname: skill-c\ndepends:\n  - skill-d\n---\nbody",
		"d": "---\nname: skill-d\n---\nbody",
	}

	skills := []skillsrc.Meta{metas["a"], metas["b"], metas["c"], metas["d"]}
	read := func(m skillsrc.Meta) (string, error) {
		switch m.Name {
		case "skill-a/SKILL.md":
			return content["a"], nil
		case "skill-b/SKILL.md":
			return content["b"], nil
		case "skill-c/SKILL.md":
			return content["c"], nil
		case "skill-d/SKILL.md":
			return content["d"], nil
		}
		return "", nil
	}

	g := Build(skills, skillsrc.DefaultPriority(), read, nil)
	return g, metas
}

func sorted(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}

func TestTransitiveDependencies(t *testing.T) {
	g, metas := buildFixture(t)
	deps := sorted(g.TransitiveDependencies(metas["a"].URI()))
	want := sorted([]string{metas["b"].URI(), metas["c"].URI(), metas["d"].URI()})
	if len(deps) != len(want) {
		t.Fatalf("got %v want %v", deps, want)
	}
	for i := range deps {
		if deps[i] != want[i] {
			t.Fatalf("got %v want %v", deps, want)
		}
	}
}

func TestTransitiveDependents(t *testing.T) {
	g, metas := buildFixture(t)
	dependents := sorted(g.TransitiveDependents(metas["d"].URI()))
	want := sorted([]string{metas["a"].URI(), metas["b"].URI(), metas["c"].URI()})
	for i := range want {
		if dependents[i] != want[i] {
			t.Fatalf("got %v want %v", dependents, want)
		}
	}
}

func TestGraphTransposeInvariant(t *testing.T) {
	g, _ := buildFixture(t)
	if !g.Verify() {
		t.Fatalf("forward/reverse transpose invariant violated")
	}
}

func TestCycleToleranceTerminates(t *testing.T) {
	metas := []skillsrc.Meta{
		{Name: "x/SKILL.md", Path: "/root/x/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
		{Name: "y/SKILL.md", Path: "/root/y/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
	}
	read := func(m skillsrc.Meta) (string, error) {
		if m.Name == "x/SKILL.md" {
			return "---\nname: x\ndepends:\n  - y\n---\n", nil
		}
		return "---\nname: y\ndepends:\n  - x\n---\n", nil
	}
	g := Build(metas, skillsrc.DefaultPriority(), read, nil)
	deps := g.TransitiveDependencies(metas[0].URI())
	if len(deps) != 1 || deps[0] != metas[1].URI() {
		t.Fatalf("expected cycle-safe single result, got %v", deps)
	}
}

func TestUnresolvedDependencyIsDiagnosticNotError(t *testing.T) {
	metas := []skillsrc.Meta{
		{Name: "x/SKILL.md", Path: "/root/x/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
	}
	read := func(m skillsrc.Meta) (string, error) {
		return "---\nname: x\ndepends:\n  - missing-skill\n---\n", nil
	}
	g := Build(metas, skillsrc.DefaultPriority(), read, nil)
	if len(g.DirectDependencies(metas[0].URI())) != 0 {
		t.Fatalf("expected no edges for unresolved dependency")
	}
	if len(g.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(g.Diagnostics))
	}
}

// TestVersionConstraintSkipsHigherPriorityMismatch covers spec §4.5's
// full three-step cascade: codex (highest priority) has the wrong
// version of "foo", so a dependency requiring >=2.0.0 must fall
// through to mirror's matching version instead of silently taking
// codex's incompatible one.
func TestVersionConstraintSkipsHigherPriorityMismatch(t *testing.T) {
	metas := []skillsrc.Meta{
		{Name: "x/SKILL.md", Path: "/root/x/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
		{Name: "foo/SKILL.md", Path: "/codex/foo/SKILL.md", Source: skillsrc.Codex, RootPath: "/codex"},
		{Name: "foo/SKILL.md", Path: "/mirror/foo/SKILL.md", Source: skillsrc.Mirror, RootPath: "/mirror"},
	}
	read := func(m skillsrc.Meta) (string, error) {
		switch m.Path {
		case "/root/x/SKILL.md":
			return "---\nname: x\ndepends:\n  - foo@>=2.0.0\n---\n", nil
		case "/codex/foo/SKILL.md":
			return "---\nname: foo\nversion: 1.0.0\n---\n", nil
		case "/mirror/foo/SKILL.md":
			return "---\nname: foo\nversion: 2.0.0\n---\n", nil
		}
		return "", nil
	}
	g := Build(metas, skillsrc.DefaultPriority(), read, nil)
	deps := g.DirectDependencies(metas[0].URI())
	if len(deps) != 1 || deps[0] != metas[2].URI() {
		t.Fatalf("expected dependency to resolve to mirror's version-matching foo, got %v", deps)
	}

	// Build also back-fills skillsrc.Meta.Version from each skill's own
	// frontmatter, in place on the slice passed in.
	if metas[1].Version != "1.0.0" || metas[2].Version != "2.0.0" {
		t.Fatalf("expected Build to populate Meta.Version, got codex=%q mirror=%q", metas[1].Version, metas[2].Version)
	}
}

// TestVersionConstraintFallsBackWhenNoCandidateMatches covers step 3 of
// the cascade: when no source's version satisfies the constraint, the
// dependency still resolves name-only to the highest-priority source
// rather than going unresolved.
func TestVersionConstraintFallsBackWhenNoCandidateMatches(t *testing.T) {
	metas := []skillsrc.Meta{
		{Name: "x/SKILL.md", Path: "/root/x/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
		{Name: "foo/SKILL.md", Path: "/codex/foo/SKILL.md", Source: skillsrc.Codex, RootPath: "/codex"},
	}
	read := func(m skillsrc.Meta) (string, error) {
		switch m.Path {
		case "/root/x/SKILL.md":
			return "---\nname: x\ndepends:\n  - foo@>=2.0.0\n---\n", nil
		case "/codex/foo/SKILL.md":
			return "---\nname: foo\nversion: 1.0.0\n---\n", nil
		}
		return "", nil
	}
	g := Build(metas, skillsrc.DefaultPriority(), read, nil)
	deps := g.DirectDependencies(metas[0].URI())
	if len(deps) != 1 || deps[0] != metas[1].URI() {
		t.Fatalf("expected fallback to codex's foo despite version mismatch, got %v", deps)
	}
}

// TestExplicitSourceVersionMismatchFallsThroughToOtherSources covers
// step 1 -> step 2 of the cascade: an explicit source+version pin that
// doesn't match must not stop resolution outright when another source
// does satisfy the constraint.
func TestExplicitSourceVersionMismatchFallsThroughToOtherSources(t *testing.T) {
	metas := []skillsrc.Meta{
		{Name: "x/SKILL.md", Path: "/root/x/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
		{Name: "foo/SKILL.md", Path: "/codex/foo/SKILL.md", Source: skillsrc.Codex, RootPath: "/codex"},
		{Name: "foo/SKILL.md", Path: "/mirror/foo/SKILL.md", Source: skillsrc.Mirror, RootPath: "/mirror"},
	}
	read := func(m skillsrc.Meta) (string, error) {
		switch m.Path {
		case "/root/x/SKILL.md":
			return "---\nname: x\ndepends:\n  - codex:foo@>=2.0.0\n---\n", nil
		case "/codex/foo/SKILL.md":
			return "---\nname: foo\nversion: 1.0.0\n---\n", nil
		case "/mirror/foo/SKILL.md":
			return "---\nname: foo\nversion: 2.0.0\n---\n", nil
		}
		return "", nil
	}
	g := Build(metas, skillsrc.DefaultPriority(), read, nil)
	deps := g.DirectDependencies(metas[0].URI())
	if len(deps) != 1 || deps[0] != metas[2].URI() {
		t.Fatalf("expected explicit-source mismatch to fall through to mirror, got %v", deps)
	}
}

func TestOptionalMissingDependencyIsSilentlyDropped(t *testing.T) {
	metas := []skillsrc.Meta{
		{Name: "x/SKILL.md", Path: "/root/x/SKILL.md", Source: skillsrc.ExtraSource(0), RootPath: "/root"},
	}
	read := func(m skillsrc.Meta) (string, error) {
		return "---\nname: x\ndepends:\n  - name: missing-skill\n    optional: true\n---\n", nil
	}
	g := Build(metas, skillsrc.DefaultPriority(), read, nil)
	if len(g.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics for optional missing dependency, got %v", g.Diagnostics)
	}
}
