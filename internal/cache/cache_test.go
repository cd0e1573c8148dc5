package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clawinfra/skrills/internal/skillsrc"
)

func writeSkill(t *testing.T, dir, rel, body string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCurrentSkillsScansOnce(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "a/SKILL.md", "---\nname: a\n---\nbody")

	c := New(Config{Roots: []skillsrc.Root{{Path: root, Source: skillsrc.Codex}}, TTL: time.Hour})
	skills, _, err := c.CurrentSkills(context.Background())
	if err != nil {
		t.Fatalf("CurrentSkills: %v", err)
	}
	if len(skills) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(skills))
	}

	// Add a second skill; without invalidation or TTL expiry, it should
	// not appear in the next call.
	writeSkill(t, root, "b/SKILL.md", "---\nname: b\n---\nbody")
	skills2, _, err := c.CurrentSkills(context.Background())
	if err != nil {
		t.Fatalf("CurrentSkills: %v", err)
	}
	if len(skills2) != 1 {
		t.Fatalf("expected cached snapshot to still have 1 skill, got %d", len(skills2))
	}
}

func TestInvalidateForcesRescan(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "a/SKILL.md", "---\nname: a\n---\nbody")

	c := New(Config{Roots: []skillsrc.Root{{Path: root, Source: skillsrc.Codex}}, TTL: time.Hour})
	if _, _, err := c.CurrentSkills(context.Background()); err != nil {
		t.Fatalf("CurrentSkills: %v", err)
	}

	writeSkill(t, root, "b/SKILL.md", "---\nname: b\n---\nbody")
	c.Invalidate()

	skills, _, err := c.CurrentSkills(context.Background())
	if err != nil {
		t.Fatalf("CurrentSkills: %v", err)
	}
	if len(skills) != 2 {
		t.Fatalf("expected 2 skills after invalidate, got %d", len(skills))
	}
}

func TestReadResourceWithResolve(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "skill-a/SKILL.md", "---\nname: skill-a\ndepends:\n  - skill-b\n  - skill-c\n---\nbody a")
	writeSkill(t, root, "skill-b/SKILL.md", "---\nname: skill-b\ndepends:\n  - skill-d\n---\nbody b")
	writeSkill(t, root, "skill-c/SKILL.md", "---\nname: skill-c\ndepends:\n  - skill-d\n---\nbody c")
	writeSkill(t, root, "skill-d/SKILL.md", "---\nname: skill-d\n---\nbody d")

	c := New(Config{Roots: []skillsrc.Root{{Path: root, Source: skillsrc.ExtraSource(0)}}, TTL: time.Hour})
	skills, _, err := c.CurrentSkills(context.Background())
	if err != nil {
		t.Fatalf("CurrentSkills: %v", err)
	}
	var aURI string
	for _, s := range skills {
		if s.Name == "skill-a/SKILL.md" {
			aURI = s.URI()
		}
	}
	if aURI == "" {
		t.Fatalf("skill-a not found")
	}

	contents, err := c.ReadResource(context.Background(), aURI+"?resolve=true")
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if len(contents) != 4 {
		t.Fatalf("expected 4 contents (requested + 3 deps), got %d", len(contents))
	}
	if contents[0].Role != RoleRequested || contents[0].URI != aURI {
		t.Fatalf("expected first entry to be the requested skill, got %+v", contents[0])
	}
	for _, c := range contents[1:] {
		if c.Role != RoleDependency {
			t.Fatalf("expected dependency role, got %+v", c)
		}
	}
}

func TestReadResourceUnknownURI(t *testing.T) {
	root := t.TempDir()
	c := New(Config{Roots: []skillsrc.Root{{Path: root, Source: skillsrc.Codex}}, TTL: time.Hour})
	if _, err := c.ReadResource(context.Background(), "skill://skrills/codex/missing/SKILL.md"); err == nil {
		t.Fatalf("expected error for unknown URI")
	}
}
