package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

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

// TestDuplicateAcrossRoots mirrors spec scenario 1: codex and claude both
// define test-skill/SKILL.md; with default priority Codex wins.
func TestDuplicateAcrossRoots(t *testing.T) {
	base := t.TempDir()
	codexRoot := filepath.Join(base, "codex")
	claudeRoot := filepath.Join(base, "claude")
	writeSkill(t, codexRoot, "test-skill/SKILL.md", "---\nname: test-skill\n---\ncodex version")
	writeSkill(t, claudeRoot, "test-skill/SKILL.md", "---\nname: test-skill\n---\nclaude version")

	roots := []skillsrc.Root{
		{Path: codexRoot, Source: skillsrc.Codex},
		{Path: claudeRoot, Source: skillsrc.Claude},
	}

	res, err := Scan(context.Background(), roots, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Skills) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(res.Skills))
	}
	if res.Skills[0].Name != "test-skill/SKILL.md" {
		t.Fatalf("unexpected name: %s", res.Skills[0].Name)
	}
	if res.Skills[0].Source != skillsrc.Codex {
		t.Fatalf("expected kept source codex, got %s", res.Skills[0].Source)
	}
	if len(res.Duplicates) != 1 {
		t.Fatalf("expected 1 duplicate entry, got %d", len(res.Duplicates))
	}
	dup := res.Duplicates[0]
	if dup.Name != "test-skill/SKILL.md" || dup.KeptSource != skillsrc.Codex || dup.SkippedSource != skillsrc.Claude {
		t.Fatalf("unexpected duplicate entry: %+v", dup)
	}
}

func TestScanIgnoresNoiseDirs(t *testing.T) {
	base := t.TempDir()
	writeSkill(t, base, "node_modules/pkg/SKILL.md", "---\nname: should-be-ignored\n---\n")
	writeSkill(t, base, "real/SKILL.md", "---\nname: real\n---\n")

	roots := []skillsrc.Root{{Path: base, Source: skillsrc.Codex}}
	res, err := Scan(context.Background(), roots, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Skills) != 1 || res.Skills[0].Name != "real/SKILL.md" {
		t.Fatalf("expected only real/SKILL.md, got %+v", res.Skills)
	}
}

func TestScanIgnoresHiddenDirs(t *testing.T) {
	base := t.TempDir()
	writeSkill(t, base, ".hidden/SKILL.md", "---\nname: hidden\n---\n")
	roots := []skillsrc.Root{{Path: base, Source: skillsrc.Codex}}
	res, err := Scan(context.Background(), roots, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Skills) != 0 {
		t.Fatalf("expected hidden skill to be ignored, got %+v", res.Skills)
	}
}

func TestFileFingerprintStableAndSensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	if err := os.WriteFile(path, []byte("content one"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h1, err := fileFingerprint(path)
	if err != nil {
		t.Fatalf("fileFingerprint: %v", err)
	}
	h2, err := fileFingerprint(path)
	if err != nil {
		t.Fatalf("fileFingerprint: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected stable hash, got %s vs %s", h1, h2)
	}

	if err := os.WriteFile(path, []byte("content two, different"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h3, err := fileFingerprint(path)
	if err != nil {
		t.Fatalf("fileFingerprint: %v", err)
	}
	if h3 == h1 {
		t.Fatalf("expected hash to change when content changes")
	}
}

func TestScanAgentsFindsNestedMarkdown(t *testing.T) {
	base := t.TempDir()
	writeSkill(t, base, "project/agents/reviewer.md", "# Reviewer")
	writeSkill(t, base, "project/agents/nested/helper.md", "# Helper")
	writeSkill(t, base, "project/docs/readme.md", "# Not an agent")

	metas, err := ScanAgents(skillsrc.Root{Path: base, Source: skillsrc.Agent})
	if err != nil {
		t.Fatalf("ScanAgents: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 agent files, got %d: %+v", len(metas), metas)
	}
}
