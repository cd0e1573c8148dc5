package sync

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSyncClaudeToCodexSkills(t *testing.T) {
	base := t.TempDir()
	claudeRoot := filepath.Join(base, "claude")
	codexRoot := filepath.Join(base, "codex")

	writeFile(t, filepath.Join(claudeRoot, "skills", "example-skill", "SKILL.md"), "---\nname: example-skill\n---\nbody")

	src := NewClaudeAdapter(claudeRoot)
	dst := NewCodexAdapter(codexRoot)

	report, err := Sync(src, dst, Params{Skills: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Fields[FieldSkills].Written != 1 {
		t.Fatalf("expected 1 skill written, got %+v", report.Fields[FieldSkills])
	}

	got, err := os.ReadFile(filepath.Join(codexRoot, "skills", "example-skill", "SKILL.md"))
	if err != nil {
		t.Fatalf("read synced skill: %v", err)
	}
	if string(got) != "---\nname: example-skill\n---\nbody" {
		t.Fatalf("unexpected synced content: %q", got)
	}

	tomlData, err := os.ReadFile(filepath.Join(codexRoot, "config.toml"))
	if err != nil {
		t.Fatalf("read config.toml: %v", err)
	}
	if !contains(string(tomlData), "skills = true") {
		t.Fatalf("expected config.toml to contain skills = true, got %q", tomlData)
	}
}

func TestSyncIdempotent(t *testing.T) {
	base := t.TempDir()
	claudeRoot := filepath.Join(base, "claude")
	codexRoot := filepath.Join(base, "codex")
	writeFile(t, filepath.Join(claudeRoot, "skills", "s", "SKILL.md"), "body")

	src := NewClaudeAdapter(claudeRoot)
	dst := NewCodexAdapter(codexRoot)

	if _, err := Sync(src, dst, Params{Skills: true}); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	report, err := Sync(src, dst, Params{Skills: true})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	fr := report.Fields[FieldSkills]
	if fr.Written != 0 {
		t.Fatalf("expected second sync to write nothing, got %+v", fr)
	}
	if len(fr.Skipped) != 1 || fr.Skipped[0].Kind != SkipUnchanged {
		t.Fatalf("expected one Unchanged skip, got %+v", fr.Skipped)
	}
}

func TestSyncSkipExistingCommands(t *testing.T) {
	base := t.TempDir()
	claudeRoot := filepath.Join(base, "claude")
	codexRoot := filepath.Join(base, "codex")
	writeFile(t, filepath.Join(claudeRoot, "commands", "deploy.md"), "new content")
	writeFile(t, filepath.Join(codexRoot, "prompts", "deploy.md"), "old content")

	src := NewClaudeAdapter(claudeRoot)
	dst := NewCodexAdapter(codexRoot)

	report, err := Sync(src, dst, Params{Commands: true, SkipExistingCommands: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	fr := report.Fields[FieldCommands]
	if fr.Written != 0 {
		t.Fatalf("expected no writes, got %+v", fr)
	}
	if len(fr.Skipped) != 1 || fr.Skipped[0].Kind != SkipWouldOverwrite {
		t.Fatalf("expected WouldOverwrite skip, got %+v", fr.Skipped)
	}

	got, err := os.ReadFile(filepath.Join(codexRoot, "prompts", "deploy.md"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "old content" {
		t.Fatalf("expected existing content preserved, got %q", got)
	}
}

func TestSyncForceOverridesSkipExisting(t *testing.T) {
	base := t.TempDir()
	claudeRoot := filepath.Join(base, "claude")
	codexRoot := filepath.Join(base, "codex")
	writeFile(t, filepath.Join(claudeRoot, "commands", "deploy.md"), "new content")
	writeFile(t, filepath.Join(codexRoot, "prompts", "deploy.md"), "old content")

	src := NewClaudeAdapter(claudeRoot)
	dst := NewCodexAdapter(codexRoot)

	report, err := Sync(src, dst, Params{Commands: true, SkipExistingCommands: true, Force: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Fields[FieldCommands].Written != 1 {
		t.Fatalf("expected 1 write under force, got %+v", report.Fields[FieldCommands])
	}
}

func TestSyncUnsupportedFieldReportsSkip(t *testing.T) {
	base := t.TempDir()
	codexRoot := filepath.Join(base, "codex")
	copilotRoot := filepath.Join(base, "copilot")
	src := NewCodexAdapter(codexRoot)
	dst := NewCopilotAdapter(copilotRoot)

	report, err := Sync(src, dst, Params{Commands: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	fr := report.Fields[FieldCommands]
	if fr.Written != 0 || len(fr.Skipped) != 1 || fr.Skipped[0].Kind != SkipUnsupported {
		t.Fatalf("expected unsupported skip, got %+v", fr)
	}
}

func TestAgentEmulationRoundTrip(t *testing.T) {
	base := t.TempDir()
	claudeRoot := filepath.Join(base, "claude")
	codexRoot := filepath.Join(base, "codex")
	writeFile(t, filepath.Join(claudeRoot, "agents", "reviewer.md"), "agent body")

	src := NewClaudeAdapter(claudeRoot)
	dst := NewCodexAdapter(codexRoot)
	if _, err := Sync(src, dst, Params{Agents: true}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(codexRoot, "skills", "agent-reviewer", "SKILL.md"))
	if err != nil {
		t.Fatalf("read emulated agent skill: %v", err)
	}
	if string(got) != "agent body" {
		t.Fatalf("unexpected content: %q", got)
	}

	agents, err := dst.ReadAgents()
	if err != nil {
		t.Fatalf("ReadAgents: %v", err)
	}
	if len(agents) != 1 || agents[0].Name != "reviewer" {
		t.Fatalf("expected round-tripped agent named reviewer, got %+v", agents)
	}
}

func TestSanitizeRelPathStripsTraversal(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "etc/passwd",
		"a/../b":           "a/b",
		"normal-name":      "normal-name",
		"cat/sub":          "cat/sub",
	}
	for in, want := range cases {
		if got := sanitizeRelPath(in); got != want {
			t.Errorf("sanitizeRelPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
