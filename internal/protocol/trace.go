package protocol

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TraceRecorder instruments on-disk skill files with HTML comment markers
// and installs a pair of debug-only skills (trace + probe) so that an
// operator can confirm which skill files a client actually loaded into a
// prompt. Neither Claude Code nor Codex exposes this natively.
type TraceRecorder struct {
	mu      sync.Mutex
	home    string
	enabled map[string]bool
}

// NewTraceRecorder builds a recorder rooted at home (typically $HOME).
func NewTraceRecorder(home string) *TraceRecorder {
	return &TraceRecorder{home: home, enabled: map[string]bool{}}
}

const (
	traceSkillDir = "skrills-skill-trace"
	probeSkillDir = "skrills-skill-probe"
	markerPrefix  = "<!-- skrills-skill-id: "
)

var traceIgnoreDirs = map[string]bool{
	"node_modules": true, ".git": true, "target": true, "dist": true,
	"build": true, "vendor": true, ".venv": true, "__pycache__": true,
	".cache": true, ".tox": true,
}

func clientSkillDir(home, target string) string {
	switch target {
	case "codex":
		return filepath.Join(home, ".codex", "skills")
	default:
		return filepath.Join(home, ".claude", "skills")
	}
}

func traceTargets(target string) []string {
	if target == "both" || target == "" {
		return []string{"claude", "codex"}
	}
	return []string{target}
}

func traceRoots(home, target string) map[string]string {
	roots := map[string]string{}
	for _, t := range traceTargets(target) {
		roots[t] = clientSkillDir(home, t)
	}
	return roots
}

func traceSkillContent() string {
	return strings.Join([]string{
		"---",
		"name: skrills-skill-trace",
		"description: Debug-only skill that reports which instrumented skills are visible in the current prompt.",
		"---",
		"",
		"# Skrills Skill Trace (debug)",
		"",
		"At the end of every assistant response, scan context for HTML comments",
		"of the form `<!-- skrills-skill-id: ... -->` and print:",
		"",
		"SKRILLS_SKILLS_LOADED: <JSON array of strings>",
		"SKRILLS_SKILLS_USED: <JSON array of strings>",
		"",
	}, "\n")
}

func probeSkillContent() string {
	return strings.Join([]string{
		"---",
		"name: skrills-skill-probe",
		"description: Debug-only probe. Responds to SKRILLS_PROBE:<token> to prove skills are loading.",
		"---",
		"",
		"# Skrills Skill Probe (debug)",
		"",
		"If the user message is exactly `SKRILLS_PROBE:<token>`, respond with",
		"exactly `SKRILLS_PROBE_OK:<token>` and nothing else.",
		"",
	}, "\n")
}

func installSkill(dir, name, content string, dryRun bool) (bool, error) {
	path := filepath.Join(dir, name, "SKILL.md")
	if existing, err := os.ReadFile(path); err == nil {
		if string(existing) == content {
			return false, nil
		}
	}
	if dryRun {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("trace: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("trace: write %s: %w", path, err)
	}
	return true, nil
}

func isSkillFile(path string) bool {
	return strings.EqualFold(filepath.Base(path), "SKILL.md")
}

func isInternalTraceSkill(path string) bool {
	return strings.Contains(path, traceSkillDir) || strings.Contains(path, probeSkillDir)
}

func instrumentRoot(label, root string, dryRun bool, report *TraceReport) {
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			report.Warnings = append(report.Warnings, err.Error())
			return nil
		}
		if d.IsDir() {
			if path != root && traceIgnoreDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !isSkillFile(path) {
			return nil
		}
		if isInternalTraceSkill(path) {
			report.SkippedFiles++
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		markerLine := fmt.Sprintf("%s%s:%s -->", markerPrefix, label, filepath.ToSlash(rel))

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			report.Warnings = append(report.Warnings, readErr.Error())
			return nil
		}
		content := string(data)
		if strings.Contains(content, markerLine) {
			report.SkippedFiles++
			return nil
		}
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += markerLine + "\n"
		if !dryRun {
			if writeErr := os.WriteFile(path, []byte(content), 0o644); writeErr != nil {
				report.Warnings = append(report.Warnings, writeErr.Error())
				return nil
			}
		}
		report.InstrumentedFiles++
		return nil
	})
}

// TraceReport is the structured_content of enable-skill-trace.
type TraceReport struct {
	Target              string   `json:"target"`
	InstalledTraceSkill bool     `json:"installed_trace_skill"`
	InstalledProbeSkill bool     `json:"installed_probe_skill"`
	InstrumentedFiles   int      `json:"instrumented_files"`
	SkippedFiles        int      `json:"skipped_files"`
	Roots               []string `json:"roots"`
	Warnings            []string `json:"warnings,omitempty"`
}

// Status is the structured_content of skill-loading-status.
type Status struct {
	Target                  string   `json:"target"`
	Roots                   []string `json:"roots"`
	SkillFilesFound         int      `json:"skill_files_found"`
	TraceSkillInstalled     bool     `json:"trace_skill_installed"`
	ProbeSkillInstalled     bool     `json:"probe_skill_installed"`
	InstrumentedMarkersFound int     `json:"instrumented_markers_found"`
	Warnings                []string `json:"warnings,omitempty"`
}

func (t *TraceRecorder) Enable(target string, instrument, dryRun bool) (TraceReport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := TraceReport{Target: target}
	roots := traceRoots(t.home, target)
	for client := range roots {
		dir := clientSkillDir(t.home, client)
		installedTrace, err := installSkill(dir, traceSkillDir, traceSkillContent(), dryRun)
		if err != nil {
			return report, err
		}
		installedProbe, err := installSkill(dir, probeSkillDir, probeSkillContent(), dryRun)
		if err != nil {
			return report, err
		}
		report.InstalledTraceSkill = report.InstalledTraceSkill || installedTrace
		report.InstalledProbeSkill = report.InstalledProbeSkill || installedProbe
	}

	for label, root := range roots {
		report.Roots = append(report.Roots, fmt.Sprintf("%s:%s", label, root))
		if instrument {
			instrumentRoot(label, root, dryRun, &report)
		}
	}
	if !dryRun {
		for client := range roots {
			t.enabled[client] = true
		}
	}
	return report, nil
}

func (t *TraceRecorder) Disable(target string, dryRun bool) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	for client := range traceRootsSet(target) {
		dir := clientSkillDir(t.home, client)
		for _, name := range []string{traceSkillDir, probeSkillDir} {
			full := filepath.Join(dir, name)
			if _, err := os.Stat(full); err != nil {
				continue
			}
			if dryRun {
				removed = append(removed, "(dry-run) "+full)
				continue
			}
			if err := os.RemoveAll(full); err != nil {
				return removed, fmt.Errorf("trace: remove %s: %w", full, err)
			}
			removed = append(removed, full)
		}
		if !dryRun {
			delete(t.enabled, client)
		}
	}
	return removed, nil
}

func traceRootsSet(target string) map[string]bool {
	out := map[string]bool{}
	for _, t := range traceTargets(target) {
		out[t] = true
	}
	return out
}

func (t *TraceRecorder) Status(target string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := Status{Target: target}
	roots := traceRoots(t.home, target)
	for label, root := range roots {
		st.Roots = append(st.Roots, fmt.Sprintf("%s:%s", label, root))
		dir := clientSkillDir(t.home, label)
		if _, err := os.Stat(filepath.Join(dir, traceSkillDir, "SKILL.md")); err == nil {
			st.TraceSkillInstalled = true
		}
		if _, err := os.Stat(filepath.Join(dir, probeSkillDir, "SKILL.md")); err == nil {
			st.ProbeSkillInstalled = true
		}
		if _, err := os.Stat(root); err != nil {
			continue
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				st.Warnings = append(st.Warnings, err.Error())
				return nil
			}
			if d.IsDir() {
				if path != root && traceIgnoreDirs[d.Name()] {
					return fs.SkipDir
				}
				return nil
			}
			if !isSkillFile(path) {
				return nil
			}
			st.SkillFilesFound++
			if data, err := os.ReadFile(path); err == nil && strings.Contains(string(data), markerPrefix) {
				st.InstrumentedMarkersFound++
			}
			return nil
		})
	}
	return st
}

// Selftest runs a probe round-trip check: it verifies both the trace and
// probe skills are installed and readable for the given target, without
// spawning an actual assistant CLI process.
func (t *TraceRecorder) Selftest(target string) (Status, []string) {
	st := t.Status(target)
	var problems []string
	if !st.TraceSkillInstalled {
		problems = append(problems, "trace skill not installed; run enable-skill-trace first")
	}
	if !st.ProbeSkillInstalled {
		problems = append(problems, "probe skill not installed; run enable-skill-trace first")
	}
	if st.SkillFilesFound > 0 && st.InstrumentedMarkersFound == 0 {
		problems = append(problems, "no instrumented markers found; run enable-skill-trace with instrument=true")
	}
	return st, problems
}

func toolSkillLoadingStatus(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	if h.Trace == nil {
		return errorResult("skill-loading-status: trace recorder not configured")
	}
	target := argString(args, "target", "both")
	return textResult(h.Trace.Status(target))
}

func toolEnableSkillTrace(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	if h.Trace == nil {
		return errorResult("enable-skill-trace: trace recorder not configured")
	}
	target := argString(args, "target", "both")
	instrument := argBool(args, "instrument", true)
	dryRun := argBool(args, "dry_run", false)
	report, err := h.Trace.Enable(target, instrument, dryRun)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(report)
}

func toolDisableSkillTrace(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	if h.Trace == nil {
		return errorResult("disable-skill-trace: trace recorder not configured")
	}
	target := argString(args, "target", "both")
	dryRun := argBool(args, "dry_run", false)
	removed, err := h.Trace.Disable(target, dryRun)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(map[string]any{"removed": removed})
}

func toolSkillLoadingSelftest(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	if h.Trace == nil {
		return errorResult("skill-loading-selftest: trace recorder not configured")
	}
	target := argString(args, "target", "both")
	status, problems := h.Trace.Selftest(target)
	return textResult(map[string]any{"status": status, "problems": problems, "ok": len(problems) == 0})
}
