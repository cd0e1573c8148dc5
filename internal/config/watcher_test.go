package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReloadDetectsChangedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	saveTOML(t, path, cfg)

	cfg2 := DefaultConfig()
	cfg2.Sources.IncludeMarketplace = true
	saveTOML(t, path, cfg2)

	result, err := cfg.Reload(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if len(result.Changed) == 0 {
		t.Fatal("expected changes to be detected")
	}

	found := false
	for _, c := range result.Changed {
		if c == "Sources" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Sources in changed, got %v", result.Changed)
	}

	foundApplied := false
	for _, a := range result.Applied {
		if a == "Sources" {
			foundApplied = true
		}
	}
	if !foundApplied {
		t.Errorf("expected Sources in applied, got %v", result.Applied)
	}

	if !cfg.Sources.IncludeMarketplace {
		t.Error("expected IncludeMarketplace to be updated")
	}
}

func TestReloadHotApplySupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	saveTOML(t, path, cfg)

	cfg2 := DefaultConfig()
	cfg2.Server.LogLevel = "debug"
	saveTOML(t, path, cfg2)

	result, err := cfg.Reload(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	foundApplied := false
	for _, a := range result.Applied {
		if a == "Server.LogLevel" {
			foundApplied = true
		}
	}
	if !foundApplied {
		t.Errorf("expected Server.LogLevel in applied, got %v", result.Applied)
	}

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("expected logLevel debug, got %s", cfg.Server.LogLevel)
	}
}

func TestReloadRestartRequiredFieldsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	saveTOML(t, path, cfg)

	cfg2 := DefaultConfig()
	cfg2.Server.ListenAddr = "0.0.0.0:9999"
	saveTOML(t, path, cfg2)

	result, err := cfg.Reload(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	foundSkipped := false
	for _, s := range result.Skipped {
		if s == "Server.ListenAddr (requires restart)" {
			foundSkipped = true
		}
	}
	if !foundSkipped {
		t.Errorf("expected Server.ListenAddr in skipped, got %v", result.Skipped)
	}

	if cfg.Server.ListenAddr != "127.0.0.1:8787" {
		t.Errorf("expected listen_addr unchanged, got %s", cfg.Server.ListenAddr)
	}
}

func TestReloadNoChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	saveTOML(t, path, cfg)

	result, err := cfg.Reload(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if len(result.Changed) != 0 {
		t.Errorf("expected no changes, got %v", result.Changed)
	}
}

func TestReloadMultipleFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	saveTOML(t, path, cfg)

	cfg2 := DefaultConfig()
	cfg2.Server.ListenAddr = "0.0.0.0:9999"
	cfg2.Server.LogLevel = "warn"
	cfg2.Scheduler.RefreshIntervalSec = 60
	saveTOML(t, path, cfg2)

	result, err := cfg.Reload(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if len(result.Changed) != 3 {
		t.Errorf("expected 3 changes, got %d: %v", len(result.Changed), result.Changed)
	}
	if len(result.Applied) != 2 {
		t.Errorf("expected 2 applied, got %d: %v", len(result.Applied), result.Applied)
	}
	if len(result.Skipped) != 1 {
		t.Errorf("expected 1 skipped, got %d: %v", len(result.Skipped), result.Skipped)
	}
}

func TestReloadBadFile(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.Reload("/nonexistent/path.toml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestReloadBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("not = [valid"), 0644)

	cfg := DefaultConfig()
	_, err := cfg.Reload(path)
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestIsRestartRequired(t *testing.T) {
	if !IsRestartRequired("Server.ListenAddr") {
		t.Error("Server.ListenAddr should require restart")
	}
	if IsRestartRequired("Sources") {
		t.Error("Sources should not require restart")
	}
}

func TestHotReloadableFields(t *testing.T) {
	fields := HotReloadableFields()
	if len(fields) == 0 {
		t.Fatal("expected hot-reloadable fields")
	}
	found := false
	for _, f := range fields {
		if f == "Sources" {
			found = true
		}
	}
	if !found {
		t.Error("expected Sources in hot-reloadable fields")
	}
}

func TestLogResult(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := &ReloadResult{}
	r.LogResult(logger) // should not panic

	r2 := &ReloadResult{
		Changed: []string{"Sources", "Server.ListenAddr"},
		Applied: []string{"Sources"},
		Skipped: []string{"Server.ListenAddr (requires restart)"},
	}
	r2.LogResult(logger) // should not panic
}

func TestWatcherFiresOnSourcesChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	saveTOML(t, path, cfg)

	changed := make(chan struct{}, 1)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w := NewWatcher(cfg, path, 50*time.Millisecond, logger, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	onDisk := DefaultConfig()
	onDisk.Sources.IncludeMarketplace = true
	saveTOML(t, path, onDisk)

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not detect Sources change within timeout")
	}
	if !cfg.Sources.IncludeMarketplace {
		t.Fatal("expected watcher's reload to apply the Sources change to cfg")
	}
}

// TestWatcherIgnoresNonSourcesChange covers the point of splitting
// onSourcesChanged out from a blanket onChange: a hot-reloadable field
// outside Sources still gets applied, but must not trigger the
// discovery-cache invalidation callback.
func TestWatcherIgnoresNonSourcesChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	saveTOML(t, path, cfg)

	changed := make(chan struct{}, 1)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w := NewWatcher(cfg, path, 50*time.Millisecond, logger, func() {
		changed <- struct{}{}
	})
	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	onDisk := DefaultConfig()
	onDisk.Server.LogLevel = "debug"
	saveTOML(t, path, onDisk)

	select {
	case <-changed:
		t.Fatal("onSourcesChanged should not fire for a Server.LogLevel-only change")
	case <-time.After(300 * time.Millisecond):
	}
	if cfg.Server.LogLevel != "debug" {
		t.Fatal("expected watcher's reload to still apply the LogLevel change to cfg")
	}
}

func TestWatcherStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	saveTOML(t, path, DefaultConfig())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := NewWatcher(DefaultConfig(), path, 50*time.Millisecond, logger, nil)
	w.Start()
	w.Stop()
	w.Stop() // double stop should not panic
}

func saveTOML(t *testing.T, path string, v *Config) {
	t.Helper()
	if err := v.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
}
