package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/BurntSushi/toml"
)

// ReloadResult describes what changed during a config reload.
type ReloadResult struct {
	Changed []string
	Applied []string
	Skipped []string
	Errors  []error
}

// restartRequiredFields lists top-level config fields that cannot be
// hot-reloaded and require a full process restart.
var restartRequiredFields = map[string]bool{
	"Server.ListenAddr": true,
}

// hotReloadableFields lists fields that can be applied at runtime.
var hotReloadableFields = []string{
	"Server.LogLevel",
	"CLI",
	"Sources",
	"Usage",
	"Scheduler",
}

var mu sync.RWMutex

// RLock acquires a read lock on the config.
func RLock() { mu.RLock() }

// RUnlock releases a read lock on the config.
func RUnlock() { mu.RUnlock() }

// Reload re-reads the config from path, diffs against the current
// config, and applies hot-reloadable changes in place. Fields that
// require a restart are reported as skipped.
func (c *Config) Reload(path string) (*ReloadResult, error) {
	newCfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, newCfg); err != nil {
		return nil, fmt.Errorf("parse config for reload: %w", err)
	}

	result := &ReloadResult{}

	mu.Lock()
	defer mu.Unlock()

	diffAndApply(c, newCfg, result)
	return result, nil
}

func diffAndApply(old, next *Config, result *ReloadResult) {
	if old.Server.ListenAddr != next.Server.ListenAddr {
		result.Changed = append(result.Changed, "Server.ListenAddr")
		result.Skipped = append(result.Skipped, "Server.ListenAddr (requires restart)")
	}
	if old.Server.LogLevel != next.Server.LogLevel {
		result.Changed = append(result.Changed, "Server.LogLevel")
		old.Server.LogLevel = next.Server.LogLevel
		result.Applied = append(result.Applied, "Server.LogLevel")
	}
	if !reflect.DeepEqual(old.CLI, next.CLI) {
		result.Changed = append(result.Changed, "CLI")
		old.CLI = next.CLI
		result.Applied = append(result.Applied, "CLI")
	}
	if !reflect.DeepEqual(old.Sources, next.Sources) {
		result.Changed = append(result.Changed, "Sources")
		old.Sources = next.Sources
		result.Applied = append(result.Applied, "Sources")
	}
	if !reflect.DeepEqual(old.Usage, next.Usage) {
		result.Changed = append(result.Changed, "Usage")
		old.Usage = next.Usage
		result.Applied = append(result.Applied, "Usage")
	}
	if !reflect.DeepEqual(old.Scheduler, next.Scheduler) {
		result.Changed = append(result.Changed, "Scheduler")
		old.Scheduler = next.Scheduler
		result.Applied = append(result.Applied, "Scheduler")
	}
}

// LogResult logs the reload result at the appropriate levels.
func (r *ReloadResult) LogResult(logger *slog.Logger) {
	if len(r.Changed) == 0 {
		logger.Info("config reload: no changes detected")
		return
	}

	logger.Info("config reload complete",
		"changed", len(r.Changed),
		"applied", len(r.Applied),
		"skipped", len(r.Skipped),
		"errors", len(r.Errors),
	)

	for _, field := range r.Applied {
		logger.Info("config field hot-reloaded", "field", field)
	}
	for _, field := range r.Skipped {
		logger.Warn("config field requires restart", "field", field)
	}
	for _, err := range r.Errors {
		logger.Error("config reload error", "error", err)
	}
}

// IsRestartRequired returns true if the field requires a restart.
func IsRestartRequired(field string) bool {
	return restartRequiredFields[field]
}

// HotReloadableFields returns the list of hot-reloadable field names.
func HotReloadableFields() []string {
	return hotReloadableFields
}
