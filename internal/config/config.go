// Package config loads and hot-reloads skrills' TOML configuration
// file, overlaying the environment variables spec §6 recognizes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all skrills configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	CLI       CLIConfig       `toml:"cli"`
	Sources   SourcesConfig   `toml:"sources"`
	Usage     UsageConfig     `toml:"usage"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

// ServerConfig configures the protocol server's transport.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	LogLevel   string `toml:"log_level"`
}

// CLIConfig configures how subagent runs resolve and invoke a backend
// assistant CLI (spec §4.11 / §6 SKRILLS_CLI_* variables).
type CLIConfig struct {
	Binary     string `toml:"binary"`
	WorkingDir string `toml:"working_dir"`
	TimeoutMS  int    `toml:"timeout_ms"`
	Type       string `toml:"type"`
}

// SourcesConfig configures which skill roots discovery includes (spec
// §6 SKRILLS_INCLUDE_*/SKRILLS_EXPOSE_AGENTS/SKRILLS_MIRROR_SOURCE).
type SourcesConfig struct {
	IncludeClaude      bool   `toml:"include_claude"`
	IncludeMarketplace bool   `toml:"include_marketplace"`
	ExposeAgents       bool   `toml:"expose_agents"`
	MirrorSource       string `toml:"mirror_source"`
}

// UsageConfig configures the co-occurrence/usage stats store.
type UsageConfig struct {
	StatsPath string `toml:"stats_path"`
}

// SchedulerConfig configures the periodic cache-refresh and
// usage-log-ingestion jobs.
type SchedulerConfig struct {
	RefreshIntervalSec int    `toml:"refresh_interval_sec"`
	IngestCron         string `toml:"ingest_cron"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8787",
			LogLevel:   "info",
		},
		CLI: CLIConfig{
			Binary:    "auto",
			TimeoutMS: 120_000,
			Type:      "auto",
		},
		Sources: SourcesConfig{
			IncludeClaude:      true,
			IncludeMarketplace: false,
			ExposeAgents:       true,
		},
		Usage: UsageConfig{
			StatsPath: "~/.skrills/usage.db",
		},
		Scheduler: SchedulerConfig{
			RefreshIntervalSec: 300,
			IngestCron:         "0 */15 * * * *",
		},
	}
}

// Load reads config from a TOML file, falling back to defaults for any
// section the file omits, then applies the environment overlay.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// ApplyEnv overlays every spec §6 environment variable onto cfg.
// Unrecognized values for an enum-like variable are logged by the
// caller (via the returned warnings) and left at their prior value.
func ApplyEnv(cfg *Config) []string {
	var warnings []string

	if v := os.Getenv("SKRILLS_CLI_BINARY"); v != "" {
		cfg.CLI.Binary = v
	}
	if v := os.Getenv("SKRILLS_CLI_WORKING_DIR"); v != "" {
		cfg.CLI.WorkingDir = v
	}
	if v := os.Getenv("SKRILLS_CLI_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CLI.TimeoutMS = n
		} else {
			warnings = append(warnings, "SKRILLS_CLI_TIMEOUT_MS: not an integer: "+v)
		}
	}
	if v := os.Getenv("SKRILLS_INCLUDE_CLAUDE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sources.IncludeClaude = b
		} else {
			warnings = append(warnings, "SKRILLS_INCLUDE_CLAUDE: not a bool: "+v)
		}
	}
	if v := os.Getenv("SKRILLS_INCLUDE_MARKETPLACE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sources.IncludeMarketplace = b
		} else {
			warnings = append(warnings, "SKRILLS_INCLUDE_MARKETPLACE: not a bool: "+v)
		}
	}
	if v := os.Getenv("SKRILLS_EXPOSE_AGENTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sources.ExposeAgents = b
		} else {
			warnings = append(warnings, "SKRILLS_EXPOSE_AGENTS: not a bool: "+v)
		}
	}
	if v := os.Getenv("SKRILLS_CLI_TYPE"); v != "" {
		switch v {
		case "codex", "claude", "gemini", "qwen":
			cfg.CLI.Type = v
		default:
			warnings = append(warnings, "SKRILLS_CLI_TYPE: unrecognized value, keeping default: "+v)
		}
	}
	if v := os.Getenv("SKRILLS_MIRROR_SOURCE"); v != "" {
		cfg.Sources.MirrorSource = v
	}

	return warnings
}

// CLITimeout returns CLI.TimeoutMS as a time.Duration.
func (c *Config) CLITimeout() time.Duration {
	return time.Duration(c.CLI.TimeoutMS) * time.Millisecond
}

// Save writes config to a TOML file, creating its parent directory.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
