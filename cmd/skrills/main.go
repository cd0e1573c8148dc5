// Command skrills is the CLI and protocol-server entrypoint for the
// agent-skill management service: it discovers skills scattered across
// client-specific roots, resolves their dependency graph, synchronizes
// them between clients, recommends related skills, and supervises
// subagent runs. Every subcommand below is a thin mode of the same
// process the "serve" subcommand runs long-lived (spec §2: "the CLI is
// a thin mode of the same process").
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/clawinfra/skrills/internal/cache"
	"github.com/clawinfra/skrills/internal/certs"
	"github.com/clawinfra/skrills/internal/cliadapter"
	"github.com/clawinfra/skrills/internal/config"
	"github.com/clawinfra/skrills/internal/protocol"
	"github.com/clawinfra/skrills/internal/recommend"
	"github.com/clawinfra/skrills/internal/runstore"
	"github.com/clawinfra/skrills/internal/scheduler"
	"github.com/clawinfra/skrills/internal/skillsrc"
	"github.com/clawinfra/skrills/internal/sync"
	"github.com/clawinfra/skrills/internal/usage"
	"github.com/clawinfra/skrills/internal/wizard"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

// Exit codes per spec §6: 0 success, 1 recoverable error, 2 invalid args.
const (
	exitOK      = 0
	exitError   = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printTopHelp()
		return exitUsage
	}

	switch args[0] {
	case "help", "-h", "--help":
		printTopHelp()
		return exitOK
	case "version", "--version":
		fmt.Printf("skrills v%s (built %s)\n", version, buildTime)
		return exitOK
	case "serve":
		return cmdServe(args[1:])
	case "setup":
		return cmdSetup(args[1:])
	case "cert":
		return cmdCert(args[1:])
	default:
		return cmdTool(args[0], args[1:])
	}
}

func printTopHelp() {
	fmt.Fprintf(os.Stderr, `skrills — agent-skill management service

USAGE:
  skrills <command> [--flag value ...]

COMMANDS:
  serve                    run the protocol server (stdio by default, --http to listen on TCP)
  setup                    interactive first-run wizard
  cert status              report local TLS certificate status
  version                  print version information
  help                     show this help message

Every protocol tool (spec §6) is also a subcommand, reading --flag value
pairs as its arguments and printing the JSON structured_content on
success, e.g.:

  skrills resolve-dependencies --uri skill://skrills/claude/foo/SKILL.md --transitive true
  skrills recommend-skills --uri skill://skrills/claude/foo/SKILL.md --limit 5
  skrills sync-all --from claude --dry_run true
  skrills search-skills-fuzzy --query "deploy" --threshold 0.3

Run 'skrills help' for this message, or consult spec §6 for the full
tool list.
`)
}

// --- shared wiring -----------------------------------------------------

// buildHandler constructs the protocol Handler from cfg: the discovery
// cache, recommendation scorer, usage stats, sync adapter factory, and
// run store, exactly as the long-lived server and every CLI subcommand
// share (spec §2: "the protocol server owns the cache and graph").
func buildHandler(cfg *config.Config, logger *slog.Logger) (*protocol.Handler, func(), error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("determine home directory: %w", err)
	}

	roots := defaultRoots(home, cfg)
	agentRoots := defaultAgentRoots(home, cfg)

	c := cache.New(cache.Config{
		Roots:      roots,
		AgentRoots: agentRoots,
		TTL:        30 * time.Second,
		MaxDepth:   20,
		Logger:     logger,
	})

	statsPath := expandHome(cfg.Usage.StatsPath, home)
	stats, err := usage.OpenStats(statsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open usage stats: %w", err)
	}

	runsPath := filepath.Join(home, ".skrills", "runs.json")
	store, err := runstore.Open(runsPath)
	if err != nil {
		stats.Close()
		return nil, nil, fmt.Errorf("open run store: %w", err)
	}

	cliAdapter := cliadapter.New(cliadapter.Config{
		Binary:        cfg.CLI.Binary,
		AmbientClient: cfg.CLI.Type,
		WorkingDir:    cfg.CLI.WorkingDir,
		Timeout:       cfg.CLITimeout(),
		Logger:        logger,
	}, store)

	h := &protocol.Handler{
		Cache:    c,
		Scorer:   recommend.NewScorer(),
		Stats:    stats,
		Adapters: adapterFactory(home, cfg),
		Runs:     store,
		CLI:      cliAdapter,
		Trace:    protocol.NewTraceRecorder(home),
		Logger:   logger,
	}

	cleanup := func() {
		stats.Close()
	}
	return h, cleanup, nil
}

// defaultRoots builds the ordered skill-root list discovery scans,
// honoring cfg.Sources' include/mirror toggles (spec §6 env vars).
func defaultRoots(home string, cfg *config.Config) []skillsrc.Root {
	var roots []skillsrc.Root
	roots = append(roots, skillsrc.Root{Path: filepath.Join(home, ".codex", "skills"), Source: skillsrc.Codex})
	if cfg.Sources.MirrorSource != "" {
		roots = append(roots, skillsrc.Root{Path: expandHome(cfg.Sources.MirrorSource, home), Source: skillsrc.Mirror})
	}
	if cfg.Sources.IncludeClaude {
		roots = append(roots, skillsrc.Root{Path: filepath.Join(home, ".claude", "skills"), Source: skillsrc.Claude})
	}
	roots = append(roots, skillsrc.Root{Path: copilotSkillsDir(home), Source: skillsrc.Copilot})
	if cfg.Sources.IncludeMarketplace {
		roots = append(roots, skillsrc.Root{Path: filepath.Join(home, ".skrills", "marketplace"), Source: skillsrc.Marketplace})
	}
	roots = append(roots, skillsrc.Root{Path: filepath.Join(home, ".skrills", "cache"), Source: skillsrc.Cache})
	return roots
}

func defaultAgentRoots(home string, cfg *config.Config) []skillsrc.Root {
	if !cfg.Sources.ExposeAgents {
		return nil
	}
	return []skillsrc.Root{
		{Path: filepath.Join(home, ".claude", "agents"), Source: skillsrc.Agent},
		{Path: filepath.Join(home, ".codex", "skills"), Source: skillsrc.Agent},
	}
}

func copilotSkillsDir(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "copilot", "skills")
	}
	if _, err := os.Stat(filepath.Join(home, ".config", "copilot")); err == nil {
		return filepath.Join(home, ".config", "copilot", "skills")
	}
	return filepath.Join(home, ".copilot", "skills")
}

func adapterFactory(home string, cfg *config.Config) protocol.AdapterFactory {
	return func(client string) sync.Adapter {
		switch client {
		case "claude":
			return sync.NewClaudeAdapter(filepath.Join(home, ".claude"))
		case "codex":
			return sync.NewCodexAdapter(filepath.Join(home, ".codex"))
		case "copilot":
			return sync.NewCopilotAdapter(copilotBaseDir(home))
		default:
			return nil
		}
	}
}

func copilotBaseDir(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "copilot")
	}
	if _, err := os.Stat(filepath.Join(home, ".config", "copilot")); err == nil {
		return filepath.Join(home, ".config", "copilot")
	}
	return filepath.Join(home, ".copilot")
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	for _, w := range config.ApplyEnv(cfg) {
		slog.Default().Warn("config: environment override ignored", "detail", w)
	}
	return cfg, nil
}

// --- generic tool subcommand ---------------------------------------

// cmdTool drives any protocol tool (spec §6's table) directly through
// the same Handler.CallTool path the server uses, parsing --flag value
// pairs into the tool's arguments map.
func cmdTool(name string, args []string) int {
	canonical := strings.ReplaceAll(name, "_", "-")
	toolArgs, err := parseFlagArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	cfg, err := loadConfig(configPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return exitError
	}
	logger := newLogger(cfg.Server.LogLevel)

	h, cleanup, err := buildHandler(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer cleanup()

	ctx := context.Background()
	result, err := h.CallTool(ctx, canonical, toolArgs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	printToolResult(result)
	if result.IsError {
		return exitError
	}
	return exitOK
}

func printToolResult(result protocol.CallToolResult) {
	if result.StructuredContent != nil {
		data, err := json.MarshalIndent(result.StructuredContent, "", "  ")
		if err == nil {
			fmt.Println(string(data))
			return
		}
	}
	for _, c := range result.Content {
		fmt.Println(c.Text)
	}
}

// parseFlagArgs turns ["--uri", "X", "--transitive", "true", "--limit",
// "5"] into {"uri": "X", "transitive": true, "limit": 5.0}, matching the
// JSON types argString/argBool/argFloat/argInt expect from a decoded
// JSON-RPC params object.
func parseFlagArgs(args []string) (map[string]any, error) {
	out := map[string]any{}
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument: %s (flags must start with --)", arg)
		}
		key := strings.TrimPrefix(arg, "--")
		var value string
		if eq := strings.IndexByte(key, '='); eq >= 0 {
			value = key[eq+1:]
			key = key[:eq]
			i++
		} else if i+1 < len(args) {
			value = args[i+1]
			i += 2
		} else {
			out[key] = true
			i++
			continue
		}
		out[key] = coerceFlagValue(value)
	}
	return out, nil
}

func coerceFlagValue(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}

func configPath() string {
	if v := os.Getenv("SKRILLS_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "skrills.toml"
	}
	return filepath.Join(home, ".skrills", "config.toml")
}

// --- serve ---------------------------------------------------------

func cmdServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	httpAddr := fs.String("http", "", "listen on this address for HTTP JSON-RPC instead of stdio")
	cfgPath := fs.String("config", "", "path to config file (default ~/.skrills/config.toml)")
	tlsAuto := fs.Bool("tls-auto", false, "serve HTTP over TLS using the cert/key in the TLS directory")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	path := *cfgPath
	if path == "" {
		path = configPath()
	}
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return exitError
	}
	logger := newLogger(cfg.Server.LogLevel)

	h, cleanup, err := buildHandler(cfg, logger)
	if err != nil {
		logger.Error("failed to build handler", "error", err)
		return exitError
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandlers(ctx, cancel, logger)

	sched := scheduler.NewScheduler(newSchedulerExecutor(h, logger), logger)
	registerDefaultJobs(sched, cfg)
	if err := sched.Start(ctx); err != nil {
		logger.Warn("scheduler failed to start", "error", err)
	}
	defer sched.Stop()

	cfgWatcher := config.NewWatcher(cfg, path, 5*time.Second, logger, h.Cache.Invalidate)
	cfgWatcher.Start()
	defer cfgWatcher.Stop()

	listenAddr := *httpAddr
	if listenAddr == "" {
		listenAddr = cfg.Server.ListenAddr
	}

	if listenAddr != "" && listenAddr != "-" {
		return serveHTTP(ctx, h, listenAddr, *tlsAuto, logger)
	}
	return serveStdio(ctx, h, logger)
}

func serveStdio(ctx context.Context, h *protocol.Handler, logger *slog.Logger) int {
	logger.Info("skrills server listening on stdio")
	if err := protocol.ServeStdio(ctx, h, os.Stdin, os.Stdout, logger); err != nil && ctx.Err() == nil {
		logger.Error("stdio server error", "error", err)
		return exitError
	}
	return exitOK
}

func serveHTTP(ctx context.Context, h *protocol.Handler, addr string, tlsAuto bool, logger *slog.Logger) int {
	hh := &protocol.HTTPHandler{H: h, Logger: logger}
	srv := newHTTPServer(addr, hh.Routes())

	errCh := make(chan error, 1)
	go func() {
		logger.Info("skrills server listening on http", "addr", addr, "tls", tlsAuto)
		if tlsAuto {
			errCh <- serveTLSAuto(srv, logger)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return exitOK
	case err := <-errCh:
		if err != nil && err.Error() != "http: Server closed" {
			logger.Error("http server error", "error", err)
			return exitError
		}
		return exitOK
	}
}

// --- cert ------------------------------------------------------------

func cmdCert(args []string) int {
	if len(args) == 0 || args[0] != "status" {
		fmt.Fprintln(os.Stderr, "usage: skrills cert status [--format json]")
		return exitUsage
	}
	fs := flag.NewFlagSet("cert status", flag.ContinueOnError)
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args[1:]); err != nil {
		return exitUsage
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	_ = home
	status, err := certs.GetStatus(certs.FileStore{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	if *format == "json" {
		data, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(data))
		return exitOK
	}
	fmt.Printf("TLS directory: %s\n", status.TLSDir)
	fmt.Printf("cert: exists=%v valid=%v self_signed=%v\n", status.Cert.Exists, status.Cert.Valid, status.Cert.SelfSigned)
	if status.Cert.DaysUntilExpiry != nil {
		fmt.Printf("days until expiry: %d\n", *status.Cert.DaysUntilExpiry)
	}
	fmt.Printf("key: exists=%v\n", status.KeyExists)
	return exitOK
}

// --- setup -----------------------------------------------------------

func cmdSetup(args []string) int {
	cfg, _, _, err := wizard.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup:", err)
		return exitError
	}
	if err := cfg.Save(configPath()); err != nil {
		fmt.Fprintln(os.Stderr, "setup:", err)
		return exitError
	}
	return exitOK
}
