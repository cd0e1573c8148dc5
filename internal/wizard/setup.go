package wizard

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client identifies a supported coding assistant integration target.
type Client int

const (
	ClientClaude Client = iota
	ClientCodex
)

func (c Client) String() string {
	if c == ClientCodex {
		return "codex"
	}
	return "claude"
}

// BaseDir returns the client's home-relative config directory.
func (c Client) BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	if c == ClientCodex {
		return filepath.Join(home, ".codex"), nil
	}
	return filepath.Join(home, ".claude"), nil
}

// IsSetup reports whether skrills is already registered for client.
func IsSetup(c Client) bool {
	base, err := c.BaseDir()
	if err != nil {
		return false
	}

	switch c {
	case ClientClaude:
		if data, err := os.ReadFile(filepath.Join(base, ".mcp.json")); err == nil {
			if containsSkrillsServer(data) {
				return true
			}
		}
		if data, err := os.ReadFile(filepath.Join(base, "hooks", "prompt.on_user_prompt_submit")); err == nil {
			return strings.Contains(string(data), "skrills")
		}
	case ClientCodex:
		if data, err := os.ReadFile(filepath.Join(base, "AGENTS.md")); err == nil {
			if strings.Contains(string(data), agentsMarker) {
				return true
			}
		}
		if data, err := os.ReadFile(filepath.Join(base, "config.toml")); err == nil {
			return strings.Contains(string(data), "[mcp_servers.skrills]")
		}
	}
	return false
}

func containsSkrillsServer(mcpJSON []byte) bool {
	var doc map[string]any
	if err := json.Unmarshal(mcpJSON, &doc); err != nil {
		return false
	}
	servers, ok := doc["mcpServers"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = servers["skrills"]
	return ok
}

const agentsMarker = "<!-- skrills-integration-start -->"

// Apply performs the filesystem/MCP-registration side effects of a setup
// run for the given clients: installing the binary into binDir, wiring
// the Claude Code prompt hook and MCP registration, or Codex's AGENTS.md
// and config.toml MCP entry.
func Apply(clients []Client, binDir string, currentExe string) error {
	for _, c := range clients {
		switch c {
		case ClientClaude:
			if err := setupClaude(binDir, currentExe); err != nil {
				return fmt.Errorf("setup claude: %w", err)
			}
		case ClientCodex:
			if err := setupCodex(binDir, currentExe); err != nil {
				return fmt.Errorf("setup codex: %w", err)
			}
		}
	}
	return nil
}

func installBinary(binDir, currentExe string) (string, error) {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("create bin dir %s: %w", binDir, err)
	}
	target := filepath.Join(binDir, "skrills")
	if target == currentExe {
		return target, nil
	}
	data, err := os.ReadFile(currentExe)
	if err != nil {
		return "", fmt.Errorf("read current executable: %w", err)
	}
	if err := os.WriteFile(target, data, 0o755); err != nil {
		return "", fmt.Errorf("write binary to %s: %w", target, err)
	}
	return target, nil
}

func setupClaude(binDir, currentExe string) error {
	base, err := ClientClaude.BaseDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(base, "hooks"), 0o755); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}

	target, err := installBinary(binDir, currentExe)
	if err != nil {
		return err
	}

	if err := writeClaudeHook(base, target); err != nil {
		return err
	}
	return registerClaudeMCP(base, target)
}

func writeClaudeHook(baseDir, binPath string) error {
	hookPath := filepath.Join(baseDir, "hooks", "prompt.on_user_prompt_submit")
	content := fmt.Sprintf(`#!/usr/bin/env bash
set -euo pipefail

BIN="%s"
CMD_ARGS=(emit-autoload)

PROMPT_INPUT=""
if [ -n "${SKRILLS_PROMPT:-}" ]; then
  PROMPT_INPUT="$SKRILLS_PROMPT"
fi

if [ -n "$PROMPT_INPUT" ]; then
  CMD_ARGS+=(--prompt "$PROMPT_INPUT")
fi

if [ -x "$BIN" ]; then
  "$BIN" "${CMD_ARGS[@]}"
else
  echo "{}" && exit 0
fi
`, binPath)

	return os.WriteFile(hookPath, []byte(content), 0o755)
}

func registerClaudeMCP(baseDir, binPath string) error {
	// Prefer the `claude mcp add` CLI if it's on PATH.
	cmd := exec.Command("claude", "mcp", "add", "--transport", "stdio", "skrills", "--", binPath, "serve")
	if err := cmd.Run(); err == nil {
		return nil
	}

	mcpPath := filepath.Join(baseDir, ".mcp.json")
	doc := map[string]any{}
	if data, err := os.ReadFile(mcpPath); err == nil {
		_ = json.Unmarshal(data, &doc)
	}

	servers, ok := doc["mcpServers"].(map[string]any)
	if !ok {
		servers = map[string]any{}
	}
	servers["skrills"] = map[string]any{
		"type":    "stdio",
		"command": binPath,
		"args":    []string{"serve"},
	}
	doc["mcpServers"] = servers

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal .mcp.json: %w", err)
	}
	return os.WriteFile(mcpPath, out, 0o644)
}

func setupCodex(binDir, currentExe string) error {
	base, err := ClientCodex.BaseDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("create codex base dir: %w", err)
	}

	target, err := installBinary(binDir, currentExe)
	if err != nil {
		return err
	}

	if err := installAgentsMD(base); err != nil {
		return err
	}
	return registerCodexMCP(base, target)
}

const agentsTemplate = `
<!-- skrills-integration-start -->
# Skrills Autoload Protocol

Call the ` + "`search-skills-fuzzy`" + ` or ` + "`recommend-skills-smart`" + ` MCP tool before
responding to a user request, to load relevant skill instructions first.
<!-- skrills-integration-end -->
`

func installAgentsMD(baseDir string) error {
	path := filepath.Join(baseDir, "AGENTS.md")
	existing, _ := os.ReadFile(path)
	if strings.Contains(string(existing), agentsMarker) {
		return nil
	}

	var next string
	if len(existing) == 0 {
		next = agentsTemplate[1:]
	} else {
		next = string(existing) + "\n" + agentsTemplate[1:]
	}
	return os.WriteFile(path, []byte(next), 0o644)
}

func registerCodexMCP(baseDir, binPath string) error {
	path := filepath.Join(baseDir, "config.toml")
	existing, _ := os.ReadFile(path)
	if strings.Contains(string(existing), "[mcp_servers.skrills]") {
		return nil
	}

	entry := fmt.Sprintf("\n# Skrills MCP server for skill management\n[mcp_servers.skrills]\ncommand = %q\nargs = [\"serve\"]\n", binPath)
	content := string(existing)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		content += "\n"
	}
	content += entry
	return os.WriteFile(path, []byte(content), 0o644)
}
