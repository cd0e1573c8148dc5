package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// CopilotAdapter reads and writes a GitHub Copilot CLI home directory:
// skills and agents under skills/<name>/SKILL.md and agents/, MCP
// servers and preferences in mcp-config.json and config.json. Copilot
// has no commands or hooks surface.
type CopilotAdapter struct {
	root string
}

// NewCopilotAdapter returns an adapter rooted at dir, resolved by the
// caller from $XDG_CONFIG_HOME/copilot, ~/.config/copilot, or
// ~/.copilot in that order.
func NewCopilotAdapter(dir string) *CopilotAdapter {
	return &CopilotAdapter{root: dir}
}

// CopilotHome resolves the Copilot config directory following the same
// precedence other XDG-aware CLIs in this ecosystem use: an explicit
// $XDG_CONFIG_HOME/copilot, else ~/.config/copilot, else ~/.copilot.
func CopilotHome(xdgConfigHome, home string) string {
	if xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "copilot")
	}
	if home == "" {
		return ".copilot"
	}
	candidate := filepath.Join(home, ".config", "copilot")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return filepath.Join(home, ".copilot")
}

func (a *CopilotAdapter) Name() string { return "copilot" }
func (a *CopilotAdapter) Root() string { return a.root }

func (a *CopilotAdapter) Capabilities() Capabilities {
	return Capabilities{
		Commands:     false,
		Skills:       true,
		MCPServers:   true,
		Preferences:  true,
		Hooks:        false,
		Agents:       true,
		Instructions: false,
	}
}

func (a *CopilotAdapter) ReadCommands() ([]Command, error) { return nil, nil }
func (a *CopilotAdapter) WriteCommands(items []Command, dryRun bool) (WriteReport, error) {
	return unsupportedReport(FieldCommands, len(items)), nil
}

func (a *CopilotAdapter) ReadSkills() ([]SkillFile, error) {
	base := filepath.Join(a.root, "skills")
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("copilot: read skills dir: %w", err)
	}
	var out []SkillFile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(base, e.Name(), "SKILL.md")
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		out = append(out, SkillFile{Name: e.Name(), Raw: raw, SourcePath: path, Hash: hashBytes(raw)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (a *CopilotAdapter) WriteSkills(items []SkillFile, dryRun bool) (WriteReport, error) {
	rep := WriteReport{}
	for _, s := range items {
		rel := sanitizeRelPath(s.Name)
		if rel == "" {
			continue
		}
		path := filepath.Join(a.root, "skills", rel, "SKILL.md")
		wrote, skip, err := writeIfChanged(path, s.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("copilot: write skill %s: %w", s.Name, err)
		}
		if skip != nil {
			skip.Field = FieldSkills
			rep.Skipped = append(rep.Skipped, *skip)
			continue
		}
		for _, comp := range s.Companions {
			compPath := filepath.Join(a.root, "skills", rel, sanitizeRelPath(comp.RelPath))
			if _, _, err := writeIfChanged(compPath, comp.Raw, dryRun); err != nil {
				return rep, fmt.Errorf("copilot: write companion %s: %w", comp.RelPath, err)
			}
		}
		if wrote {
			rep.Written++
		}
	}
	return rep, nil
}

func (a *CopilotAdapter) mcpConfigPath() string { return filepath.Join(a.root, "mcp-config.json") }
func (a *CopilotAdapter) configPath() string    { return filepath.Join(a.root, "config.json") }

func (a *CopilotAdapter) readJSON(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("copilot: read %s: %w", path, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("copilot: parse %s: %w", path, err)
	}
	return m, nil
}

func (a *CopilotAdapter) writeJSON(path string, m map[string]any, dryRun bool) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("copilot: marshal %s: %w", path, err)
	}
	data = append(data, '\n')
	if _, _, err := writeIfChanged(path, data, dryRun); err != nil {
		return fmt.Errorf("copilot: write %s: %w", path, err)
	}
	return nil
}

func (a *CopilotAdapter) ReadMCPServers() ([]McpServer, error) {
	m, err := a.readJSON(a.mcpConfigPath())
	if err != nil {
		return nil, err
	}
	servers, _ := m["mcpServers"].(map[string]any)
	out := make([]McpServer, 0, len(servers))
	for name, v := range servers {
		entry, _ := v.(map[string]any)
		s := McpServer{Name: name, Enabled: true}
		if cmd, ok := entry["command"].(string); ok {
			s.Command = cmd
			s.Transport = TransportStdio
		}
		if url, ok := entry["url"].(string); ok {
			s.URL = url
			s.Transport = TransportHTTP
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (a *CopilotAdapter) WriteMCPServers(items []McpServer, dryRun bool) (WriteReport, error) {
	m, err := a.readJSON(a.mcpConfigPath())
	if err != nil {
		return WriteReport{}, err
	}
	servers, _ := m["mcpServers"].(map[string]any)
	if servers == nil {
		servers = map[string]any{}
	}
	rep := WriteReport{}
	for _, s := range items {
		entry := map[string]any{}
		if s.Transport == TransportHTTP {
			entry["url"] = s.URL
		} else {
			entry["command"] = s.Command
			if len(s.Args) > 0 {
				entry["args"] = s.Args
			}
			if len(s.Env) > 0 {
				entry["env"] = s.Env
			}
		}
		servers[s.Name] = entry
		rep.Written++
	}
	m["mcpServers"] = servers
	if err := a.writeJSON(a.mcpConfigPath(), m, dryRun); err != nil {
		return rep, err
	}
	return rep, nil
}

// securityFields are preserved verbatim across preference writes per
// spec: Copilot's config.json carries auth/security keys no sync
// operation should ever overwrite.
var securityFields = []string{"auth", "token", "trusted_folders", "security"}

func (a *CopilotAdapter) ReadPreferences() (Preferences, error) {
	m, err := a.readJSON(a.configPath())
	if err != nil {
		return Preferences{}, err
	}
	model, _ := m["model"].(string)
	extra := map[string]any{}
	for k, v := range m {
		if k == "model" {
			continue
		}
		extra[k] = v
	}
	return Preferences{Model: model, Extra: extra}, nil
}

func (a *CopilotAdapter) WritePreferences(p Preferences, dryRun bool) (WriteReport, error) {
	m, err := a.readJSON(a.configPath())
	if err != nil {
		return WriteReport{}, err
	}
	preserved := map[string]any{}
	for _, f := range securityFields {
		if v, ok := m[f]; ok {
			preserved[f] = v
		}
	}
	for k, v := range p.Extra {
		isSecurity := false
		for _, f := range securityFields {
			if k == f {
				isSecurity = true
				break
			}
		}
		if !isSecurity {
			m[k] = v
		}
	}
	for k, v := range preserved {
		m[k] = v
	}
	if p.Model != "" {
		m["model"] = p.Model
	}
	if err := a.writeJSON(a.configPath(), m, dryRun); err != nil {
		return WriteReport{}, err
	}
	return WriteReport{Written: 1}, nil
}

func (a *CopilotAdapter) ReadHooks() ([]Hook, error) { return nil, nil }
func (a *CopilotAdapter) WriteHooks(items []Hook, dryRun bool) (WriteReport, error) {
	return unsupportedReport(FieldHooks, len(items)), nil
}

func (a *CopilotAdapter) ReadAgents() ([]AgentFile, error) {
	return readDirFilesSimple(filepath.Join(a.root, "agents"), ".md")
}

func (a *CopilotAdapter) WriteAgents(items []AgentFile, dryRun bool) (WriteReport, error) {
	dir := filepath.Join(a.root, "agents")
	rep := WriteReport{}
	for _, ag := range items {
		rel := sanitizeRelPath(ag.Name)
		if rel == "" {
			continue
		}
		path := filepath.Join(dir, rel+".md")
		wrote, skip, err := writeIfChanged(path, ag.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("copilot: write agent %s: %w", ag.Name, err)
		}
		if skip != nil {
			skip.Field = FieldAgents
			rep.Skipped = append(rep.Skipped, *skip)
			continue
		}
		if wrote {
			rep.Written++
		}
	}
	return rep, nil
}

func (a *CopilotAdapter) ReadInstructions() ([]Instruction, error) { return nil, nil }
func (a *CopilotAdapter) WriteInstructions(items []Instruction, dryRun bool) (WriteReport, error) {
	return unsupportedReport(FieldInstructions, len(items)), nil
}
