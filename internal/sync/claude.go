package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ClaudeAdapter reads and writes a Claude Code home directory:
// commands under commands/, skills under skills/<name>/SKILL.md,
// agents under agents/, hooks and MCP servers in settings.json's
// "hooks" and "mcpServers" keys, preferences in settings.json's
// "model" and arbitrary other keys, and instructions in CLAUDE.md.
type ClaudeAdapter struct {
	root string
}

// NewClaudeAdapter returns an adapter rooted at dir (typically
// ~/.claude).
func NewClaudeAdapter(dir string) *ClaudeAdapter {
	return &ClaudeAdapter{root: dir}
}

func (a *ClaudeAdapter) Name() string { return "claude" }
func (a *ClaudeAdapter) Root() string { return a.root }

func (a *ClaudeAdapter) Capabilities() Capabilities {
	return Capabilities{
		Commands:     true,
		Skills:       true,
		MCPServers:   true,
		Preferences:  true,
		Hooks:        true,
		Agents:       true,
		Instructions: true,
	}
}

func (a *ClaudeAdapter) settingsPath() string { return filepath.Join(a.root, "settings.json") }

type claudeSettings struct {
	Model      string                     `json:"model,omitempty"`
	MCPServers map[string]claudeMCPServer `json:"mcpServers,omitempty"`
	Hooks      map[string]json.RawMessage `json:"hooks,omitempty"`
	Extra      map[string]any             `json:"-"`
}

type claudeMCPServer struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (a *ClaudeAdapter) readSettings() (claudeSettings, map[string]any, error) {
	raw, err := os.ReadFile(a.settingsPath())
	if os.IsNotExist(err) {
		return claudeSettings{}, map[string]any{}, nil
	}
	if err != nil {
		return claudeSettings{}, nil, fmt.Errorf("claude: read settings.json: %w", err)
	}
	var s claudeSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return claudeSettings{}, nil, fmt.Errorf("claude: parse settings.json: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		generic = map[string]any{}
	}
	return s, generic, nil
}

func (a *ClaudeAdapter) ReadCommands() ([]Command, error) {
	return readDirFiles(filepath.Join(a.root, "commands"), ".md", func(name string, raw []byte, path string, info os.FileInfo) Command {
		return Command{Name: name, Raw: raw, SourcePath: path, Mtime: info.ModTime(), Hash: hashBytes(raw)}
	})
}

func (a *ClaudeAdapter) WriteCommands(items []Command, dryRun bool) (WriteReport, error) {
	dir := filepath.Join(a.root, "commands")
	rep := WriteReport{}
	for _, c := range items {
		rel := sanitizeRelPath(c.Name)
		if rel == "" {
			continue
		}
		path := filepath.Join(dir, rel+".md")
		wrote, skip, err := writeIfChanged(path, c.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("claude: write command %s: %w", c.Name, err)
		}
		if skip != nil {
			skip.Field = FieldCommands
			rep.Skipped = append(rep.Skipped, *skip)
			continue
		}
		if wrote {
			rep.Written++
		}
	}
	return rep, nil
}

func (a *ClaudeAdapter) ReadSkills() ([]SkillFile, error) {
	base := filepath.Join(a.root, "skills")
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claude: read skills dir: %w", err)
	}
	var out []SkillFile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		skillPath := filepath.Join(base, e.Name(), "SKILL.md")
		raw, err := os.ReadFile(skillPath)
		if err != nil {
			continue
		}
		out = append(out, SkillFile{Name: e.Name(), Raw: raw, SourcePath: skillPath, Hash: hashBytes(raw)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (a *ClaudeAdapter) WriteSkills(items []SkillFile, dryRun bool) (WriteReport, error) {
	rep := WriteReport{}
	for _, s := range items {
		rel := sanitizeRelPath(s.Name)
		if rel == "" {
			continue
		}
		path := filepath.Join(a.root, "skills", rel, "SKILL.md")
		wrote, skip, err := writeIfChanged(path, s.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("claude: write skill %s: %w", s.Name, err)
		}
		if skip != nil {
			skip.Field = FieldSkills
			rep.Skipped = append(rep.Skipped, *skip)
			continue
		}
		for _, comp := range s.Companions {
			compPath := filepath.Join(a.root, "skills", rel, sanitizeRelPath(comp.RelPath))
			if _, _, err := writeIfChanged(compPath, comp.Raw, dryRun); err != nil {
				return rep, fmt.Errorf("claude: write companion %s: %w", comp.RelPath, err)
			}
		}
		if wrote {
			rep.Written++
		}
	}
	return rep, nil
}

func (a *ClaudeAdapter) ReadMCPServers() ([]McpServer, error) {
	s, _, err := a.readSettings()
	if err != nil {
		return nil, err
	}
	out := make([]McpServer, 0, len(s.MCPServers))
	for name, m := range s.MCPServers {
		kind := TransportStdio
		if m.Type == "http" || m.Type == "sse" {
			kind = TransportHTTP
		}
		out = append(out, McpServer{
			Name: name, Transport: kind, Command: m.Command, Args: m.Args,
			Env: m.Env, URL: m.URL, Headers: m.Headers, Enabled: true,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (a *ClaudeAdapter) WriteMCPServers(items []McpServer, dryRun bool) (WriteReport, error) {
	_, generic, err := a.readSettings()
	if err != nil {
		return WriteReport{}, err
	}
	existing, _ := generic["mcpServers"].(map[string]any)
	if existing == nil {
		existing = map[string]any{}
	}
	rep := WriteReport{}
	for _, m := range items {
		entry := map[string]any{}
		if m.Transport == TransportHTTP {
			entry["type"] = "http"
			entry["url"] = m.URL
			if len(m.Headers) > 0 {
				entry["headers"] = m.Headers
			}
		} else {
			entry["command"] = m.Command
			if len(m.Args) > 0 {
				entry["args"] = m.Args
			}
			if len(m.Env) > 0 {
				entry["env"] = m.Env
			}
		}
		existing[m.Name] = entry
		rep.Written++
	}
	generic["mcpServers"] = existing
	return a.writeGenericSettings(generic, rep, dryRun)
}

func (a *ClaudeAdapter) ReadPreferences() (Preferences, error) {
	s, generic, err := a.readSettings()
	if err != nil {
		return Preferences{}, err
	}
	delete(generic, "mcpServers")
	delete(generic, "hooks")
	delete(generic, "model")
	return Preferences{Model: s.Model, Extra: generic}, nil
}

func (a *ClaudeAdapter) WritePreferences(p Preferences, dryRun bool) (WriteReport, error) {
	_, generic, err := a.readSettings()
	if err != nil {
		return WriteReport{}, err
	}
	for k, v := range p.Extra {
		generic[k] = v
	}
	if p.Model != "" {
		generic["model"] = p.Model
	}
	return a.writeGenericSettings(generic, WriteReport{Written: 1}, dryRun)
}

func (a *ClaudeAdapter) ReadHooks() ([]Hook, error) {
	s, _, err := a.readSettings()
	if err != nil {
		return nil, err
	}
	out := make([]Hook, 0, len(s.Hooks))
	for name, raw := range s.Hooks {
		out = append(out, Hook{Name: name, Raw: raw, Hash: hashBytes(raw)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (a *ClaudeAdapter) WriteHooks(items []Hook, dryRun bool) (WriteReport, error) {
	_, generic, err := a.readSettings()
	if err != nil {
		return WriteReport{}, err
	}
	existing, _ := generic["hooks"].(map[string]any)
	if existing == nil {
		existing = map[string]any{}
	}
	rep := WriteReport{}
	for _, h := range items {
		var v any
		if err := json.Unmarshal(h.Raw, &v); err != nil {
			rep.Skipped = append(rep.Skipped, SkipReason{Kind: SkipUnsupported, Item: h.Name, Field: FieldHooks})
			continue
		}
		existing[h.Name] = v
		rep.Written++
	}
	generic["hooks"] = existing
	return a.writeGenericSettings(generic, rep, dryRun)
}

func (a *ClaudeAdapter) ReadAgents() ([]AgentFile, error) {
	return readDirFilesSimple(filepath.Join(a.root, "agents"), ".md")
}

func (a *ClaudeAdapter) WriteAgents(items []AgentFile, dryRun bool) (WriteReport, error) {
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
			return rep, fmt.Errorf("claude: write agent %s: %w", ag.Name, err)
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

func (a *ClaudeAdapter) ReadInstructions() ([]Instruction, error) {
	path := filepath.Join(a.root, "CLAUDE.md")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claude: read CLAUDE.md: %w", err)
	}
	return []Instruction{{Name: "CLAUDE", Raw: raw, SourcePath: path, Hash: hashBytes(raw)}}, nil
}

func (a *ClaudeAdapter) WriteInstructions(items []Instruction, dryRun bool) (WriteReport, error) {
	rep := WriteReport{}
	for _, inst := range items {
		path := filepath.Join(a.root, "CLAUDE.md")
		wrote, skip, err := writeIfChanged(path, inst.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("claude: write instructions: %w", err)
		}
		if skip != nil {
			skip.Field = FieldInstructions
			rep.Skipped = append(rep.Skipped, *skip)
			continue
		}
		if wrote {
			rep.Written++
		}
	}
	return rep, nil
}

func (a *ClaudeAdapter) writeGenericSettings(generic map[string]any, rep WriteReport, dryRun bool) (WriteReport, error) {
	data, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return rep, fmt.Errorf("claude: marshal settings.json: %w", err)
	}
	data = append(data, '\n')
	if _, _, err := writeIfChanged(a.settingsPath(), data, dryRun); err != nil {
		return rep, fmt.Errorf("claude: write settings.json: %w", err)
	}
	return rep, nil
}
