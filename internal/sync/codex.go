package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const agentSkillPrefix = "agent-"

// CodexAdapter reads and writes a Codex CLI home directory: prompts
// under prompts/ (commands), skills under skills/<name>/SKILL.md,
// agents emulated as skills/agent-<name>/SKILL.md, MCP servers and
// preferences in config.json, and instructions in AGENTS.md. Codex has
// no native hooks.
type CodexAdapter struct {
	root string
}

// NewCodexAdapter returns an adapter rooted at dir (typically
// ~/.codex).
func NewCodexAdapter(dir string) *CodexAdapter {
	return &CodexAdapter{root: dir}
}

func (a *CodexAdapter) Name() string { return "codex" }
func (a *CodexAdapter) Root() string { return a.root }

func (a *CodexAdapter) Capabilities() Capabilities {
	return Capabilities{
		Commands:     true,
		Skills:       true,
		MCPServers:   true,
		Preferences:  true,
		Hooks:        false,
		Agents:       true,
		Instructions: true,
	}
}

func (a *CodexAdapter) configJSONPath() string { return filepath.Join(a.root, "config.json") }
func (a *CodexAdapter) configTOMLPath() string { return filepath.Join(a.root, "config.toml") }

func (a *CodexAdapter) readConfigJSON() (map[string]any, error) {
	raw, err := os.ReadFile(a.configJSONPath())
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("codex: read config.json: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("codex: parse config.json: %w", err)
	}
	return m, nil
}

func (a *CodexAdapter) writeConfigJSON(m map[string]any, dryRun bool) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("codex: marshal config.json: %w", err)
	}
	data = append(data, '\n')
	if _, _, err := writeIfChanged(a.configJSONPath(), data, dryRun); err != nil {
		return fmt.Errorf("codex: write config.json: %w", err)
	}
	return nil
}

func (a *CodexAdapter) ReadCommands() ([]Command, error) {
	return readDirFiles(filepath.Join(a.root, "prompts"), ".md", func(name string, raw []byte, path string, info os.FileInfo) Command {
		return Command{Name: name, Raw: raw, SourcePath: path, Mtime: info.ModTime(), Hash: hashBytes(raw)}
	})
}

func (a *CodexAdapter) WriteCommands(items []Command, dryRun bool) (WriteReport, error) {
	dir := filepath.Join(a.root, "prompts")
	rep := WriteReport{}
	for _, c := range items {
		rel := sanitizeRelPath(c.Name)
		if rel == "" {
			continue
		}
		path := filepath.Join(dir, rel+".md")
		wrote, skip, err := writeIfChanged(path, c.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("codex: write prompt %s: %w", c.Name, err)
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

func (a *CodexAdapter) listSkillDirs() ([]string, error) {
	base := filepath.Join(a.root, "skills")
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("codex: read skills dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (a *CodexAdapter) ReadSkills() ([]SkillFile, error) {
	names, err := a.listSkillDirs()
	if err != nil {
		return nil, err
	}
	var out []SkillFile
	for _, name := range names {
		if strings.HasPrefix(name, agentSkillPrefix) {
			continue
		}
		path := filepath.Join(a.root, "skills", name, "SKILL.md")
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		out = append(out, SkillFile{Name: name, Raw: raw, SourcePath: path, Hash: hashBytes(raw)})
	}
	return out, nil
}

func (a *CodexAdapter) WriteSkills(items []SkillFile, dryRun bool) (WriteReport, error) {
	rep := WriteReport{}
	anyWritten := false
	for _, s := range items {
		rel := sanitizeRelPath(s.Name)
		if rel == "" {
			continue
		}
		path := filepath.Join(a.root, "skills", rel, "SKILL.md")
		wrote, skip, err := writeIfChanged(path, s.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("codex: write skill %s: %w", s.Name, err)
		}
		if skip != nil {
			skip.Field = FieldSkills
			rep.Skipped = append(rep.Skipped, *skip)
			continue
		}
		for _, comp := range s.Companions {
			compPath := filepath.Join(a.root, "skills", rel, sanitizeRelPath(comp.RelPath))
			if _, _, err := writeIfChanged(compPath, comp.Raw, dryRun); err != nil {
				return rep, fmt.Errorf("codex: write companion %s: %w", comp.RelPath, err)
			}
		}
		if wrote {
			rep.Written++
			anyWritten = true
		}
	}
	if anyWritten && !dryRun {
		if err := a.ensureSkillsFeatureFlag(); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// ensureSkillsFeatureFlag rewrites config.toml so a [features] section
// exists and contains "skills = true". It decodes the file with a real
// TOML parser rather than scanning lines, so a "[features]"-looking
// string inside a multi-line value can never be misread as a table
// header; the tradeoff is that free-floating comments are not
// preserved across the rewrite.
func (a *CodexAdapter) ensureSkillsFeatureFlag() error {
	raw, err := os.ReadFile(a.configTOMLPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("codex: read config.toml: %w", err)
	}

	doc := map[string]any{}
	if len(raw) > 0 {
		if _, err := toml.Decode(string(raw), &doc); err != nil {
			return fmt.Errorf("codex: parse config.toml: %w", err)
		}
	}

	features, _ := doc["features"].(map[string]any)
	if features == nil {
		features = map[string]any{}
	}
	if skills, ok := features["skills"].(bool); ok && skills {
		return nil
	}
	features["skills"] = true
	doc["features"] = features

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("codex: encode config.toml: %w", err)
	}
	if err := writeAtomic(a.configTOMLPath(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("codex: rewrite config.toml: %w", err)
	}
	return nil
}

func (a *CodexAdapter) ReadMCPServers() ([]McpServer, error) {
	m, err := a.readConfigJSON()
	if err != nil {
		return nil, err
	}
	servers, _ := m["mcpServers"].(map[string]any)
	out := make([]McpServer, 0, len(servers))
	for name, v := range servers {
		entry, _ := v.(map[string]any)
		server := McpServer{Name: name, Enabled: true}
		if s, ok := entry["command"].(string); ok {
			server.Command = s
			server.Transport = TransportStdio
		}
		if s, ok := entry["url"].(string); ok {
			server.URL = s
			server.Transport = TransportHTTP
		}
		if args, ok := entry["args"].([]any); ok {
			for _, a := range args {
				if s, ok := a.(string); ok {
					server.Args = append(server.Args, s)
				}
			}
		}
		if env, ok := entry["env"].(map[string]any); ok {
			server.Env = map[string]string{}
			for k, v := range env {
				if s, ok := v.(string); ok {
					server.Env[k] = s
				}
			}
		}
		out = append(out, server)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (a *CodexAdapter) WriteMCPServers(items []McpServer, dryRun bool) (WriteReport, error) {
	m, err := a.readConfigJSON()
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
			if len(s.Headers) > 0 {
				entry["headers"] = s.Headers
			}
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
	if err := a.writeConfigJSON(m, dryRun); err != nil {
		return rep, err
	}
	return rep, nil
}

func (a *CodexAdapter) ReadPreferences() (Preferences, error) {
	m, err := a.readConfigJSON()
	if err != nil {
		return Preferences{}, err
	}
	model, _ := m["model"].(string)
	delete(m, "mcpServers")
	delete(m, "model")
	return Preferences{Model: model, Extra: m}, nil
}

func (a *CodexAdapter) WritePreferences(p Preferences, dryRun bool) (WriteReport, error) {
	m, err := a.readConfigJSON()
	if err != nil {
		return WriteReport{}, err
	}
	for k, v := range p.Extra {
		m[k] = v
	}
	if p.Model != "" {
		m["model"] = p.Model
	}
	if err := a.writeConfigJSON(m, dryRun); err != nil {
		return WriteReport{}, err
	}
	return WriteReport{Written: 1}, nil
}

func (a *CodexAdapter) ReadHooks() ([]Hook, error) { return nil, nil }

func (a *CodexAdapter) WriteHooks(items []Hook, dryRun bool) (WriteReport, error) {
	return unsupportedReport(FieldHooks, len(items)), nil
}

// ReadAgents strips the agent- prefix from skills/agent-<name>/SKILL.md
// entries, guaranteeing round-trip preservation with WriteAgents.
func (a *CodexAdapter) ReadAgents() ([]AgentFile, error) {
	names, err := a.listSkillDirs()
	if err != nil {
		return nil, err
	}
	var out []AgentFile
	for _, name := range names {
		if !strings.HasPrefix(name, agentSkillPrefix) {
			continue
		}
		path := filepath.Join(a.root, "skills", name, "SKILL.md")
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		out = append(out, AgentFile{
			Name:       strings.TrimPrefix(name, agentSkillPrefix),
			Raw:        raw,
			SourcePath: path,
			Hash:       hashBytes(raw),
		})
	}
	return out, nil
}

func (a *CodexAdapter) WriteAgents(items []AgentFile, dryRun bool) (WriteReport, error) {
	rep := WriteReport{}
	anyWritten := false
	for _, ag := range items {
		rel := sanitizeRelPath(ag.Name)
		if rel == "" {
			continue
		}
		path := filepath.Join(a.root, "skills", agentSkillPrefix+rel, "SKILL.md")
		wrote, skip, err := writeIfChanged(path, ag.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("codex: write agent %s: %w", ag.Name, err)
		}
		if skip != nil {
			skip.Field = FieldAgents
			rep.Skipped = append(rep.Skipped, *skip)
			continue
		}
		if wrote {
			rep.Written++
			anyWritten = true
		}
	}
	if anyWritten && !dryRun {
		if err := a.ensureSkillsFeatureFlag(); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (a *CodexAdapter) ReadInstructions() ([]Instruction, error) {
	path := filepath.Join(a.root, "AGENTS.md")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("codex: read AGENTS.md: %w", err)
	}
	return []Instruction{{Name: "AGENTS", Raw: raw, SourcePath: path, Hash: hashBytes(raw)}}, nil
}

func (a *CodexAdapter) WriteInstructions(items []Instruction, dryRun bool) (WriteReport, error) {
	rep := WriteReport{}
	for _, inst := range items {
		path := filepath.Join(a.root, "AGENTS.md")
		wrote, skip, err := writeIfChanged(path, inst.Raw, dryRun)
		if err != nil {
			return rep, fmt.Errorf("codex: write AGENTS.md: %w", err)
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
