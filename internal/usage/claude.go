package usage

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ClaudeIngester parses Claude Code's per-line JSON session
// transcripts. Timestamps in these transcripts are Unix milliseconds.
type ClaudeIngester struct {
	Logger *slog.Logger
}

func (c ClaudeIngester) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

type claudeTranscriptLine struct {
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"` // ms
	Message   struct {
		Content []claudeContentBlock `json:"content"`
	} `json:"message"`
	PromptContext string `json:"promptContext"`
}

type claudeContentBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type claudeToolInput struct {
	FilePath string `json:"file_path"`
	Path     string `json:"path"`
}

// IngestSkillUsage extracts a SkillUsageEvent for every tool-use block
// whose tool name contains "skill" (case-insensitive) or whose
// file-path input targets a SKILL.md file.
func (c ClaudeIngester) IngestSkillUsage(path string) ([]SkillUsageEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	var out []SkillUsageEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var rec claudeTranscriptLine
		if err := json.Unmarshal(line, &rec); err != nil {
			c.logger().Warn("usage: skipping malformed claude transcript line", "error", err)
			continue
		}
		ts := time.UnixMilli(rec.Timestamp)
		for _, block := range rec.Message.Content {
			if block.Type != "tool_use" {
				continue
			}
			skillPath, ok := claudeSkillTarget(block)
			if !ok {
				continue
			}
			out = append(out, SkillUsageEvent{
				Timestamp:     ts,
				SkillPath:     skillPath,
				SessionID:     rec.SessionID,
				PromptContext: rec.PromptContext,
			})
		}
	}
	return out, nil
}

func claudeSkillTarget(block claudeContentBlock) (string, bool) {
	if strings.Contains(strings.ToLower(block.Name), "skill") {
		var in claudeToolInput
		_ = json.Unmarshal(block.Input, &in)
		if in.FilePath != "" {
			return in.FilePath, true
		}
		if in.Path != "" {
			return in.Path, true
		}
		return block.Name, true
	}
	var in claudeToolInput
	if err := json.Unmarshal(block.Input, &in); err == nil {
		target := in.FilePath
		if target == "" {
			target = in.Path
		}
		if strings.HasSuffix(target, "SKILL.md") {
			return target, true
		}
	}
	return "", false
}

type claudeHistoryLine struct {
	Text      string `json:"display"`
	Timestamp int64  `json:"timestamp"` // ms
	SessionID string `json:"sessionId"`
	Project   string `json:"project"`
}

// IngestCommandHistory parses Claude's command history file.
func (c ClaudeIngester) IngestCommandHistory(path string) ([]CommandEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	var out []CommandEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var rec claudeHistoryLine
		if err := json.Unmarshal(line, &rec); err != nil {
			c.logger().Warn("usage: skipping malformed claude history line", "error", err)
			continue
		}
		if rec.Text == "" {
			continue
		}
		out = append(out, CommandEntry{
			Text:      rec.Text,
			Timestamp: time.UnixMilli(rec.Timestamp),
			SessionID: rec.SessionID,
			Project:   rec.Project,
		})
	}
	return out, nil
}
