// Package usage ingests per-client session transcripts and command
// histories into a common event stream (spec §4.9), and persists
// co-occurrence statistics derived from that stream for the
// recommendation scorer's CoUsed signal.
package usage

import "time"

// SkillUsageEvent records one observed use of a skill within a session.
type SkillUsageEvent struct {
	Timestamp     time.Time
	SkillPath     string
	SessionID     string
	PromptContext string
}

// CommandEntry records one command invocation from a client's history.
type CommandEntry struct {
	Text      string
	Timestamp time.Time
	SessionID string
	Project   string
}

// Ingester parses a client's on-disk session logs into the common
// event streams. Malformed lines are skipped (logged, not returned as
// an error); an unreadable file yields empty slices, not an error.
type Ingester interface {
	IngestSkillUsage(path string) ([]SkillUsageEvent, error)
	IngestCommandHistory(path string) ([]CommandEntry, error)
}
