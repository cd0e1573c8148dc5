package usage

import (
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

// Stats is a sqlite-backed store of co-occurrence counts (how often two
// skills were used within the same session) and last-used timestamps,
// the side inputs the recommendation scorer's CoUsed and RecentlyUsed
// signals read from.
type Stats struct {
	db *sql.DB
}

// OpenStats opens (creating if needed) a sqlite database at path and
// ensures its schema exists.
func OpenStats(path string) (*Stats, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usage: open stats db: %w", err)
	}
	s := &Stats{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stats) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS skill_last_used (
			skill_path TEXT PRIMARY KEY,
			last_used_unix INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS co_used (
			skill_a TEXT NOT NULL,
			skill_b TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (skill_a, skill_b)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("usage: migrate: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Stats) Close() error {
	return s.db.Close()
}

// RecordSession updates last-used timestamps and pairwise co-use counts
// from one session's skill-usage events. Every distinct pair of skills
// observed in events increments its co_used count by one, regardless of
// how many times each was individually used within the session.
func (s *Stats) RecordSession(events []SkillUsageEvent) error {
	if len(events) == 0 {
		return nil
	}

	latest := make(map[string]int64, len(events))
	seen := make(map[string]bool, len(events))
	var distinct []string
	for _, ev := range events {
		if ev.SkillPath == "" {
			continue
		}
		if ev.Timestamp.Unix() > latest[ev.SkillPath] {
			latest[ev.SkillPath] = ev.Timestamp.Unix()
		}
		if !seen[ev.SkillPath] {
			seen[ev.SkillPath] = true
			distinct = append(distinct, ev.SkillPath)
		}
	}
	sort.Strings(distinct)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("usage: begin tx: %w", err)
	}
	defer tx.Rollback()

	for path, ts := range latest {
		if _, err := tx.Exec(`
			INSERT INTO skill_last_used (skill_path, last_used_unix) VALUES (?, ?)
			ON CONFLICT(skill_path) DO UPDATE SET last_used_unix = excluded.last_used_unix
			WHERE excluded.last_used_unix > skill_last_used.last_used_unix
		`, path, ts); err != nil {
			return fmt.Errorf("usage: record last used: %w", err)
		}
	}

	for i := 0; i < len(distinct); i++ {
		for j := i + 1; j < len(distinct); j++ {
			a, b := distinct[i], distinct[j]
			if _, err := tx.Exec(`
				INSERT INTO co_used (skill_a, skill_b, count) VALUES (?, ?, 1)
				ON CONFLICT(skill_a, skill_b) DO UPDATE SET count = count + 1
			`, a, b); err != nil {
				return fmt.Errorf("usage: record co-use: %w", err)
			}
		}
	}

	return tx.Commit()
}

// CoUsedCount returns how many recorded sessions used both a and b
// together. Order of a, b does not matter.
func (s *Stats) CoUsedCount(a, b string) (int, error) {
	if a > b {
		a, b = b, a
	}
	var count int
	err := s.db.QueryRow(`SELECT count FROM co_used WHERE skill_a = ? AND skill_b = ?`, a, b).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage: query co-use: %w", err)
	}
	return count, nil
}

// LastUsed returns the most recent Unix timestamp skillPath was used,
// or 0 if it has never been recorded.
func (s *Stats) LastUsed(skillPath string) (int64, error) {
	var ts int64
	err := s.db.QueryRow(`SELECT last_used_unix FROM skill_last_used WHERE skill_path = ?`, skillPath).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage: query last used: %w", err)
	}
	return ts, nil
}

// TopCoUsed returns up to limit skills most frequently co-used with
// skillPath, mapped to their co-use counts. The returned map has no
// order, and which of several equally counted pairs make the limit is
// not defined.
func (s *Stats) TopCoUsed(skillPath string, limit int) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT skill_b, count FROM co_used WHERE skill_a = ?
		UNION ALL
		SELECT skill_a, count FROM co_used WHERE skill_b = ?
		ORDER BY count DESC
		LIMIT ?
	`, skillPath, skillPath, limit)
	if err != nil {
		return nil, fmt.Errorf("usage: query top co-used: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var other string
		var count int
		if err := rows.Scan(&other, &count); err != nil {
			return nil, fmt.Errorf("usage: scan top co-used: %w", err)
		}
		out[other] = count
	}
	return out, rows.Err()
}
