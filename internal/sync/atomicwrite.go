package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// hashBytes returns the hex-encoded SHA-256 hash of b, used as the
// content hash gating idempotent writes.
func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// sanitizeRelPath restricts a skill/command/agent name to
// [A-Za-z0-9_.-/] and strips ".." segments, so a malicious name cannot
// escape the client root while legitimate nested paths
// ("category/name") are preserved.
func sanitizeRelPath(name string) string {
	name = filepath.ToSlash(name)
	parts := strings.Split(name, "/")
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, sanitizeSegment(p))
	}
	return strings.Join(clean, "/")
}

func sanitizeSegment(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writeAtomic writes data to path via a temp file in the same
// directory, fsync, then rename-over-target. It never leaves a partial
// file at path: a crash between write and rename leaves the previous
// content (or nothing) in place.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sync: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".sync-tmp-*")
	if err != nil {
		return fmt.Errorf("sync: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()

	if writeErr != nil || syncErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("sync: write temp file: %w", writeErr)
		}
		if syncErr != nil {
			return fmt.Errorf("sync: fsync temp file: %w", syncErr)
		}
		return fmt.Errorf("sync: close temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sync: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sync: rename into place: %w", err)
	}
	return nil
}

// writeIfChanged hash-gates a write: if path already holds content
// equal to want's hash, it records SkipUnchanged and does not touch the
// file; in dryRun mode it never touches the file but still reports
// whether a real write would occur. Returns true if a write happened
// (or would have, in dry-run).
func writeIfChanged(path string, data []byte, dryRun bool) (wrote bool, skip *SkipReason, err error) {
	wantHash := hashBytes(data)
	if existing, readErr := os.ReadFile(path); readErr == nil {
		if hashBytes(existing) == wantHash {
			return false, &SkipReason{Kind: SkipUnchanged, Item: path}, nil
		}
	}
	if dryRun {
		return true, nil, nil
	}
	if err := writeAtomic(path, data, 0o644); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}
