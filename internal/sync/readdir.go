package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// readDirFiles walks dir (non-recursively) for files with ext, handing
// each to build to construct a T. Missing dir is not an error (an
// adapter that has never written that field yet).
func readDirFiles[T any](dir, ext string, build func(name string, raw []byte, path string, info os.FileInfo) T) ([]T, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sync: read dir %s: %w", dir, err)
	}
	var out []T
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		out = append(out, build(name, raw, path, info))
	}
	return out, nil
}

// readDirFilesSimple is readDirFiles specialized to AgentFile, the
// common case with no extra per-item fields.
func readDirFilesSimple(dir, ext string) ([]AgentFile, error) {
	return readDirFiles(dir, ext, func(name string, raw []byte, path string, info os.FileInfo) AgentFile {
		return AgentFile{Name: name, Raw: raw, SourcePath: path, Hash: hashBytes(raw)}
	})
}

// sortByName sorts items in place by name(item), ascending, giving a
// deterministic output order.
func sortByName[T any](items []T, name func(T) string) {
	sort.Slice(items, func(i, j int) bool { return name(items[i]) < name(items[j]) })
}
