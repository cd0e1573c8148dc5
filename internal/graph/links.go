package graph

import "path/filepath"

// resolveRelativeLink joins a markdown link target (e.g. "../foo/SKILL.md")
// against the directory containing fromPath, producing a clean absolute
// path comparable to discovery's Meta.Path.
func resolveRelativeLink(fromPath, link string) string {
	dir := filepath.Dir(fromPath)
	return filepath.Clean(filepath.Join(dir, filepath.FromSlash(link)))
}
