package discovery

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/clawinfra/skrills/internal/skillsrc"
)

// ScanAgents is a sibling discovery pass: it accepts any *.md file found
// under a directory named "agents" at any depth below root, tagging the
// results with skillsrc.Agent.
func ScanAgents(root skillsrc.Root) ([]skillsrc.Meta, error) {
	var metas []skillsrc.Meta

	err := filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if ignoreDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if filepath.Ext(d.Name()) != ".md" {
			return nil
		}
		if !underAgentsDir(path) {
			return nil
		}
		rel, err := filepath.Rel(root.Path, path)
		if err != nil {
			return nil
		}
		fp, err := fileFingerprint(path)
		if err != nil {
			return nil
		}
		metas = append(metas, skillsrc.Meta{
			Name:        filepath.ToSlash(rel),
			Path:        path,
			Source:      skillsrc.Agent,
			RootPath:    root.Path,
			Fingerprint: fp,
			Description: bestEffortDescription(path),
		})
		return nil
	})
	return metas, err
}

// underAgentsDir reports whether any ancestor directory of path is
// literally named "agents".
func underAgentsDir(path string) bool {
	dir := filepath.Dir(path)
	for {
		base := filepath.Base(dir)
		if base == "agents" {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		if !strings.Contains(dir, string(filepath.Separator)) && dir == "." {
			return false
		}
		dir = parent
	}
}
