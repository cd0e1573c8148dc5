package discovery

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/clawinfra/skrills/internal/skillsrc"
)

// Options configures a Scan call.
type Options struct {
	// MaxDepth bounds recursion below each root. Zero means DefaultMaxDepth.
	MaxDepth int
	Logger   *slog.Logger
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Scan walks every root in order, parallelizing the filesystem walk
// across roots (each root's subtree is itself walked sequentially, but
// roots race each other), and returns a deduplicated, priority-ordered
// result. Cancellation is checked before each root's walk begins.
func Scan(ctx context.Context, roots []skillsrc.Root, opts Options) (Result, error) {
	perRoot := make([][]skillsrc.Meta, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			metas, err := scanRoot(gctx, root, opts)
			if err != nil {
				return err
			}
			perRoot[i] = metas
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return dedupe(roots, perRoot), nil
}

// scanRoot walks one root's subtree and collects every SKILL.md file.
func scanRoot(ctx context.Context, root skillsrc.Root, opts Options) ([]skillsrc.Meta, error) {
	var metas []skillsrc.Meta
	maxDepth := opts.maxDepth()

	rootDepth := strings.Count(filepath.Clean(root.Path), string(filepath.Separator))

	err := filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			opts.logger().Warn("discovery: walk error", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if path != root.Path && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if ignoreDirs[name] {
				return fs.SkipDir
			}
			depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if depth > maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if name != "SKILL.md" {
			return nil
		}

		meta, err := buildMeta(root, path)
		if err != nil {
			opts.logger().Warn("discovery: skipping unreadable skill", "path", path, "error", err)
			return nil
		}
		metas = append(metas, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metas, nil
}

func buildMeta(root skillsrc.Root, path string) (skillsrc.Meta, error) {
	rel, err := filepath.Rel(root.Path, path)
	if err != nil {
		return skillsrc.Meta{}, err
	}
	rel = filepath.ToSlash(rel)

	fp, err := fileFingerprint(path)
	if err != nil {
		return skillsrc.Meta{}, err
	}

	return skillsrc.Meta{
		Name:        rel,
		Path:        path,
		Source:      root.Source,
		RootPath:    root.Path,
		Fingerprint: fp,
		Description: bestEffortDescription(path),
	}, nil
}

// descriptionHead is the minimal decode target used for a best-effort
// description preview: only the description field is extracted, and any
// decode failure is swallowed.
type descriptionHead struct {
	Description string `yaml:"description"`
}

func bestEffortDescription(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	content := string(data)
	norm := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(norm, "---\n") {
		return ""
	}
	rest := strings.TrimPrefix(norm, "---\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return ""
	}
	var head descriptionHead
	if err := yaml.Unmarshal([]byte(rest[:end]), &head); err != nil {
		return ""
	}
	return head.Description
}

// sortedByName returns a copy of metas sorted by Name, an order that is
// independent of walk order.
func sortedByName(metas []skillsrc.Meta) []skillsrc.Meta {
	out := make([]skillsrc.Meta, len(metas))
	copy(out, metas)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
