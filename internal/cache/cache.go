// Package cache holds the discovery cache: the shared, TTL-bounded
// snapshot of discovered skills and their dependency graph, guarded by
// a single mutex per spec §4.4 and §9 ("shared by handler and each
// in-flight call; lifetime = the process").
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/clawinfra/skrills/internal/discovery"
	"github.com/clawinfra/skrills/internal/graph"
	"github.com/clawinfra/skrills/internal/skillsrc"
)

// Config configures a Cache's discovery inputs.
type Config struct {
	Roots          []skillsrc.Root
	AgentRoots     []skillsrc.Root
	Priority       []skillsrc.Source
	TTL            time.Duration
	MaxDepth       int
	Logger         *slog.Logger
}

// Cache is the shared discovery snapshot. A single mutex guards both
// reads and the full rescan-and-replace; this is intentionally simple
// (a read-copy-update refinement is a possible future optimization, not
// required by the contract).
type Cache struct {
	cfg Config

	mu         sync.Mutex
	skills     []skillsrc.Meta
	duplicates []discovery.DuplicateEntry
	graph      *graph.Graph
	lastRefresh time.Time
	stale      bool
}

// New creates a Cache that starts stale (the first CurrentSkills call
// performs the initial scan).
func New(cfg Config) *Cache {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Priority) == 0 {
		cfg.Priority = skillsrc.DefaultPriority()
	}
	return &Cache{cfg: cfg, stale: true}
}

// CurrentSkills returns a snapshot no older than the configured TTL. If
// the TTL has expired (or Invalidate was called) since the last
// refresh, it blocks, rescans, rebuilds the graph, and atomically
// replaces the snapshot before returning.
func (c *Cache) CurrentSkills(ctx context.Context) ([]skillsrc.Meta, []discovery.DuplicateEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.needsRefreshLocked() {
		if err := c.refreshLocked(ctx); err != nil {
			if c.skills != nil {
				c.cfg.Logger.Warn("cache: refresh failed, retaining previous snapshot", "error", err)
				return c.skills, c.duplicates, nil
			}
			return nil, nil, err
		}
	}
	return c.skills, c.duplicates, nil
}

// Invalidate forces the next CurrentSkills call to rescan.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
}

func (c *Cache) needsRefreshLocked() bool {
	if c.stale {
		return true
	}
	if c.cfg.TTL <= 0 {
		return false
	}
	return time.Since(c.lastRefresh) >= c.cfg.TTL
}

func (c *Cache) refreshLocked(ctx context.Context) error {
	res, err := discovery.Scan(ctx, c.cfg.Roots, discovery.Options{MaxDepth: c.cfg.MaxDepth, Logger: c.cfg.Logger})
	if err != nil {
		return fmt.Errorf("cache: scan: %w", err)
	}

	for _, ar := range c.cfg.AgentRoots {
		agentMetas, err := discovery.ScanAgents(ar)
		if err != nil {
			c.cfg.Logger.Warn("cache: agent scan failed", "root", ar.Path, "error", err)
			continue
		}
		res.Skills = append(res.Skills, agentMetas...)
	}

	g := graph.Build(res.Skills, c.cfg.Priority, readSkillContent, c.cfg.Logger)
	for _, d := range g.Diagnostics {
		c.cfg.Logger.Warn("cache: graph diagnostic", "uri", d.URI, "message", d.Message)
	}

	c.skills = res.Skills
	c.duplicates = res.Duplicates
	c.graph = g
	c.lastRefresh = time.Now()
	c.stale = false
	return nil
}

func readSkillContent(m skillsrc.Meta) (string, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Graph returns the most recently built dependency graph. It is only
// valid after at least one successful CurrentSkills call; callers
// typically call CurrentSkills first to guarantee freshness.
func (c *Cache) Graph() *graph.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph
}
