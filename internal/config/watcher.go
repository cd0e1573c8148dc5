package config

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls the skrills config file for changes and applies them
// with Reload. Of the hot-reloadable sections, only Sources affects
// which skills discovery finds, so Watcher tells its caller about a
// Sources change specifically rather than firing a generic callback on
// every edit (spec §6: config changes take effect without a restart).
type Watcher struct {
	cfg      *Config
	path     string
	interval time.Duration
	logger   *slog.Logger

	onSourcesChanged func()

	stop    chan struct{}
	once    sync.Once
	lastMod time.Time
}

// NewWatcher creates a watcher that reloads cfg from path on an
// interval and calls onSourcesChanged whenever the reload actually
// applied a change to cfg.Sources.
func NewWatcher(cfg *Config, path string, interval time.Duration, logger *slog.Logger, onSourcesChanged func()) *Watcher {
	return &Watcher{
		cfg:              cfg,
		path:             path,
		interval:         interval,
		logger:           logger,
		onSourcesChanged: onSourcesChanged,
		stop:             make(chan struct{}),
	}
}

// Start begins polling for file changes in a goroutine.
func (w *Watcher) Start() {
	if info, err := os.Stat(w.path); err == nil {
		w.lastMod = info.ModTime()
	}

	go w.poll()
	w.logger.Info("config watcher started", "path", w.path, "interval", w.interval)
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		w.logger.Info("config watcher stopped")
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("config watcher: cannot stat file", "path", w.path, "error", err)
		return
	}

	modTime := info.ModTime()
	if !modTime.After(w.lastMod) {
		return
	}
	w.lastMod = modTime

	result, err := w.cfg.Reload(w.path)
	if err != nil {
		w.logger.Error("config watcher: reload failed", "path", w.path, "error", err)
		return
	}
	result.LogResult(w.logger)

	for _, field := range result.Applied {
		if field == "Sources" {
			if w.onSourcesChanged != nil {
				w.onSourcesChanged()
			}
			return
		}
	}
}
