package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads a set of configuration layers when any of them changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	layers   []string
	files    map[string]bool
	debounce time.Duration
	logger   *logrus.Entry
	onReload func(*Config)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches the directories holding layers. fsnotify does not follow
// symlinks, so each layer's resolved target directory is watched too.
// onReload receives the freshly merged configuration; invalid edits are logged
// and the previous configuration stays in effect.
func NewWatcher(logger *logrus.Entry, debounce time.Duration, onReload func(*Config), layers ...string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	w := &Watcher{
		watcher:  watcher,
		layers:   layers,
		files:    make(map[string]bool),
		debounce: debounce,
		logger:   logger,
		onReload: onReload,
	}

	watchedDirs := make(map[string]bool)
	for _, layer := range layers {
		if layer == "" {
			continue
		}
		candidates := []string{layer}
		if target, err := filepath.EvalSymlinks(layer); err == nil && target != layer {
			candidates = append(candidates, target)
		}
		for _, path := range candidates {
			w.files[filepath.Clean(path)] = true
			dir := filepath.Dir(path)
			if watchedDirs[dir] {
				continue
			}
			if _, err := os.Stat(dir); err != nil {
				logger.Debugf("Skipping missing config directory %s", dir)
				continue
			}
			if err := watcher.Add(dir); err != nil {
				logger.WithError(err).Warnf("Failed to watch %s", dir)
				continue
			}
			watchedDirs[dir] = true
		}
	}

	return w, nil
}

// Start processes file events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.Close()
			return
		}
	}
}

// schedule coalesces a burst of writes into one reload after the debounce window.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := LoadFiles(w.logger.Logger, w.layers...)
	if err != nil {
		w.logger.WithError(err).Warn("Ignoring invalid configuration change")
		return
	}
	w.logger.Info("Configuration reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
