package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher fires a callback when the configuration file changes on disk.
// Editors and configmap mounts replace files rather than writing in place, so
// the parent directory is watched and events are debounced before the reload
// hook runs.
type Watcher struct {
	log      *zap.SugaredLogger
	path     string
	onChange func()
	debounce time.Duration
}

func NewWatcher(log *zap.SugaredLogger, path string, onChange func()) *Watcher {
	return &Watcher{log: log, path: path, onChange: onChange, debounce: 500 * time.Millisecond}
}

// Start watches until the context is canceled. It returns an error only when
// the underlying watcher cannot be created.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watching config directory %s: %w", dir, err)
	}
	w.log.Infow("Watching configuration for changes", "path", w.path)

	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	fire := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debugw("Configuration change detected", "event", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, fire)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Config watcher error", "error", err)
		case <-pending:
			w.onChange()
		}
	}
}
