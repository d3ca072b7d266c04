package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the latest valid configuration of a file and reloads it
// when the file changes. An invalid edit is logged and the previous
// configuration stays active.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)

	mu      sync.RWMutex
	current *Config
}

// NewWatcher creates a watcher seeded with an already loaded configuration
func NewWatcher(path string, initial *Config, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     path,
		debounce: 250 * time.Millisecond,
		onChange: onChange,
		current:  initial,
	}
}

// Current returns the active configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Reload reads the file again and swaps it in if it is valid
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	slog.Info("configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
	return nil
}

// Watch blocks until ctx is cancelled, reloading on every write to the file.
// The parent directory is watched so editors that replace the file are seen.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			slog.Warn("failed to close config watcher", "error", err)
		}
	}()

	target := filepath.Clean(w.path)
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", target, err)
	}
	slog.Info("watching configuration file", "path", target)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("config watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if err := w.Reload(); err != nil {
					slog.Error("configuration reload failed, keeping previous configuration", "path", target, "error", err)
				}
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("config watcher errors channel closed")
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}
