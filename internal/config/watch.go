package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Switches are the settings that take effect without a restart.
type Switches struct {
	FailOpen bool
	LogLevel string
}

// Switches extracts the live-reloadable settings.
func (c *Config) Switches() Switches {
	return Switches{FailOpen: c.Messaging.FailOpen, LogLevel: c.Log.Level}
}

// Watch reloads the config file whenever it changes and hands the new
// switches to onChange. A file that fails to load is reported to onErr and
// the previous switches stay in force. Watch blocks until ctx ends.
func Watch(ctx context.Context, path string, onChange func(Switches), onErr func(error)) error {
	if path == "" {
		return fmt.Errorf("config watch needs a file path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, _, err := load(abs)
			if err != nil {
				onErr(err)
				continue
			}
			onChange(cfg.Switches())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onErr(err)
		}
	}
}
