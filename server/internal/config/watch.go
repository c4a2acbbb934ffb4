package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file at path whenever it changes and passes each
// valid, changed Config to onChange. It runs until ctx is cancelled.
//
// The parent directory is watched so saves that replace the file by rename
// are seen. Reloads that fail validation are logged and skipped, as are
// reloads that parse to the configuration already delivered.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	name := filepath.Base(path)

	// nil when the file is currently invalid; the first valid reload is then
	// always delivered.
	last, _ := Load(path)

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Warn("config: reload rejected", "path", path, "err", err)
				continue
			}
			if last != nil && reflect.DeepEqual(cfg, last) {
				slog.Debug("config: file touched, settings unchanged", "path", path)
				continue
			}
			last = cfg
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
