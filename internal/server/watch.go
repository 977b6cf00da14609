package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchWorkspace reloads the workspace when its file changes and publishes
// the outcome. Editors often replace a file instead of writing it, so the
// directory is watched and events are filtered by name.
func (s *Server) watchWorkspace(ctx context.Context) error {
	path := s.engine.WorkspacePath()
	if path == "" {
		s.logger.Warn("workspace has no file, not watching")
		return nil
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, path) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.logger.Debug("workspace changed, reloading", "file", event.Name)
				s.reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event, path string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	return err == nil && name == path
}

// reload reloads the workspace and notifies SSE listeners. A failed reload
// keeps the previous workspace and is still published.
func (s *Server) reload() {
	err := s.engine.Reload()
	if err != nil {
		s.logger.Error("reload failed", "error", err)
	}
	s.notifier.Publish(err)
}
