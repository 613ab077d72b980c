package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/adalundhe/remembrance/core/storage"
)

// Watch reloads the configuration whenever its files change on disk.
// Blocks until ctx is cancelled. Reload failures are logged, never
// propagated; a running service keeps its last good configuration.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	m.addWatchTargets(watcher)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			m.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("config watch error", "error", err)
		}
	}
}

// addWatchTargets watches the directories holding the config files, so
// editors that replace files via rename are still observed.
func (m *Manager) addWatchTargets(watcher *fsnotify.Watcher) {
	targets := []string{
		m.dirs.Config,
		storage.ResolveProjectDirs(".").Root,
	}
	for _, target := range targets {
		if err := watcher.Add(target); err != nil {
			m.logger.Debug("config watch target unavailable", "path", target, "error", err)
		}
	}
}

func (m *Manager) handleEvent(event fsnotify.Event) {
	if !isConfigWrite(event) {
		return
	}

	if err := m.Load(); err != nil {
		m.logger.Warn("config reload failed, keeping previous", "error", err)
		return
	}
	m.logger.Info("configuration reloaded", "path", event.Name)
}

func isConfigWrite(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasSuffix(event.Name, "config.yaml") || strings.HasSuffix(event.Name, "config.yml")
}
