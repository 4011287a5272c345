package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads the config store when files under the config
// directory change, so long-running schedules pick up edits without a
// restart.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configDir  string
	logger     *slog.Logger
	reloadChan chan struct{}
}

var (
	globalWatcher *ConfigWatcher
	watcherMu     sync.Mutex
)

// StartWatcher initializes and starts the configuration watcher
func StartWatcher(configDir string, logger *slog.Logger) (*ConfigWatcher, error) {
	watcherMu.Lock()
	defer watcherMu.Unlock()

	if globalWatcher != nil {
		return globalWatcher, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cw := &ConfigWatcher{
		watcher:    watcher,
		configDir:  configDir,
		logger:     logger,
		reloadChan: make(chan struct{}, 1),
	}

	// Watch the config directory and its subdirectories
	if err := filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go cw.watch()
	globalWatcher = cw
	return cw, nil
}

// ReloadChan returns a channel that receives a signal after each
// successful reload. The channel is closed when the watcher stops, so
// consumers ranging over it terminate.
func (cw *ConfigWatcher) ReloadChan() <-chan struct{} {
	return cw.reloadChan
}

// watch is the only sender on reloadChan, so it owns the close: closing
// the fsnotify watcher ends both source channels, the loop returns and
// consumers are released.
func (cw *ConfigWatcher) watch() {
	defer close(cw.reloadChan)

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			// Skip dotfiles and non-yaml files
			if strings.HasPrefix(filepath.Base(event.Name), ".") ||
				!strings.HasSuffix(event.Name, ".yaml") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				cw.handleConfigChange(event.Name)
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("watcher error", "error", err)
		}
	}
}

func (cw *ConfigWatcher) handleConfigChange(path string) {
	cw.logger.Info("detected configuration change", "path", path)

	if err := LoadConfigs(cw.configDir); err != nil {
		cw.logger.Error("failed to reload configurations", "error", err, "path", path)
		return
	}

	cw.logger.Info("configurations reloaded successfully")

	select {
	case cw.reloadChan <- struct{}{}:
	default:
		// A reload is already pending
	}
}

// Stop stops the configuration watcher
func (cw *ConfigWatcher) Stop() error {
	watcherMu.Lock()
	defer watcherMu.Unlock()

	if cw.watcher != nil {
		if err := cw.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
		cw.watcher = nil
	}

	if globalWatcher == cw {
		globalWatcher = nil
	}
	return nil
}
