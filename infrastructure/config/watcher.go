package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigWatcher hot-reloads operational settings in development.
// Only file-backed settings participate; scoring tables are compiled
// into the domain layer and never change at runtime.
type ConfigWatcher struct {
	config    *Config
	loader    *Loader
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewConfigWatcher creates a watcher over the loader's config directory.
// Outside development the watcher is inert and only serves GetConfig.
func NewConfigWatcher(initial *Config, loader *Loader, logger *zap.Logger) (*ConfigWatcher, error) {
	w := &ConfigWatcher{
		config:    initial,
		loader:    loader,
		callbacks: make([]func(*Config), 0),
		logger:    logger,
		stopCh:    make(chan struct{}),
	}

	if !initial.IsDevelopment() {
		logger.Info("configuration hot reloading disabled",
			zap.String("environment", initial.Environment),
		)
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = fsWatcher

	if err := w.watchConfigFiles(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config files: %w", err)
	}

	go w.watchLoop()

	logger.Info("configuration hot reloading enabled",
		zap.String("dir", loader.basePath),
	)

	return w, nil
}

// watchConfigFiles registers the config directory and its files.
func (w *ConfigWatcher) watchConfigFiles() error {
	err := filepath.Walk(w.loader.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() || isConfigFile(path) {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch file",
					zap.String("path", path),
					zap.Error(err),
				)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk config directory: %w", err)
	}

	return nil
}

// watchLoop monitors for file changes and triggers debounced reloads.
func (w *ConfigWatcher) watchLoop() {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && isConfigFile(event.Name) {
				w.logger.Info("configuration file changed",
					zap.String("file", event.Name),
					zap.String("operation", event.Op.String()),
				)

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					w.reloadConfig()
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))

		case <-w.stopCh:
			w.logger.Info("stopping configuration watcher")
			return
		}
	}
}

// reloadConfig rebuilds configuration from the loader and swaps it in.
func (w *ConfigWatcher) reloadConfig() {
	newConfig, err := w.loader.Load()
	if err != nil {
		w.logger.Error("invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	oldConfig := w.config
	w.config = newConfig
	w.mu.Unlock()

	changes := diffReloadable(oldConfig, newConfig)
	stale := diffRestartRequired(oldConfig, newConfig)

	if len(changes) == 0 && len(stale) == 0 {
		w.logger.Debug("configuration unchanged after reload")
		return
	}

	if len(stale) > 0 {
		w.logger.Warn("configuration changes require a restart to take effect",
			zap.Strings("settings", stale),
		)
	}

	if len(changes) > 0 {
		w.logger.Info("configuration reloaded",
			zap.Strings("changes", changes),
		)
		w.notifyCallbacks(newConfig)
	}
}

// OnChange registers a callback invoked after a successful reload.
func (w *ConfigWatcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// GetConfig returns the current configuration.
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the configuration watcher.
func (w *ConfigWatcher) Stop() {
	if w.watcher != nil {
		close(w.stopCh)
		w.watcher.Close()
	}
}

// notifyCallbacks runs callbacks on their own goroutines so a slow
// or panicking subscriber cannot stall the watch loop.
func (w *ConfigWatcher) notifyCallbacks(newConfig *Config) {
	w.mu.RLock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for i, callback := range callbacks {
		go func(idx int, cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked",
						zap.Int("callback_index", idx),
						zap.Any("panic", r),
					)
				}
			}()

			cb(newConfig)
		}(i, callback)
	}
}

// diffReloadable lists changed settings that take effect immediately.
func diffReloadable(old, new *Config) []string {
	changes := make([]string, 0)

	if old.LogLevel != new.LogLevel {
		changes = append(changes, fmt.Sprintf("log_level: %s -> %s", old.LogLevel, new.LogLevel))
	}
	if old.RateLimit != new.RateLimit {
		changes = append(changes, fmt.Sprintf("rate_limit: %+v -> %+v", old.RateLimit, new.RateLimit))
	}
	if old.Ephemeris.Enabled != new.Ephemeris.Enabled {
		changes = append(changes, fmt.Sprintf("ephemeris.enabled: %v -> %v", old.Ephemeris.Enabled, new.Ephemeris.Enabled))
	}
	if old.CacheTTL != new.CacheTTL {
		changes = append(changes, fmt.Sprintf("cache_ttl_seconds: %d -> %d", old.CacheTTL, new.CacheTTL))
	}

	return changes
}

// diffRestartRequired lists changed settings that only apply on restart.
func diffRestartRequired(old, new *Config) []string {
	stale := make([]string, 0)

	if old.ServerAddress != new.ServerAddress {
		stale = append(stale, "server_address")
	}
	if old.PersistenceDriver != new.PersistenceDriver {
		stale = append(stale, "persistence_driver")
	}
	if old.SQLitePath != new.SQLitePath {
		stale = append(stale, "sqlite_path")
	}
	if old.DynamoDBTable != new.DynamoDBTable {
		stale = append(stale, "dynamodb_table")
	}
	if old.EventBusName != new.EventBusName {
		stale = append(stale, "event_bus_name")
	}

	return stale
}

// isConfigFile checks if a file is a configuration file.
func isConfigFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml" || ext == ".json"
}
