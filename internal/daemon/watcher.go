package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/chatbubble/internal/config"
)

// settleDelay collapses the burst of events editors produce for one save.
const settleDelay = 150 * time.Millisecond

// ConfigWatcher reloads the daemon config when its file changes and reports
// changes to CSS files in the themes directory.
type ConfigWatcher struct {
	mu     sync.Mutex
	logger *slog.Logger

	configPath string
	themesDir  string

	current  *config.DaemonConfig
	onReload func(cfg *config.DaemonConfig)
	onError  func(err error)
	onTheme  func()

	watcher     *fsnotify.Watcher
	configTimer *time.Timer
	themeTimer  *time.Timer
	done        chan struct{}
	running     bool
}

// NewConfigWatcher creates a watcher for configPath. themesDir may be empty.
func NewConfigWatcher(configPath, themesDir string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWatcher{
		logger:     logger,
		configPath: configPath,
		themesDir:  themesDir,
	}
}

// SetReloadCallback sets the callback for a successfully reloaded config.
func (w *ConfigWatcher) SetReloadCallback(callback func(cfg *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = callback
}

// SetErrorCallback sets the callback for a config that failed to load.
// The previous config stays in effect.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = callback
}

// SetThemeCallback sets the callback for changes to theme files.
func (w *ConfigWatcher) SetThemeCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTheme = callback
}

// Start begins watching. The config directory is created if missing; the
// themes directory is only watched if it exists.
func (w *ConfigWatcher) Start(ctx context.Context, initial *config.DaemonConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	configDir := filepath.Dir(w.configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save.
	if err := watcher.Add(configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", configDir, err)
	}
	if w.themesDir != "" {
		if info, err := os.Stat(w.themesDir); err == nil && info.IsDir() {
			if err := watcher.Add(w.themesDir); err != nil {
				w.logger.Warn("failed to watch themes directory", "path", w.themesDir, "error", err)
			}
		}
	}

	w.watcher = watcher
	w.current = initial
	w.done = make(chan struct{})
	w.running = true

	go w.watch(ctx, watcher, w.done)

	w.logger.Debug("config watcher started", "path", w.configPath, "themes", w.themesDir)
	return nil
}

// Stop stops watching and waits for the watch goroutine to exit.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	done := w.done
	if w.configTimer != nil {
		w.configTimer.Stop()
	}
	if w.themeTimer != nil {
		w.themeTimer.Stop()
	}
	watcher := w.watcher
	w.mu.Unlock()

	if err := watcher.Close(); err != nil {
		w.logger.Debug("failed to close file watcher", "error", err)
	}
	<-done
	w.logger.Debug("config watcher stopped")
}

// Current returns the last valid configuration.
func (w *ConfigWatcher) Current() *config.DaemonConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *ConfigWatcher) watch(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *ConfigWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	switch {
	case filepath.Clean(event.Name) == filepath.Clean(w.configPath):
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			return
		}
		w.schedule(&w.configTimer, w.reload)

	case w.isThemeFile(event.Name):
		w.schedule(&w.themeTimer, w.themeChanged)
	}
}

func (w *ConfigWatcher) isThemeFile(name string) bool {
	return w.themesDir != "" &&
		filepath.Dir(filepath.Clean(name)) == filepath.Clean(w.themesDir) &&
		strings.EqualFold(filepath.Ext(name), ".css")
}

func (w *ConfigWatcher) schedule(timer **time.Timer, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if *timer != nil {
		(*timer).Stop()
	}
	*timer = time.AfterFunc(settleDelay, fn)
}

func (w *ConfigWatcher) reload() {
	w.logger.Debug("config file changed", "path", w.configPath)

	cfg, err := config.LoadDaemonConfigFile(w.configPath)

	w.mu.Lock()
	onReload, onError := w.onReload, w.onError
	if err == nil {
		w.current = cfg
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("config file changed but failed to load", "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.logger.Info("config reloaded")
	if onReload != nil {
		onReload(cfg)
	}
}

func (w *ConfigWatcher) themeChanged() {
	w.mu.Lock()
	onTheme := w.onTheme
	w.mu.Unlock()

	w.logger.Debug("theme file changed", "path", w.themesDir)
	if onTheme != nil {
		onTheme()
	}
}
