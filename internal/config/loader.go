package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Load reads path, applies environment overrides and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// loadFile decodes path over the defaults based on its extension.
func loadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return cfg, nil
}

// DebounceDelay collapses the burst of events editors produce on save.
const DebounceDelay = 500 * time.Millisecond

// Watcher reloads the config file when it changes and hands valid results to
// the registered callbacks. Invalid edits are logged and ignored; the last
// good config stays current.
type Watcher struct {
	path   string
	logger *slog.Logger
	delay  time.Duration

	mu       sync.RWMutex
	current  *Config
	onChange []func(old, new *Config)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher starts from an already loaded config.
func NewWatcher(path string, cfg *Config, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, current: cfg, logger: logger.With("component", "config"), delay: DebounceDelay}
}

// OnChange registers a callback. Register before Start.
func (w *Watcher) OnChange(cb func(old, new *Config)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, cb)
	w.mu.Unlock()
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start watches the directory holding the config file, so editors that
// replace the file on save are seen too.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watcher = fw

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx)
	w.logger.Info("watching config", "path", w.path)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
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
			timer = time.AfterFunc(w.delay, w.Reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

// Reload re-reads the file now. Callbacks run only for a valid config.
func (w *Watcher) Reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload rejected, keeping previous config", "error", err)
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = cfg
	callbacks := append([]func(old, new *Config){}, w.onChange...)
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path)
	for _, cb := range callbacks {
		cb(old, cfg)
	}
}

// Stop ends watching.
func (w *Watcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	w.cancel = nil
	return err
}
