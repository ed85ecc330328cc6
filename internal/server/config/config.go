// Package config provides a configuration manager that loads and watches the TOML file holding the alert thresholds.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/reporteria/reportviewer/internal/viewmodel"
)

// Provider gives access to the current alert thresholds.
type Provider interface {
	Thresholds() viewmodel.Thresholds
}

// Manager loads the thresholds file and keeps its content current.
type Manager struct {
	config     viewmodel.Thresholds
	lock       sync.RWMutex
	configPath string

	log *slog.Logger
}

type options struct {
	Logger *slog.Logger
}

// Options represents an optional function to override Manager default values.
type Options func(*options)

// WithLogger sets the logger used by the manager.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.Logger = l
	}
}

// New creates a new configuration manager with the specified path.
// Until Load succeeds, the default thresholds are in effect.
func New(path string, args ...Options) *Manager {
	opts := options{
		Logger: slog.Default(),
	}

	for _, opt := range args {
		opt(&opts)
	}

	return &Manager{
		config:     viewmodel.DefaultThresholds(),
		configPath: path,
		log:        opts.Logger,
	}
}

// Load reads the thresholds file and updates the internal state.
//
// A missing file resets to the defaults. Keys absent from the file keep their default value.
func (cm *Manager) Load() error {
	t, err := cm.read()
	if err != nil {
		return err
	}
	if t.RAMPercent <= 0 || t.UptimeDays <= 0 {
		return fmt.Errorf("invalid thresholds %+v: values must be positive", t)
	}

	cm.lock.Lock()
	cm.config = t
	cm.lock.Unlock()

	cm.log.Info("Alert thresholds loaded", "thresholds", t)
	return nil
}

// read decodes the thresholds file over the defaults.
func (cm *Manager) read() (viewmodel.Thresholds, error) {
	t := viewmodel.DefaultThresholds()
	if cm.configPath == "" {
		return t, nil
	}

	md, err := toml.DecodeFile(cm.configPath, &t)
	if errors.Is(err, fs.ErrNotExist) {
		cm.log.Warn("No alerts configuration file, using defaults", "path", cm.configPath)
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("decoding alerts configuration %s: %w", cm.configPath, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		cm.log.Warn("Unknown keys in alerts configuration", "keys", undecoded)
	}
	return t, nil
}

// Watch loads the thresholds file then reloads it each time it is written, created or renamed into place.
//
// The directory is watched rather than the file so that editors replacing the file are noticed. It is
// created when missing so that a file added later is picked up.
// changes receives a value after each successful reload. errors receives a single value if the watcher
// breaks down. Both are closed once ctx is done.
func (cm *Manager) Watch(ctx context.Context) (changes <-chan struct{}, errors <-chan error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %v", err)
	}

	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to create configuration directory %s: %v", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to watch directory %s: %v", dir, err)
	}
	cm.log.Info("Watching alerts configuration", "dir", dir)

	if err := cm.Load(); err != nil {
		cm.log.Warn("Could not load initial alerts configuration", "err", err)
	}

	changesCh := make(chan struct{}, 1)
	errorsCh := make(chan error, 1)
	go func() {
		defer close(changesCh)
		defer close(errorsCh)
		defer watcher.Close()

		if err := cm.watch(ctx, watcher, changesCh); err != nil {
			errorsCh <- err
		}
	}()

	return changesCh, errorsCh, nil
}

// watch handles the watcher events until ctx is done or the watcher fails.
func (cm *Manager) watch(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) error {
	target := filepath.Clean(cm.configPath)
	for {
		select {
		case <-ctx.Done():
			cm.log.Info("Alerts configuration watcher stopped")
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed unexpectedly")
			}
			cm.log.Warn("Watcher error", "err", err)

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed unexpectedly")
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			cm.log.Debug("Alerts configuration changed, reloading", "event", event.Op)
			if err := cm.Load(); err != nil {
				cm.log.Warn("Could not reload alerts configuration", "err", err)
				continue
			}

			// Pending notifications are coalesced.
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}

// Thresholds returns the thresholds currently in effect.
func (cm *Manager) Thresholds() viewmodel.Thresholds {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	return cm.config
}
