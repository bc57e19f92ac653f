package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is invoked with the previous and newly loaded
// Configurator whenever the watched file changes.
type ChangeCallback func(old, new *Configurator)

// Watcher hot-reloads a config file, debouncing rapid writes the way
// editors and deploy tools tend to produce them.
//
// Grounded on najoast-sngo/config/watcher.go's shape: one fsnotify.Watcher,
// a debounce timer per write burst, and a callback list notified with
// old/new config on every successful reload.
type Watcher struct {
	path     string
	log      *slog.Logger
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu        sync.RWMutex
	current   *Configurator
	callbacks []ChangeCallback

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Logger   *slog.Logger
	Debounce time.Duration // default: 500ms
}

// NewWatcher loads path once and prepares to watch it for further changes.
func NewWatcher(path string, opts WatcherOptions) (*Watcher, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: new fsnotify watcher: %w", err)
	}

	cfg, err := loadFile(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path: path, log: log.With(slog.String("config_file", path)),
		debounce: debounce, fsw: fsw, current: cfg,
		ctx: ctx, cancel: cancel,
	}, nil
}

func loadFile(path string) (*Configurator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Start begins watching the config file for changes.
func (w *Watcher) Start() error {
	if err := w.fsw.Add(w.path); err != nil {
		return fmt.Errorf("config: watch %s: %w", w.path, err)
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops the watcher and releases its fsnotify handle.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// Current returns the most recently loaded Configurator.
func (w *Watcher) Current() *Configurator {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback fired after every successful reload.
func (w *Watcher) OnChange(cb ChangeCallback) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, cb)
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, w.reload)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.log.Warn("config file removed or renamed")
				time.AfterFunc(time.Second, func() { _ = w.fsw.Add(w.path) })
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) reload() {
	next, err := loadFile(w.path)
	if err != nil {
		w.log.Error("config reload failed", slog.Any("error", err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = next
	callbacks := make([]ChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.log.Info("config reloaded")
	for _, cb := range callbacks {
		go cb(old, next)
	}
}
