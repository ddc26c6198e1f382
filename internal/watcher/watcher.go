// Package watcher observes the datasets directory with fsnotify and reports
// debounced per-dataset change events.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches the flat datasets directory and invokes onChange with the
// dataset name when its CSV file is written, created, or removed. Rapid
// write bursts to the same file collapse into one callback.
type Watcher struct {
	dir      string
	onChange func(dataset string)
	debounce time.Duration
	logger   *zap.Logger // optional

	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	started     bool
	done        chan struct{}
	stopOnce    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over dir. onChange receives the dataset name
// (the CSV filename without extension).
func NewWatcher(dir string, onChange func(dataset string), opts ...Option) *Watcher {
	w := &Watcher{
		dir:         dir,
		onChange:    onChange,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("watcher starting", zap.String("dir", w.dir))
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	name := datasetName(ev.Name)
	if name == "" {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event",
			zap.String("op", ev.Op.String()), zap.String("dataset", name))
	}
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		w.debounceChange(name)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// Removal fires immediately; any pending write callback is moot.
		w.cancelDebounce(name)
		if w.onChange != nil {
			w.onChange(name)
		}
	}
}

// datasetName maps a CSV path under the watched dir to its dataset name.
// Non-CSV files (metadata, label files, temp files) yield "".
func datasetName(path string) string {
	base := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(base), ".csv") {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (w *Watcher) debounceChange(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[name]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, name)
		logger := w.logger
		w.mu.Unlock()
		if logger != nil {
			logger.Debug("watcher dataset changed (debounced)", zap.String("dataset", name))
		}
		if w.onChange != nil {
			w.onChange(name)
		}
	})
	w.debounceMap[name] = t
}

func (w *Watcher) cancelDebounce(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[name]; ok {
		t.Stop()
		delete(w.debounceMap, name)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for name, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, name)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
