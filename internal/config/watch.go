package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/meetai/meetai/internal/logging"
)

const watchDebounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// new Config to every subscriber. Invalid files are logged and skipped so a
// half-written edit never replaces a working config.
type Watcher struct {
	path     string
	log      *logging.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu        sync.Mutex
	subs      []func(Config)
	timer     *time.Timer
	closed    bool
	closeOnce sync.Once
}

// NewWatcher watches the directory holding path. Editors replace files by
// rename, so the file itself is not watched directly.
func NewWatcher(path string, log *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(filepath.Clean(path))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{
		path:     filepath.Clean(path),
		log:      log.Sub("config"),
		watcher:  fw,
		debounce: watchDebounce,
	}, nil
}

// Subscribe registers fn to receive each successfully reloaded Config.
func (w *Watcher) Subscribe(fn func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, fn)
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("config watch error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config reload: read failed")
		return
	}
	cfg, err := parse(data)
	if err != nil {
		w.log.Warn().Err(err).Msg("config reload: parse failed")
		return
	}
	if issues := Validate(&cfg); len(issues) > 0 {
		w.log.Warn().Str("issue", issues[0].String()).Int("count", len(issues)).Msg("config reload: invalid config ignored")
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	subs := append([]func(Config){}, w.subs...)
	w.mu.Unlock()

	w.log.Info().Str("path", w.path).Msg("config reloaded")
	for _, fn := range subs {
		fn(cfg)
	}
}
