// Package watch re-runs the parse pipeline whenever a quote source file
// changes on disk. Edits are debounced so editor save bursts trigger a
// single re-parse, and each trigger re-reads everything from scratch:
// partial in-place updates are never attempted.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/fsnotify.v1"
)

// DefaultDebounce is the quiet period after the last write event before
// the handler fires.
const DefaultDebounce = 300 * time.Millisecond

// Handler is invoked with the changed path after the debounce window.
type Handler func(path string)

// Watcher monitors files and invokes a handler on change.
type Watcher struct {
	fsw      *fsnotify.Watcher
	paths    map[string]bool
	debounce time.Duration
	handler  Handler
	stop     chan struct{}
	stopOnce sync.Once
	log      zerolog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// New creates a watcher for the given files. Directories are watched so
// editors that replace files on save (write temp, rename over) are still
// observed.
func New(paths []string, handler Handler, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		paths:    make(map[string]bool),
		debounce: DefaultDebounce,
		handler:  handler,
		stop:     make(chan struct{}),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run processes events until Stop is called. Blocking; run it in a
// goroutine when the caller has other work.
func (w *Watcher) Run() {
	var timer *time.Timer
	var pending string
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				// Underlying watcher closed by Stop.
				if timer != nil {
					timer.Stop()
				}
				return
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.paths[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug().Str("path", abs).Str("op", event.Op.String()).Msg("change detected")
			pending = abs
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			if pending != "" {
				w.handler(pending)
				pending = ""
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if err != nil {
				w.log.Error().Err(err).Msg("watcher error")
			}
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Stop terminates Run and releases the underlying watcher. Safe to call
// more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.fsw.Close()
	})
}
