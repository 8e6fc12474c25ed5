package fonts

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ByLCY/qlabel/logging"
)

// Store holds the current registry. Readers always see a complete registry;
// a reload swaps the pointer.
type Store struct {
	cur atomic.Pointer[Registry]
}

// NewStore wraps r.
func NewStore(r *Registry) *Store {
	s := &Store{}
	s.cur.Store(r)
	return s
}

// Registry returns the current registry.
func (s *Store) Registry() *Registry { return s.cur.Load() }

// Lookup resolves a font in the current registry.
func (s *Store) Lookup(family, style string) (*Font, error) {
	return s.cur.Load().Lookup(family, style)
}

// Default returns the default family and style of the current registry.
func (s *Store) Default() (string, string) { return s.cur.Load().Default() }

// DefaultFont resolves the default font of the current registry.
func (s *Store) DefaultFont() (*Font, error) { return s.cur.Load().DefaultFont() }

// Watcher rebuilds the registry of a Store when font files appear or
// disappear in the watched directories.
type Watcher struct {
	store    *Store
	opts     Options
	debounce time.Duration
	w        *fsnotify.Watcher
}

// NewWatcher watches opts.Dirs. Directories that do not exist are ignored.
func NewWatcher(store *Store, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create font watcher: %w", err)
	}
	watched := 0
	for _, dir := range opts.Dirs {
		if err := fw.Add(dir); err != nil {
			logging.Logger().Debug("font dir not watched", "dir", dir, "err", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		fw.Close()
		return nil, errors.New("no font directory could be watched")
	}
	return &Watcher{store: store, opts: opts, debounce: 250 * time.Millisecond, w: fw}, nil
}

// Run blocks until ctx is done. Bursts of events are coalesced into a
// single rebuild.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.w.Close()
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if !isFontFile(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			logging.Logger().Warn("font watcher error", "err", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	r, err := NewRegistry(w.opts)
	if err != nil {
		logging.Logger().Error("font reload failed, keeping previous registry", "err", err)
		return
	}
	w.store.cur.Store(r)
	logging.Logger().Info("fonts reloaded", "families", len(r.families))
}
