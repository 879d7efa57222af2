// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// =============================================================================
// STORE WATCHER
// =============================================================================

// Watcher reports external rewrites of file-store partitions. The store
// is shared across processes with no locking, so another running
// instance can replace a partition at any time; the watcher lets a
// session refresh its history view when that happens. It performs no
// merging: last write still wins.
//
// Events are debounced per partition because one atomic save produces a
// burst of filesystem events (create, rename, chmod).
type Watcher struct {
	store    *FileStore
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(sanitizedKey string)
	log      zerolog.Logger

	mu      sync.Mutex
	pending map[string]time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewWatcher creates a watcher over the store's base directory. The
// callback receives the sanitized partition key (compare with
// SanitizeKey) and runs on the watcher goroutine.
func NewWatcher(store *FileStore, debounce time.Duration, onChange func(sanitizedKey string), log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &StoreError{Op: "watch", Message: "failed to create watcher", Cause: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		store:    store,
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
		log:      log.With().Str("component", "store-watcher").Logger(),
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Watch starts observing the base directory.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(w.store.BaseDir); err != nil {
		return &StoreError{Op: "watch", Message: "failed to watch storage directory", Cause: err}
	}
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.run()
	return nil
}

// Close stops watching and waits for the event loop to exit. Safe to
// call even when Watch never started or failed.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			key := KeyForFile(event.Name)
			if key == "" {
				continue
			}
			w.mu.Lock()
			w.pending[key] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watcher error")

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// flushPending fires the callback for every partition whose burst of
// events has settled for at least the debounce window.
func (w *Watcher) flushPending() {
	now := time.Now()

	w.mu.Lock()
	var settled []string
	for key, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			settled = append(settled, key)
			delete(w.pending, key)
		}
	}
	w.mu.Unlock()

	for _, key := range settled {
		w.log.Debug().Str("key", key).Msg("external history change")
		w.onChange(key)
	}
}
