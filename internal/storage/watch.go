// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/patentchat/internal/util"
)

// =============================================================================
// CACHE WATCHER
// =============================================================================

// DefaultWatchDebounce is how long a key must stay quiet before it is reported.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watcher reports keys of a FileKV directory that were changed on disk,
// typically by another patentchat process sharing the cache.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(keys []string)

	mu      sync.Mutex
	pending map[string]time.Time // key -> last change time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Watch starts watching dir and calls onChange with the sorted set of changed
// keys once they have been quiet for debounce. A zero debounce uses
// DefaultWatchDebounce. onChange runs on the watcher goroutine.
func Watch(dir string, debounce time.Duration, onChange func(keys []string)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()

	log.Printf("CACHE_WATCH_STARTED | dir=%s debounce=%s", dir, debounce)
	return w, nil
}

// Close stops the watcher and waits for its goroutines to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// processEvents records changed keys from file system events.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if util.IsTempFile(name) {
				continue
			}
			key, ok := decodeFileName(name)
			if !ok {
				continue
			}
			w.mu.Lock()
			w.pending[key] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("CACHE_WATCH_ERROR | error=%v", err)
		}
	}
}

// processPending flushes keys that have been quiet for the debounce period.
func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for key, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, key)
					delete(w.pending, key)
				}
			}
			w.mu.Unlock()

			if len(ready) > 0 && w.onChange != nil {
				sort.Strings(ready)
				w.onChange(ready)
			}
		}
	}
}
