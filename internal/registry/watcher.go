package registry

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch keeps the registry in sync with external edits to its directory
// until ctx is cancelled. Events are debounced with a full reload because
// editors produce bursts of partial writes.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}

	go func() {
		defer watcher.Close()

		const settle = 250 * time.Millisecond
		var pending *time.Timer
		reload := make(chan struct{}, 1)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".md") {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				log.Printf("[registry] change detected: %s %s", ev.Op, filepath.Base(ev.Name))
				if pending == nil {
					pending = time.AfterFunc(settle, func() {
						select {
						case reload <- struct{}{}:
						default:
						}
					})
				} else {
					pending.Reset(settle)
				}
			case <-reload:
				pending = nil
				if err := r.reloadAll(); err != nil {
					log.Printf("[registry] reload after change failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[registry] watcher error: %v", err)
			}
		}
	}()
	return nil
}
