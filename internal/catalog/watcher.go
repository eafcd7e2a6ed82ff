package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is how long to wait for further writes before reloading.
// Editors often emit several events per save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the overrides file into c whenever it changes, until ctx is
// cancelled. The file's parent directory is watched rather than the file
// itself so atomic rename-into-place saves are seen. A reload failure keeps
// the previous snapshot and is logged, not fatal.
func (c *Catalog) Watch(ctx context.Context, path string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	base := filepath.Base(path)

	var debounce *time.Timer
	var reload <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
				reload = debounce.C
			} else {
				// Drain a tick from an already-fired timer so Reset
				// starts a full debounce window, not a stale one.
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(watchDebounce)
			}
		case <-reload:
			debounce = nil
			reload = nil
			if err := LoadOverridesInto(c, path); err != nil {
				c.logger.Warn("catalog override reload failed", "path", path, "error", err)
				continue
			}
			c.logger.Info("catalog overrides reloaded", "path", path)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("catalog watcher error", "error", err)
		}
	}
}
