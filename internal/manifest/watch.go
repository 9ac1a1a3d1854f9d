package manifest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const rebuildDebounce = 500 * time.Millisecond

// Watch calls rebuild whenever files under root change, coalescing bursts of
// events. It blocks until ctx is done.
func Watch(ctx context.Context, root string, rebuild func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("Watching content root", "root", root)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						slog.Warn("Failed to watch new directory", "dir", ev.Name, "err", err)
					}
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(rebuildDebounce)
			} else {
				timer.Reset(rebuildDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			slog.Debug("Content root changed, rebuilding manifest", "root", root)
			rebuild()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Content root watch error", "err", err)
		}
	}
}
