package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// ErrNotWatchable is returned by Watch for sources that are not files.
var ErrNotWatchable = errors.New("schema source is not a file")

// Watch reloads the schema whenever its source file is written or
// recreated, until ctx is done. It returns once the watch is established.
// Reload failures are logged and recorded in the error log; the current
// schema stays in place.
func (e *Executor) Watch(ctx context.Context, debounce time.Duration) error {
	fs, ok := e.source.(fileSource)
	if !ok {
		return ErrNotWatchable
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	path, err := filepath.Abs(fs.Path())
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory (more reliable for editors that do atomic saves)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go e.watchLoop(ctx, watcher, filepath.Base(path), debounce)

	e.logger.Info("watching schema file for changes", slog.String("path", path))
	return nil
}

func (e *Executor) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, filename string, debounce time.Duration) {
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				e.logger.Debug("schema file changed",
					slog.String("event", event.Op.String()),
					slog.String("file", event.Name))
				timer.Reset(debounce)
			}

		case <-timer.C:
			// Reload records and logs its own failure.
			_ = e.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			e.logger.Error("file watcher error", slog.String("error", err.Error()))

		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
