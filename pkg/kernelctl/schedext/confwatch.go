package schedext

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
)

// ConfWatcher watches the scx environment file and invokes a callback when
// it changes, so the UI can reflect edits made outside the application.
// The parent directory is watched because editors typically replace the
// file rather than write it in place.
type ConfWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

// NewConfWatcher creates a watcher for the given configuration file.
func NewConfWatcher(path string) (*ConfWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &ConfWatcher{path: path, watcher: fsw}, nil
}

// Run blocks delivering change notifications until the context is
// cancelled. onChange runs on the watcher goroutine for every create,
// write, or rename touching the watched file.
func (w *ConfWatcher) Run(ctx context.Context, onChange func()) {
	log := logging.Get("schedext")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				log.Debug("scheduler configuration changed", "path", w.path, "op", event.Op)
				if onChange != nil {
					onChange()
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("configuration watcher error", "error", err)
		}
	}
}

// Close releases the underlying watcher.
func (w *ConfWatcher) Close() error {
	return w.watcher.Close()
}
