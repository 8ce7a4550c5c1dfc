// Package watch reports settled changes to the statistics files of a
// directory.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/logfields"
)

// DefaultDebounce is how long the directory must stay quiet before a change
// is reported.
const DefaultDebounce = 2 * time.Second

// DirWatcher watches one directory for new or rewritten CSV files.
type DirWatcher struct {
	dir      string
	debounce time.Duration
	ignore   map[string]bool
	watcher  *fsnotify.Watcher
}

// NewDirWatcher watches dir. Files named in ignore (typically the
// consolidated output) never trigger a change.
func NewDirWatcher(dir string, debounce time.Duration, ignore ...string) (*DirWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.FileSystemError("failed to create file watcher").WithCause(err).Build()
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, errors.FileSystemError("failed to watch directory").
			WithContext("path", dir).WithCause(err).Build()
	}

	skip := make(map[string]bool, len(ignore))
	for _, p := range ignore {
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = true
		}
	}
	return &DirWatcher{dir: dir, debounce: debounce, ignore: skip, watcher: w}, nil
}

// relevant reports whether an event concerns a statistics file.
func (d *DirWatcher) relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || filepath.Ext(name) != ".csv" {
		return false
	}
	if abs, err := filepath.Abs(ev.Name); err == nil && d.ignore[abs] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

// Run calls onChange once per burst of relevant events, after the directory
// has been quiet for the debounce interval. It returns when ctx ends. Errors
// from onChange are logged and watching continues.
func (d *DirWatcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	defer func() { _ = d.watcher.Close() }()

	slog.Info("Watching data directory", logfields.Path(d.dir), slog.Duration("debounce", d.debounce))

	timer := time.NewTimer(d.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			if !d.relevant(ev) {
				continue
			}
			slog.Debug("Data file change detected", logfields.File(ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(d.debounce)
			pending = true
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := onChange(ctx); err != nil {
				slog.Error("Change handler failed", logfields.Error(err))
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Directory watcher error", logfields.Path(d.dir), logfields.Error(err))
		}
	}
}
