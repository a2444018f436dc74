// Package watch re-runs the generator when descriptor sources or the
// configuration change.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/electwix/dbcmd/internal/config"
	"github.com/electwix/dbcmd/internal/logging"
	"github.com/electwix/dbcmd/internal/pipeline"
)

// DefaultDebounce is the quiet period after the last change before a run.
const DefaultDebounce = 200 * time.Millisecond

// RunFunc performs one generator run.
type RunFunc func(ctx context.Context) (pipeline.Summary, error)

// Watcher runs Run once, then again whenever a watched directory changes.
// The directories come from each run's summary: the loaded package
// directories plus the configuration directory.
type Watcher struct {
	Run      RunFunc
	Debounce time.Duration
	Logger   *slog.Logger
	// Generated matches files the generator writes. Changes to them never
	// trigger a run. Defaults to the .gen.go suffix.
	Generated func(name string) bool
}

// Watch blocks until ctx is cancelled. Failed runs are logged and the
// watcher keeps going; only watcher setup errors are returned.
func (w *Watcher) Watch(ctx context.Context) error {
	if w.Run == nil {
		return errors.New("watch: no run function")
	}
	logger := logging.OrDiscard(w.Logger)
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			summary, err := w.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				logger.Error("run failed", "error", err)
			}
			dirs := slices.Clone(summary.Dirs)
			if summary.Plan.Dir != "" {
				dirs = append(dirs, summary.Plan.Dir)
			}
			syncDirs(fsw, dirs, logger)
			logger.Info("watching for changes", "dirs", len(fsw.WatchList()))
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// relevant reports whether ev should trigger a run.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if slices.Contains(config.FileNames, base) {
		return true
	}
	if !strings.HasSuffix(base, ".go") {
		return false
	}
	generated := w.Generated
	if generated == nil {
		generated = func(name string) bool { return strings.HasSuffix(name, config.GeneratedSuffix) }
	}
	return !generated(base)
}

// syncDirs makes the watch list equal to dirs.
func syncDirs(fsw *fsnotify.Watcher, dirs []string, logger *slog.Logger) {
	want := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		want[filepath.Clean(d)] = true
	}
	for _, d := range fsw.WatchList() {
		if !want[d] {
			_ = fsw.Remove(d)
		}
	}
	for d := range want {
		if slices.Contains(fsw.WatchList(), d) {
			continue
		}
		if err := fsw.Add(d); err != nil {
			logger.Warn("cannot watch directory", "dir", d, "error", err)
		}
	}
}
