// Package importer watches a drop directory and feeds vocabulary backup
// files into the store.
package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/store"
)

// ImportedSuffix marks processed files so they are not picked up again.
const ImportedSuffix = ".imported"

// ResultCallback is called after each successful file import.
type ResultCallback func(file string, inserted int)

// Watch starts an fsnotify watcher on dir and imports any *.json backup
// file dropped there until ctx is cancelled. An initial scan picks up
// files already present. Processed files are renamed with ImportedSuffix;
// store-level dedup makes a re-dropped file harmless.
func Watch(ctx context.Context, st *store.Store, dir string, logger *slog.Logger, cb ResultCallback) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("importer: started", slog.String("dir", dir))
	Scan(ctx, st, dir, logger, cb)

	// scanTimer debounces bursts of write events into one scan pass.
	var scanTimer *time.Timer
	var scanCh <-chan time.Time

	scheduleScan := func() {
		if scanTimer == nil {
			scanTimer = time.NewTimer(200 * time.Millisecond)
			scanCh = scanTimer.C
		} else {
			scanTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if scanTimer != nil {
				scanTimer.Stop()
			}
			logger.Info("importer: stopped")
			return nil

		case <-scanCh:
			Scan(ctx, st, dir, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			// The writer may still be flushing the file; defer to a
			// debounced scan instead of reading mid-write.
			scheduleScan()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importer: error", slog.String("error", watchErr.Error()))
		}
	}
}

// Scan imports every pending *.json file in dir.
func Scan(ctx context.Context, st *store.Store, dir string, logger *slog.Logger, cb ResultCallback) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("importer: read dir failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		importFile(ctx, st, filepath.Join(dir, e.Name()), logger, cb)
	}
}

// importFile runs one backup file through the store's JSON import and
// renames it on success. Failed files are left in place for inspection.
func importFile(ctx context.Context, st *store.Store, path string, logger *slog.Logger, cb ResultCallback) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("importer: read failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}

	inserted, err := st.ImportJSON(ctx, data)
	if err != nil {
		logger.Warn("importer: import failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}

	if err := os.Rename(path, path+ImportedSuffix); err != nil {
		logger.Warn("importer: rename failed", slog.String("file", name), slog.String("error", err.Error()))
	}

	logger.Info("importer: imported", slog.String("file", name), slog.Int("inserted", inserted))
	if cb != nil {
		cb(name, inserted)
	}
}
