// Package importer watches a drop directory and turns Markdown files placed
// there into notes. Imported files are removed from the directory once the
// note is created.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const quietWindow = 200 * time.Millisecond

// CreateFunc persists imported content as a note; typically a thin wrapper
// over the session's create.
type CreateFunc func(ctx context.Context, content string) (id, title string, err error)

// Importer ingests .md files dropped into a directory.
type Importer struct {
	dir    string
	create CreateFunc
	logger *slog.Logger
}

// New creates an importer over the given drop directory.
func New(dir string, create CreateFunc, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{dir: dir, create: create, logger: logger}
}

// Run watches the drop directory until ctx is cancelled. Files already
// present at startup are imported first. A file is only imported after a
// short quiet window so partially written files are not picked up.
func (im *Importer) Run(ctx context.Context) error {
	if err := os.MkdirAll(im.dir, 0o755); err != nil {
		return fmt.Errorf("importer: create dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("importer: watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(im.dir); err != nil {
		return fmt.Errorf("importer: watch %s: %w", im.dir, err)
	}

	im.logger.Info("importer: started", slog.String("dir", im.dir))
	im.scanExisting(ctx)

	// Per-file quiet timers; a write resets the file's timer.
	timers := make(map[string]*time.Timer)
	ready := make(chan string, 16)

	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			im.logger.Info("importer: stopped")
			return nil

		case path := <-ready:
			delete(timers, path)
			im.importFile(ctx, path)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			path := ev.Name
			if t, exists := timers[path]; exists {
				t.Reset(quietWindow)
				continue
			}
			timers[path] = time.AfterFunc(quietWindow, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("importer: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

// scanExisting imports files already sitting in the drop directory.
func (im *Importer) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(im.dir)
	if err != nil {
		im.logger.Warn("importer: initial scan failed", slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		im.importFile(ctx, filepath.Join(im.dir, e.Name()))
	}
}

func (im *Importer) importFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		// The file may have been removed or renamed before the quiet
		// window elapsed.
		im.logger.Warn("importer: read failed",
			slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		im.logger.Warn("importer: skipping empty file", slog.String("path", path))
		return
	}

	id, title, err := im.create(ctx, string(data))
	if err != nil {
		im.logger.Error("importer: create note failed",
			slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if err := os.Remove(path); err != nil {
		im.logger.Warn("importer: remove imported file failed",
			slog.String("path", path), slog.String("error", err.Error()))
	}
	im.logger.Info("importer: imported",
		slog.String("path", path), slog.String("note_id", id), slog.String("title", title))
}
