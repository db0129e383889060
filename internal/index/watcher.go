package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mdserve/internal/apperr"
	"github.com/starford/mdserve/internal/checksum"
	"github.com/starford/mdserve/internal/contenttype"
	"github.com/starford/mdserve/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventRemoved = "removed"
)

// EventCallback is called after a watcher-driven index change with one of
// the Event kinds and the slash-separated path relative to the root.
type EventCallback func(kind string, rel string)

// DefaultSettle is how long a burst of file events must stay quiet before
// the watcher acts on it.
const DefaultSettle = 150 * time.Millisecond

// Watcher keeps the index in step with the serve root while it runs.
//
// Events are collected per path and handled once the burst settles, so an
// editor's write-rename-chmod sequence costs one render. A rename or a new
// directory cannot be mapped to single documents and triggers a full
// reconcile instead. Dot directories are never watched.
type Watcher struct {
	db     DocumentIndex
	store  storage.Provider
	root   string
	logger *slog.Logger
	notify EventCallback
	settle time.Duration

	pending map[string]struct{}
	rescan  bool
}

// NewWatcher returns a watcher for root. notify may be nil.
func NewWatcher(db DocumentIndex, store storage.Provider, root string, logger *slog.Logger, notify EventCallback) *Watcher {
	if notify == nil {
		notify = func(string, string) {}
	}
	return &Watcher{
		db:      db,
		store:   store,
		root:    root,
		logger:  logger,
		notify:  notify,
		settle:  DefaultSettle,
		pending: make(map[string]struct{}),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := watchDirs(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil
		case <-timer.C:
			w.flush(ctx)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.observe(fw, ev) {
				timer.Reset(w.settle)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// observe records ev and reports whether anything is now pending.
func (w *Watcher) observe(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	rel, ok := w.rel(ev.Name)
	if !ok || hidden(rel) {
		return false
	}
	markdown := contenttype.IsMarkdown(ev.Name)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			if err := watchDirs(fw, ev.Name); err != nil {
				w.logger.Warn("watcher: add dir failed", slog.String("path", rel), slog.String("error", err.Error()))
			}
			w.rescan = true
			return true
		}
	}
	if ev.Has(fsnotify.Rename) && !markdown {
		// Most likely a directory moved away; its files send nothing.
		w.rescan = true
		return true
	}
	if !markdown || ev.Op == fsnotify.Chmod {
		return false
	}
	w.pending[rel] = struct{}{}
	return true
}

func (w *Watcher) flush(ctx context.Context) {
	if w.rescan {
		w.rescan = false
		clear(w.pending)
		if _, err := reconcile(ctx, w.db, w.store, w.logger, w.notify); err != nil {
			w.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		}
		return
	}
	for rel := range w.pending {
		delete(w.pending, rel)
		w.refresh(ctx, rel)
	}
}

// refresh re-reads one document and updates or drops its index entry.
func (w *Watcher) refresh(ctx context.Context, rel string) {
	old, err := w.db.GetChecksum(rel)
	if err != nil {
		w.logger.Warn("watcher: lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	data, err := w.store.Read(ctx, rel)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if old == "" {
			return
		}
		if err := w.db.DeleteDocument(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("watcher: removed", slog.String("path", rel))
		w.notify(EventRemoved, rel)
	case err != nil:
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
	case checksum.Sum(data) == old:
		// Touched without a content change.
	default:
		if err := indexFile(w.db, rel, data, time.Now()); err != nil {
			w.logger.Warn("watcher: render failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		kind := EventUpdated
		if old == "" {
			kind = EventCreated
		}
		w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		w.notify(kind, rel)
	}
}

func (w *Watcher) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// watchDirs adds dir and every visible directory below it.
func watchDirs(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir():
			return nil
		case p != dir && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}

// hidden reports whether any segment of rel starts with a dot.
func hidden(rel string) bool {
	for seg := range strings.SplitSeq(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
