package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/mdserve/internal/checksum"
	"github.com/starford/mdserve/internal/models"
	"github.com/starford/mdserve/internal/render"
	"github.com/starford/mdserve/internal/storage"
)

// Sync brings the index in line with the Markdown files under the serve
// root. Changed files are rendered again and documents that are gone from
// disk are dropped.
func Sync(ctx context.Context, db DocumentIndex, store storage.Provider, logger *slog.Logger) error {
	n, err := reconcile(ctx, db, store, logger, nil)
	if err != nil {
		return err
	}
	logger.Info("index: sync complete", slog.Int("documents", n))
	return nil
}

// reconcile diffs the files on disk against the stored checksums and reports
// every change to notify, which may be nil. It returns the number of
// documents found on disk.
func reconcile(ctx context.Context, db DocumentIndex, store storage.Provider, logger *slog.Logger, notify EventCallback) (int, error) {
	metas, err := store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("index: list documents: %w", err)
	}
	stale, err := db.AllChecksums()
	if err != nil {
		return 0, err
	}
	emit := func(kind, rel string) {
		if notify != nil {
			notify(kind, rel)
		}
	}

	for _, m := range metas {
		old, seen := stale[m.Path]
		delete(stale, m.Path)
		if seen && old == m.Checksum {
			continue
		}
		data, err := store.Read(ctx, m.Path)
		if err != nil {
			logger.Warn("index: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("index: render failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("index: document indexed", slog.String("path", m.Path))
		if seen {
			emit(EventUpdated, m.Path)
		} else {
			emit(EventCreated, m.Path)
		}
	}

	// Whatever is left was indexed once but has no file any more.
	for p := range stale {
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("index: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("index: stale document removed", slog.String("path", p))
		emit(EventRemoved, p)
	}
	return len(metas), nil
}

// indexFile renders data as the document rel and stores it together with
// its outgoing local links.
func indexFile(db DocumentIndex, rel string, data []byte, updated time.Time) error {
	doc, err := render.Markdown(data, rel)
	if err != nil {
		return err
	}
	return db.UpsertDocument(DocumentRow{
		Path:      rel,
		Title:     doc.Title,
		Checksum:  checksum.Sum(data),
		Tags:      doc.Tags,
		UpdatedAt: updated,
	}, string(doc.Body), linkRows(doc.Links))
}

func linkRows(refs []models.LinkReference) []LinkRow {
	var out []LinkRow
	for _, ref := range refs {
		if ref.Target == "" || (ref.Class != models.LinkLocal && ref.Class != models.LinkRootRelative) {
			continue
		}
		key, fragment, ok := LinkTarget(ref.Target)
		if !ok {
			continue
		}
		out = append(out, LinkRow{Target: key, Fragment: fragment, Snippet: ref.Context})
	}
	return out
}
