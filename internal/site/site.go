// Package site runs one request through the serving pipeline: embedded
// assets, path resolution, rendering or listing, and cache validation.
// It is shared by the HTTP and MCP transports.
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/mdserve/internal/apperr"
	"github.com/starford/mdserve/internal/assets"
	"github.com/starford/mdserve/internal/cache"
	"github.com/starford/mdserve/internal/models"
	"github.com/starford/mdserve/internal/present"
	"github.com/starford/mdserve/internal/render"
	"github.com/starford/mdserve/internal/resolve"
	"github.com/starford/mdserve/internal/storage"
)

const (
	htmlType  = "text/html; charset=utf-8"
	plainType = "text/plain; charset=utf-8"
)

// Config is the immutable serving configuration, built once at startup.
type Config struct {
	// Root is the directory to serve. It is canonicalized by New.
	Root string
	// EntryURL is the root-relative URL of the entry document, or "".
	EntryURL      string
	MaxFileSize   int64
	IndexNames    []string
	ListingIgnore []string
	Workers       int64
}

// BacklinkSource looks up the documents linking to a root-relative path.
type BacklinkSource interface {
	Backlinks(rel string) ([]models.Backlink, error)
}

// Site serves the documents under one root.
type Site struct {
	cfg       Config
	tree      *storage.Tree
	resolver  *resolve.Resolver
	presenter *present.Presenter
	backlinks BacklinkSource
	logger    *slog.Logger
}

// Option configures a Site.
type Option func(*Site)

// WithBacklinks adds a backlinks panel to rendered documents.
func WithBacklinks(src BacklinkSource) Option {
	return func(s *Site) { s.backlinks = src }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Site) { s.logger = l }
}

// New opens the root and prepares the pipeline.
func New(cfg Config, opts ...Option) (*Site, error) {
	tree, err := storage.NewTree(cfg.Root, cfg.Workers)
	if err != nil {
		return nil, err
	}
	presenter, err := present.New(tree, present.Options{Ignore: cfg.ListingIgnore, EntryURL: cfg.EntryURL})
	if err != nil {
		return nil, err
	}
	cfg.Root = tree.Root()
	s := &Site{
		cfg:       cfg,
		tree:      tree,
		resolver:  resolve.New(tree, resolve.Options{MaxFileSize: cfg.MaxFileSize, IndexNames: cfg.IndexNames}),
		presenter: presenter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration, with Root canonicalized.
func (s *Site) Config() Config { return s.cfg }

// Tree returns the storage tree of the serve root.
func (s *Site) Tree() *storage.Tree { return s.tree }

// Presenter returns the listing presenter.
func (s *Site) Presenter() *present.Presenter { return s.presenter }

// Resolve maps an escaped URL path to a resolution outcome and logs the branch.
func (s *Site) Resolve(ctx context.Context, rawPath string) resolve.Outcome {
	out := s.resolver.Resolve(ctx, rawPath)
	if out.Kind == resolve.KindDenied {
		// The reason stays in the log; the client only sees DenialBody.
		s.logger.Warn("site: denied", slog.String("reason", out.Reason.String()))
		return out
	}
	s.logger.Debug("site: resolved",
		slog.String("branch", out.Branch.String()),
		slog.String("kind", out.Kind.String()),
		slog.String("path", out.Requested))
	return out
}

// Request is one page request.
type Request struct {
	// Path is the escaped URL path, as sent by the client.
	Path string
	// Raw asks for the Markdown source as text/plain.
	Raw          bool
	Conditionals cache.Conditionals
}

// Serve runs req through the pipeline. It never returns a partial body: any
// I/O failure yields a 500 with a fixed plain-text body.
func (s *Site) Serve(ctx context.Context, req Request) *Response {
	if a, ok := assets.Lookup(req.Path); ok {
		return finish(http.StatusOK, a.ContentType, a.Body, assets.ModTime(), req.Conditionals)
	}

	out := s.Resolve(ctx, req.Path)
	switch out.Kind {
	case resolve.KindDenied:
		return finish(http.StatusNotFound, plainType, []byte(present.DenialBody), time.Time{}, req.Conditionals)

	case resolve.KindTooLarge:
		body := present.TooLargeBody(out.Requested, out.Size, s.resolver.MaxFileSize())
		return finish(http.StatusRequestEntityTooLarge, plainType, []byte(body), time.Time{}, req.Conditionals)

	case resolve.KindNotFound:
		body, err := s.presenter.NotFound(ctx, out.Requested, out.Path, out.Rel)
		if err != nil {
			return s.failure(out, err, req.Conditionals)
		}
		return finish(http.StatusNotFound, htmlType, body, time.Time{}, req.Conditionals)

	case resolve.KindListing:
		body, err := s.presenter.Listing(ctx, out.Path, out.Rel)
		if err != nil {
			return s.failure(out, err, req.Conditionals)
		}
		return finish(http.StatusOK, htmlType, body, time.Time{}, req.Conditionals)

	case resolve.KindStatic:
		data, err := s.read(ctx, &out)
		if err != nil {
			return s.failure(out, err, req.Conditionals)
		}
		return finish(http.StatusOK, out.ContentType, data, out.ModTime, req.Conditionals)

	case resolve.KindMarkdown:
		data, err := s.read(ctx, &out)
		if err != nil {
			return s.failure(out, err, req.Conditionals)
		}
		if req.Raw {
			return finish(http.StatusOK, plainType, data, out.ModTime, req.Conditionals)
		}
		body, err := s.page(out, data)
		if err != nil {
			return s.failure(out, err, req.Conditionals)
		}
		return finish(http.StatusOK, htmlType, body, out.ModTime, req.Conditionals)
	}
	return s.failure(out, fmt.Errorf("site: unhandled outcome %s", out.Kind), req.Conditionals)
}

// read loads the file behind out. A file that grew past the limit since it
// was resolved fails with apperr.ErrTooLarge and out.Size is updated.
func (s *Site) read(ctx context.Context, out *resolve.Outcome) ([]byte, error) {
	data, err := s.tree.ReadFile(ctx, out.Path)
	if err != nil {
		return nil, err
	}
	if n := int64(len(data)); n > s.resolver.MaxFileSize() {
		out.Size = n
		return nil, fmt.Errorf("site: %s: %w", out.Requested, apperr.ErrTooLarge)
	}
	return data, nil
}

// page renders a Markdown document into the full page shell.
func (s *Site) page(out resolve.Outcome, data []byte) ([]byte, error) {
	doc, err := render.Markdown(data, out.Rel)
	if err != nil {
		return nil, err
	}
	p := render.Page{
		Title:       doc.Title,
		DisplayPath: out.Rel,
		URLPath:     render.URLPath(out.Rel, false),
		Rel:         out.Rel,
		ModTime:     out.ModTime,
		Headings:    doc.Headings,
		Content:     doc.Content,
	}
	if s.backlinks != nil {
		rel, ok := s.tree.Rel(out.Path)
		if !ok {
			rel = out.Rel
		}
		bl, err := s.backlinks.Backlinks(rel)
		if err != nil {
			s.logger.Warn("site: backlinks failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		p.Backlinks = bl
	}
	return render.PageShell(p)
}

func (s *Site) failure(out resolve.Outcome, err error, c cache.Conditionals) *Response {
	if errors.Is(err, apperr.ErrTooLarge) {
		s.logger.Warn("site: file grew past the size limit", slog.String("path", out.Requested), slog.Int64("size", out.Size))
		body := present.TooLargeBody(out.Requested, out.Size, s.resolver.MaxFileSize())
		return finish(http.StatusRequestEntityTooLarge, plainType, []byte(body), time.Time{}, c)
	}
	s.logger.Error("site: serve failed",
		slog.String("branch", out.Branch.String()),
		slog.String("path", out.Requested),
		slog.String("error", err.Error()))
	return serverError()
}

// Freshness returns the modification time, in Unix seconds, of the document
// or file served at the escaped URL path. ok is false for anything else.
func (s *Site) Freshness(ctx context.Context, rawPath string) (int64, bool) {
	out := s.resolver.Resolve(ctx, rawPath)
	switch out.Kind {
	case resolve.KindMarkdown, resolve.KindStatic:
		return out.ModTime.Unix(), true
	}
	return 0, false
}
