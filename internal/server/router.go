package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/mdserve/internal/index"
	"github.com/starford/mdserve/internal/site"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Site *site.Site
	// Index backs the search and backlinks API; nil disables it.
	Index index.DocumentIndex
	// Events is mounted at /_mdserve/events when non-nil.
	Events      http.Handler
	AuthEnabled bool
	Token       string
}

// NewRouter creates a chi router with every route mounted.
func NewRouter(d Deps) chi.Router {
	h := &Handler{site: d.Site, index: d.Index}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(NoSniff)
	r.Use(middleware.Compress(5))

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Get("/_mdserve/freshness", h.Freshness)
	if d.Events != nil {
		r.Get("/_mdserve/events", d.Events.ServeHTTP)
	}

	r.Route("/_mdserve/api", func(r chi.Router) {
		r.Use(AuthMiddleware(d.AuthEnabled, d.Token))
		r.Get("/documents", h.Documents)
		r.Get("/search", h.Search)
		r.Get("/backlinks", h.Backlinks)
	})

	r.Get("/*", h.Page)
	r.Head("/*", h.Page)

	return r
}
