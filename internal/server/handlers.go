package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/mdserve/internal/cache"
	"github.com/starford/mdserve/internal/index"
	"github.com/starford/mdserve/internal/models"
	"github.com/starford/mdserve/internal/resolve"
	"github.com/starford/mdserve/internal/site"
)

const maxSearchLimit = 100

// Handler holds route handlers.
type Handler struct {
	site  *site.Site
	index index.DocumentIndex
}

// Page handles GET and HEAD for every path outside /_mdserve and /health.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	resp := h.site.Serve(r.Context(), site.Request{
		Path:         r.URL.EscapedPath(),
		Raw:          r.URL.Query().Get("raw") == "1",
		Conditionals: cache.ConditionalsFrom(r.Header),
	})
	resp.Write(w, r.Method == http.MethodHead)
}

// Freshness handles GET /_mdserve/freshness?path=<escaped URL path>.
func (h *Handler) Freshness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	mtime, ok := h.site.Freshness(r.Context(), r.URL.Query().Get("path"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"mtime": mtime})
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready. The serve root must still be a directory.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	info, err := h.site.Tree().Stat(r.Context(), h.site.Tree().Root())
	if err != nil || !info.IsDir() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search handles GET /_mdserve/api/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > maxSearchLimit {
		limit = 20
	}
	results, err := h.index.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Documents handles GET /_mdserve/api/documents?limit=&offset=&tag=&sort=.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index disabled"))
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.index.ListDocuments(limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": documentItems(rows),
		"total":     total,
	})
}

// Backlinks handles GET /_mdserve/api/backlinks?path=<escaped URL path>.
// The path goes through the same resolution as a page request.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index disabled"))
		return
	}
	out := h.site.Resolve(r.Context(), r.URL.Query().Get("path"))
	if out.Kind != resolve.KindMarkdown {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	rel, ok := h.site.Tree().Rel(out.Path)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	links, err := h.index.Backlinks(rel)
	if err != nil {
		slog.Error("backlinks failed", slog.String("path", rel), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if links == nil {
		links = []models.Backlink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": rel, "backlinks": links})
}
