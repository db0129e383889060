package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/mdserve/internal/index"
	"github.com/starford/mdserve/internal/render"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// documentItem is one entry of the documents list.
type documentItem struct {
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

func documentItems(rows []index.DocumentRow) []documentItem {
	items := make([]documentItem, len(rows))
	for i, r := range rows {
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		items[i] = documentItem{
			Path:      r.Path,
			URL:       render.URLPath(r.Path, false),
			Title:     r.Title,
			Tags:      tags,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items
}
