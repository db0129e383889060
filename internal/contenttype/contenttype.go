// Package contenttype maps file extensions to response content types.
package contenttype

import (
	"path"
	"strings"
)

// OctetStream is returned for extensions missing from the table.
const OctetStream = "application/octet-stream"

// Markdown is the extension routed to the renderer.
const Markdown = ".md"

var table = map[string]string{
	".md":    "text/markdown; charset=utf-8",
	".txt":   "text/plain; charset=utf-8",
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json",
	".xml":   "application/xml",
	".yaml":  "text/yaml; charset=utf-8",
	".yml":   "text/yaml; charset=utf-8",
	".toml":  "text/plain; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".avif":  "image/avif",
	".pdf":   "application/pdf",
	".wasm":  "application/wasm",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
}

// ForName returns the content type for a file name or path.
// The extension is matched case-insensitively.
func ForName(name string) string {
	if ct, ok := table[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return OctetStream
}

// IsMarkdown reports whether name has the Markdown extension in any case.
func IsMarkdown(name string) bool {
	return strings.EqualFold(path.Ext(name), Markdown)
}
