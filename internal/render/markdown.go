// Package render turns Markdown into HTML pages and renders the generated
// listing and not-found pages.
package render

import (
	"html/template"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/starford/mdserve/internal/doctree"
	"github.com/starford/mdserve/internal/models"
	"github.com/starford/mdserve/internal/parser"
	"github.com/starford/mdserve/internal/rewrite"
)

// Document is a rendered Markdown document.
type Document struct {
	Content  template.HTML
	Title    string
	Tags     []string
	Headings []models.HeadingEntry
	Links    []models.LinkReference
	// Body is the Markdown after front matter.
	Body []byte
}

// Markdown parses source, rewrites its links relative to docRel (the
// document's slash-separated, root-relative path) and renders it.
func Markdown(source []byte, docRel string) (*Document, error) {
	res := parser.Parse(source)
	tree := doctree.Parse(res.Body)
	rw := rewrite.Apply(tree.Root(), docRel)
	out, err := tree.HTML()
	if err != nil {
		return nil, err
	}

	slog.Debug("render: document",
		slog.String("path", docRel),
		slog.Int("headings", len(rw.Headings)),
		slog.Int("links", len(rw.Links)))

	return &Document{
		// Raw HTML in the source is omitted by the renderer.
		Content:  template.HTML(out), //nolint:gosec
		Title:    pickTitle(res.Title, rw.Headings, docRel),
		Tags:     res.Tags,
		Headings: rw.Headings,
		Links:    rw.Links,
		Body:     res.Body,
	}, nil
}

// pickTitle falls back from front matter to the first H1, the file stem,
// then "Document".
func pickTitle(fmTitle string, headings []models.HeadingEntry, docRel string) string {
	if fmTitle != "" {
		return fmTitle
	}
	for _, h := range headings {
		if h.Level == 1 && h.Text != "" {
			return h.Text
		}
	}
	if stem := strings.TrimSuffix(path.Base(docRel), path.Ext(docRel)); stem != "" && stem != "." && stem != "/" {
		return stem
	}
	return "Document"
}

// URLPath percent-encodes each segment of a root-relative path and returns it
// with a leading slash, plus a trailing slash when dir is set.
func URLPath(rel string, dir bool) string {
	var b strings.Builder
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	if dir || b.Len() == 0 {
		b.WriteByte('/')
	}
	return b.String()
}
