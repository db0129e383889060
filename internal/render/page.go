package render

import (
	"html/template"
	"time"

	"github.com/starford/mdserve/internal/models"
)

// Page is the data of a rendered document page.
type Page struct {
	Title       string
	DisplayPath string // root-relative file path shown in the header
	URLPath     string // request path the page is served at
	Rel         string // root-relative file path
	ModTime     time.Time
	Headings    []models.HeadingEntry
	Content     template.HTML
	Backlinks   []models.Backlink
}

// MTime is ModTime in Unix seconds, as the freshness endpoint reports it.
func (p Page) MTime() int64 {
	if p.ModTime.IsZero() {
		return 0
	}
	return p.ModTime.Unix()
}

// PageShell renders the full HTML document: header, TOC sidebar, content
// and, when there are any, backlinks.
func PageShell(p Page) ([]byte, error) {
	if p.Title == "" {
		p.Title = "Document"
	}
	return execute("document", p)
}

func backlinkHref(b models.Backlink) string {
	href := URLPath(b.Source, false)
	if b.Fragment != "" {
		href += "#" + b.Fragment
	}
	return href
}

// Crumb is one breadcrumb link.
type Crumb struct {
	Name string
	Href string
}

// Entry is one listing row.
type Entry struct {
	Name  string
	Href  string
	IsDir bool
}

// Listing is the data of a directory listing.
type Listing struct {
	Title       string
	DisplayPath string // "/docs/"
	Href        string
	Crumbs      []Crumb
	Entries     []Entry
}

// NotFound is the data of the not-found page.
type NotFound struct {
	Title       string
	DisplayPath string
	Requested   string
	EntryURL    string
	Nearest     Listing
}

// ListingPage renders a directory listing.
func ListingPage(l Listing) ([]byte, error) {
	if l.Title == "" {
		l.Title = "Index of " + l.DisplayPath
	}
	return execute("listing", l)
}

// NotFoundPage renders the not-found page with the nearest listing embedded.
func NotFoundPage(n NotFound) ([]byte, error) {
	if n.Title == "" {
		n.Title = "Not Found"
	}
	if n.DisplayPath == "" {
		n.DisplayPath = n.Requested
	}
	return execute("not-found", n)
}
