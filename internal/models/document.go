// Package models defines the domain types for mdserve.
package models

import "time"

// HeadingEntry is one heading of a rendered document, in document order.
// AnchorID is unique within the document.
type HeadingEntry struct {
	Level    int    `json:"level"`
	Text     string `json:"text"`
	AnchorID string `json:"anchor_id"`
}

// LinkClass classifies a link destination found in a document.
type LinkClass int

const (
	LinkLocal        LinkClass = iota // relative to the current document
	LinkRootRelative                  // begins with "/"
	LinkFragment                      // "#anchor" or empty
	LinkMail                          // mailto: / tel:
	LinkExternal                      // any other URI scheme, or "//host"
)

var linkClassNames = [...]string{"local", "root-relative", "fragment", "mail", "external"}

func (c LinkClass) String() string {
	if c < 0 || int(c) >= len(linkClassNames) {
		return "unknown"
	}
	return linkClassNames[c]
}

// LinkReference records one link destination seen while rewriting a document.
//
// Target is the root-relative form ("/docs/guide.md#setup") for local and
// root-relative links; it is empty for every other class and for local links
// that would climb above the serve root.
type LinkReference struct {
	Href      string    `json:"href"`
	Class     LinkClass `json:"class"`
	Target    string    `json:"target,omitempty"`
	Rewritten bool      `json:"rewritten"`
	Context   string    `json:"context,omitempty"`
}

// DirectoryEntry is one visible child of a listed directory.
type DirectoryEntry struct {
	Name    string `json:"name"`
	IsDir   bool   `json:"is_dir"`
	Symlink bool   `json:"symlink,omitempty"`
}

// Backlink is a document that links to another one.
type Backlink struct {
	Source      string `json:"source"`
	SourceTitle string `json:"source_title"`
	Fragment    string `json:"fragment,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
}

// DocumentMeta is a lightweight representation returned by list operations.
type DocumentMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
