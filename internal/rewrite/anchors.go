package rewrite

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// emptySlug stands in for headings whose text has no letters or digits.
const emptySlug = "section"

// Slugify lowercases text, turns spaces, hyphens and underscores into
// hyphens, drops every other non-alphanumeric rune, collapses hyphen runs
// and trims hyphens from both ends.
func Slugify(text string) string {
	var b strings.Builder
	pendingHyphen := false
	// A Caser is stateful; each call gets its own.
	for _, r := range cases.Lower(language.Und).String(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '\t':
			pendingHyphen = true
		}
	}
	if b.Len() == 0 {
		return emptySlug
	}
	return b.String()
}

// Anchors hands out document-unique heading ids. The first heading with a
// given slug gets the bare slug, later ones get -1, -2, ... whatever their
// level. A suffixed id that collides with a slug already handed out is
// skipped. An Anchors value belongs to one document.
type Anchors struct {
	counts map[string]int
	used   map[string]struct{}
}

// NewAnchors returns an empty per-document anchor set.
func NewAnchors() *Anchors {
	return &Anchors{counts: map[string]int{}, used: map[string]struct{}{}}
}

// Assign returns the anchor id for a heading with the given text.
func (a *Anchors) Assign(text string) string {
	base := Slugify(text)
	if _, taken := a.used[base]; !taken {
		a.used[base] = struct{}{}
		a.counts[base] = 1
		return base
	}
	for {
		n := a.counts[base]
		if n == 0 {
			n = 1
		}
		a.counts[base] = n + 1
		id := base + "-" + strconv.Itoa(n)
		if _, taken := a.used[id]; !taken {
			a.used[id] = struct{}{}
			return id
		}
	}
}
