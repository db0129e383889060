// Package rewrite resolves relative document links to root-relative form and
// assigns unique heading anchors, in one traversal of a doctree.
package rewrite

import (
	"net/url"
	"strings"

	"github.com/starford/mdserve/internal/models"
)

// Classify returns the class of a link destination.
func Classify(href string) models.LinkClass {
	switch {
	case href == "" || strings.HasPrefix(href, "#"):
		return models.LinkFragment
	case strings.HasPrefix(href, "//"):
		return models.LinkExternal
	case strings.HasPrefix(href, "/"):
		return models.LinkRootRelative
	}
	if scheme, ok := uriScheme(href); ok {
		switch strings.ToLower(scheme) {
		case "mailto", "tel":
			return models.LinkMail
		}
		return models.LinkExternal
	}
	return models.LinkLocal
}

// uriScheme reports the RFC 3986 scheme of href, if it has one. A colon
// after the first "/", "?" or "#" belongs to the path.
func uriScheme(href string) (string, bool) {
	for i := 0; i < len(href); i++ {
		c := href[i]
		switch {
		case c == ':':
			return href[:i], i > 0
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", false
		}
	}
	return "", false
}

// Split separates href into path, query and fragment, without their
// leading "?" and "#". hasQuery and hasFragment record whether the
// delimiters were present at all.
func Split(href string) (p, query, fragment string, hasQuery, hasFragment bool) {
	p = href
	if i := strings.IndexByte(p, '#'); i >= 0 {
		p, fragment, hasFragment = p[:i], p[i+1:], true
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p, query, hasQuery = p[:i], p[i+1:], true
	}
	return p, query, fragment, hasQuery, hasFragment
}

// Resolve joins a local relative href onto the directory docDir
// (root-relative, slash-separated, "" for the root) and returns the
// root-relative result with query and fragment reattached.
//
// docDir holds decoded file names and is escaped segment by segment; the
// href is already in URL form and is kept as written.
//
// The result keeps the presence or absence of an extension and of a
// trailing slash. ok is false when the href has no path component, or when
// its ".." segments would climb above the root; such links are left as written.
func Resolve(href, docDir string) (string, bool) {
	p, query, fragment, hasQuery, hasFragment := Split(href)
	if p == "" {
		return "", false
	}

	var stack []string
	for _, seg := range strings.Split(docDir, "/") {
		if seg != "" {
			stack = append(stack, url.PathEscape(seg))
		}
	}
	segs := strings.Split(p, "/")
	for _, seg := range segs {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) == 0 {
				return "", false
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}

	var b strings.Builder
	b.WriteString("/")
	b.WriteString(strings.Join(stack, "/"))
	if last := segs[len(segs)-1]; (last == "" || last == "." || last == "..") && len(stack) > 0 {
		b.WriteString("/")
	}
	if hasQuery {
		b.WriteString("?")
		b.WriteString(query)
	}
	if hasFragment {
		b.WriteString("#")
		b.WriteString(fragment)
	}
	return b.String(), true
}
