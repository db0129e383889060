// Package resolve maps request paths onto the serve root.
//
// Resolution is strict and ordered: percent-decode, normalize, then try the
// exact file, the extensionless Markdown fallback, a directory index document
// and finally a directory listing. Anything chosen is canonicalized and must
// still lie inside the root; a request never reaches a byte outside it.
package resolve

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/starford/mdserve/internal/contenttype"
	"github.com/starford/mdserve/internal/storage"
)

// DefaultMaxFileSize is the largest file served when no limit is configured.
const DefaultMaxFileSize int64 = 16 << 20

// DefaultIndexNames are the preferred directory index documents, in order.
var DefaultIndexNames = []string{"README.md", "index.md"}

// Options configures a Resolver.
type Options struct {
	MaxFileSize int64
	IndexNames  []string
}

// Resolver resolves request paths against a storage.Tree.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	tree       *storage.Tree
	maxSize    int64
	indexNames []string
}

// New creates a Resolver.
func New(tree *storage.Tree, opts Options) *Resolver {
	r := &Resolver{
		tree:       tree,
		maxSize:    opts.MaxFileSize,
		indexNames: opts.IndexNames,
	}
	if r.maxSize <= 0 {
		r.maxSize = DefaultMaxFileSize
	}
	if len(r.indexNames) == 0 {
		r.indexNames = DefaultIndexNames
	}
	return r
}

// MaxFileSize returns the configured size limit in bytes.
func (r *Resolver) MaxFileSize() int64 { return r.maxSize }

// Decode percent-decodes a URL path. Malformed escapes, invalid UTF-8 and
// NUL bytes are rejected.
func Decode(raw string) (string, DenyReason) {
	decoded, err := url.PathUnescape(raw)
	if err != nil || !utf8.ValidString(decoded) {
		return "", ReasonBadEncoding
	}
	if strings.IndexByte(decoded, 0) >= 0 {
		return "", ReasonNullByte
	}
	return decoded, ReasonNone
}

// Normalize splits a decoded path into segments, dropping empty and "."
// segments and popping one segment per "..". It returns false when a ".."
// would climb above the root.
func Normalize(decoded string) ([]string, bool) {
	var stack []string
	for _, seg := range strings.Split(decoded, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) == 0 {
				return nil, false
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}
	if len(stack) == 0 {
		return nil, true
	}
	return stack, true
}

// Resolve maps the escaped URL path rawPath to an Outcome.
func (r *Resolver) Resolve(ctx context.Context, rawPath string) Outcome {
	decoded, reason := Decode(rawPath)
	if reason != ReasonNone {
		return denied(reason)
	}
	segs, ok := Normalize(decoded)
	if !ok {
		return denied(ReasonTraversal)
	}
	if len(segs) == 0 {
		// The root always lists, even when it holds an index document.
		return r.listing(ctx, r.tree.Root(), "")
	}

	rel := strings.Join(segs, "/")
	abs := r.tree.Join(segs...)
	info, err := r.tree.Stat(ctx, abs)
	if err == nil && info.Mode().IsRegular() {
		return r.file(ctx, abs, rel, BranchExact)
	}
	if path.Ext(segs[len(segs)-1]) == "" {
		md := abs + contenttype.Markdown
		if fi, mdErr := r.tree.Stat(ctx, md); mdErr == nil && fi.Mode().IsRegular() {
			return r.file(ctx, md, rel+contenttype.Markdown, BranchExtensionless)
		}
	}
	if err == nil && info.IsDir() {
		for _, name := range r.indexNames {
			p := filepath.Join(abs, name)
			if fi, idxErr := r.tree.Stat(ctx, p); idxErr == nil && fi.Mode().IsRegular() {
				return r.file(ctx, p, rel+"/"+name, BranchDirectoryIndex)
			}
		}
		return r.listing(ctx, abs, rel)
	}
	return r.notFound(ctx, segs)
}

func (r *Resolver) file(ctx context.Context, candidate, rel string, branch Branch) Outcome {
	canonical, err := r.tree.Canonical(ctx, candidate)
	if err != nil {
		return denied(ReasonCanonicalize)
	}
	if !r.tree.Contains(canonical) {
		return denied(ReasonOutsideRoot)
	}
	info, err := r.tree.Stat(ctx, canonical)
	if err != nil {
		return denied(ReasonCanonicalize)
	}

	out := Outcome{
		Branch:    branch,
		Path:      canonical,
		Rel:       rel,
		Requested: "/" + rel,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
	}
	if info.Size() > r.maxSize {
		out.Kind = KindTooLarge
		return out
	}
	if contenttype.IsMarkdown(canonical) {
		out.Kind = KindMarkdown
		out.ContentType = "text/html; charset=utf-8"
	} else {
		out.Kind = KindStatic
		out.ContentType = contenttype.ForName(canonical)
	}
	return out
}

func (r *Resolver) listing(ctx context.Context, dir, rel string) Outcome {
	canonical, err := r.tree.Canonical(ctx, dir)
	if err != nil {
		return denied(ReasonCanonicalize)
	}
	if !r.tree.Contains(canonical) {
		return denied(ReasonOutsideRoot)
	}
	out := Outcome{
		Kind:        KindListing,
		Branch:      BranchDirectoryListing,
		Path:        canonical,
		Rel:         rel,
		Requested:   "/" + rel,
		ContentType: "text/html; charset=utf-8",
	}
	if info, err := r.tree.Stat(ctx, canonical); err == nil {
		out.ModTime = info.ModTime()
	}
	return out
}

// notFound walks up from the request's parent to the first existing
// directory that is still inside the root once canonicalized.
func (r *Resolver) notFound(ctx context.Context, segs []string) Outcome {
	out := Outcome{
		Kind:        KindNotFound,
		Branch:      BranchNotFound,
		Path:        r.tree.Root(),
		Requested:   "/" + strings.Join(segs, "/"),
		ContentType: "text/html; charset=utf-8",
	}
	for i := len(segs) - 1; i > 0; i-- {
		dir := r.tree.Join(segs[:i]...)
		info, err := r.tree.Stat(ctx, dir)
		if err != nil || !info.IsDir() {
			continue
		}
		canonical, err := r.tree.Canonical(ctx, dir)
		if err != nil || !r.tree.Contains(canonical) {
			continue
		}
		out.Path = canonical
		out.Rel = strings.Join(segs[:i], "/")
		return out
	}
	return out
}
