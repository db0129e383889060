// Package present builds directory listings and error bodies.
package present

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/text/cases"

	"github.com/starford/mdserve/internal/models"
	"github.com/starford/mdserve/internal/render"
	"github.com/starford/mdserve/internal/storage"
)

// DenialBody is the whole body of a denied request. It names no path.
const DenialBody = "Not Found"

// Options configures a Presenter.
type Options struct {
	// Ignore holds glob patterns; matching names are left out of listings.
	Ignore []string
	// EntryURL is the URL of the entry document, linked from not-found pages.
	EntryURL string
}

// Presenter renders listings and not-found pages for a storage.Tree.
type Presenter struct {
	tree     *storage.Tree
	ignore   []glob.Glob
	entryURL string
}

// New compiles the ignore patterns and returns a Presenter.
func New(tree *storage.Tree, opts Options) (*Presenter, error) {
	p := &Presenter{tree: tree, entryURL: opts.EntryURL}
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("present: ignore pattern %q: %w", pattern, err)
		}
		p.ignore = append(p.ignore, g)
	}
	return p, nil
}

// Entries lists the visible children of the in-root directory dir.
//
// Dotfiles and ignored names are dropped. Symlinks are kept only when their
// canonical target is inside the root; they are listed as what they point
// to. Directories come first, then files, each group in case-insensitive
// alphabetical order.
func (p *Presenter) Entries(ctx context.Context, dir string) ([]models.DirectoryEntry, error) {
	children, err := p.tree.ReadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	out := make([]models.DirectoryEntry, 0, len(children))
	for _, c := range children {
		name := c.Name()
		if strings.HasPrefix(name, ".") || p.ignored(name) {
			continue
		}
		entry := models.DirectoryEntry{Name: name, IsDir: c.IsDir()}
		if c.Type()&fs.ModeSymlink != 0 {
			target, err := p.tree.Canonical(ctx, filepath.Join(dir, name))
			if err != nil || !p.tree.Contains(target) {
				continue
			}
			info, err := p.tree.Stat(ctx, target)
			if err != nil {
				continue
			}
			entry.IsDir = info.IsDir()
			entry.Symlink = true
		}
		out = append(out, entry)
	}
	SortEntries(out)
	return out, nil
}

func (p *Presenter) ignored(name string) bool {
	for _, g := range p.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// SortEntries orders directories before files, each group by case-folded
// name, falling back to the raw name for a stable order.
func SortEntries(entries []models.DirectoryEntry) {
	fold := cases.Fold()
	keys := make(map[string]string, len(entries))
	for _, e := range entries {
		keys[e.Name] = fold.String(e.Name)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		if ka, kb := keys[a.Name], keys[b.Name]; ka != kb {
			return ka < kb
		}
		return a.Name < b.Name
	})
}

// Breadcrumbs returns the trail from the root down to dirRel.
func Breadcrumbs(dirRel string) []render.Crumb {
	crumbs := []render.Crumb{{Name: "root", Href: "/"}}
	var walked []string
	for _, seg := range strings.Split(dirRel, "/") {
		if seg == "" {
			continue
		}
		walked = append(walked, seg)
		crumbs = append(crumbs, render.Crumb{
			Name: seg,
			Href: render.URLPath(strings.Join(walked, "/"), true),
		})
	}
	return crumbs
}

// View builds the listing data for the in-root directory dir, whose
// root-relative path is dirRel.
func (p *Presenter) View(ctx context.Context, dir, dirRel string) (render.Listing, error) {
	entries, err := p.Entries(ctx, dir)
	if err != nil {
		return render.Listing{}, err
	}
	view := render.Listing{
		DisplayPath: render.URLPath(dirRel, true),
		Href:        render.URLPath(dirRel, true),
		Crumbs:      Breadcrumbs(dirRel),
		Entries:     make([]render.Entry, 0, len(entries)),
	}
	for _, e := range entries {
		view.Entries = append(view.Entries, render.Entry{
			Name:  e.Name,
			Href:  render.URLPath(path.Join(dirRel, e.Name), e.IsDir),
			IsDir: e.IsDir,
		})
	}
	return view, nil
}

// Listing renders the listing page of dir.
func (p *Presenter) Listing(ctx context.Context, dir, dirRel string) ([]byte, error) {
	view, err := p.View(ctx, dir, dirRel)
	if err != nil {
		return nil, err
	}
	return render.ListingPage(view)
}

// NotFound renders the not-found page for the normalized request path
// requested, embedding the listing of the nearest existing ancestor.
func (p *Presenter) NotFound(ctx context.Context, requested, nearest, nearestRel string) ([]byte, error) {
	view, err := p.View(ctx, nearest, nearestRel)
	if err != nil {
		return nil, err
	}
	return render.NotFoundPage(render.NotFound{
		Requested: requested,
		EntryURL:  p.entryURL,
		Nearest:   view,
	})
}

// TooLargeBody is the plain-text body of a 413 response.
func TooLargeBody(display string, size, limit int64) string {
	return fmt.Sprintf("Content Too Large: %s (%d bytes exceeds %d byte limit)\n", display, size, limit)
}
