package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/mdserve/internal/render"
)

// DefaultEntry is the entry used when none is given.
const DefaultEntry = "README.md"

// ErrEntryNotFound is returned when the entry document or directory does not exist.
var ErrEntryNotFound = errors.New("entry not found")

// Layout is the serve root and entry document derived at startup.
type Layout struct {
	// Root is the canonical serve root.
	Root string
	// Entry is the canonical path of the entry document, or "" when the
	// entry is a directory without an index document.
	Entry string
	// EntryURL is the percent-encoded URL path of Entry, or "".
	EntryURL string
	// OutsideCwd is set when the root was moved away from the working
	// directory to contain the entry.
	OutsideCwd bool
}

// DeriveLayout works out what to serve from the working directory and the
// serve configuration.
//
// With no explicit root, an entry inside cwd keeps cwd as the root; any
// other entry roots the server at the entry's directory (or the entry
// itself when it is a directory). A directory entry is replaced by its
// first existing index document.
func DeriveLayout(cwd string, serve ServeConfig) (Layout, error) {
	canonicalCwd, err := canonical(cwd)
	if err != nil {
		return Layout{}, fmt.Errorf("startup: working directory: %w", err)
	}

	entry := serve.Entry
	if entry == "" {
		entry = "."
	}
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(canonicalCwd, entry)
	}
	canonicalEntry, err := filepath.EvalSymlinks(entry)
	if err != nil {
		return Layout{}, fmt.Errorf("startup: %s: %w", serve.Entry, ErrEntryNotFound)
	}
	info, err := os.Stat(canonicalEntry)
	if err != nil {
		return Layout{}, fmt.Errorf("startup: %s: %w", serve.Entry, ErrEntryNotFound)
	}

	var l Layout
	switch {
	case serve.Root != "":
		root := serve.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(canonicalCwd, root)
		}
		if l.Root, err = canonical(root); err != nil {
			return Layout{}, fmt.Errorf("startup: serve root: %w", err)
		}
	case within(canonicalCwd, canonicalEntry):
		l.Root = canonicalCwd
	case info.IsDir():
		l.Root = canonicalEntry
		l.OutsideCwd = true
	default:
		l.Root = filepath.Dir(canonicalEntry)
		l.OutsideCwd = true
	}

	l.Entry = canonicalEntry
	if info.IsDir() {
		l.Entry = indexDocument(canonicalEntry, serve.IndexNames)
	}
	if l.Entry == "" {
		return l, nil
	}
	if !within(l.Root, l.Entry) {
		return Layout{}, fmt.Errorf("startup: entry %s is outside serve root %s", l.Entry, l.Root)
	}
	rel, _ := filepath.Rel(l.Root, l.Entry)
	l.EntryURL = render.URLPath(filepath.ToSlash(rel), false)
	return l, nil
}

func indexDocument(dir string, names []string) string {
	for _, name := range names {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if c, err := filepath.EvalSymlinks(p); err == nil {
			return c
		}
	}
	return ""
}

func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// within reports whether p is root or below it. Both must be canonical.
func within(root, p string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}
