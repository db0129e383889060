package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/starford/mdserve/internal/apperr"
	"github.com/starford/mdserve/internal/checksum"
	"github.com/starford/mdserve/internal/contenttype"
	"github.com/starford/mdserve/internal/models"
)

// DefaultWorkers bounds concurrent filesystem calls when no limit is given.
const DefaultWorkers = 32

// Tree is a read-only view of the serve root. The root is stored in its
// canonical form (absolute, symlinks evaluated) and never changes.
//
// Every blocking filesystem call holds one slot of a weighted semaphore;
// at most workers calls are in flight at once.
type Tree struct {
	root string
	gate *semaphore.Weighted
}

// NewTree creates a Tree rooted at the given directory.
// The directory must already exist.
func NewTree(root string, workers int64) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: canonicalize root: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", canonical)
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Tree{root: canonical, gate: semaphore.NewWeighted(workers)}, nil
}

// Root returns the canonical serve root.
func (t *Tree) Root() string { return t.root }

// Contains reports whether the canonical path p is the root or lies beneath it.
func (t *Tree) Contains(p string) bool {
	return p == t.root || strings.HasPrefix(p, t.root+string(os.PathSeparator))
}

// Join returns the absolute path of the slash-separated segments under root.
// Segments are expected to be normalized already.
func (t *Tree) Join(segments ...string) string {
	return filepath.Join(append([]string{t.root}, segments...)...)
}

// Rel returns the slash-separated path of abs relative to root, and false
// when abs is outside the root. The root itself is "".
func (t *Tree) Rel(abs string) (string, bool) {
	if !t.Contains(abs) {
		return "", false
	}
	rel, err := filepath.Rel(t.root, abs)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

// Do runs fn while holding one worker slot. It fails without calling fn
// when ctx ends first.
func (t *Tree) Do(ctx context.Context, fn func() error) error {
	if err := t.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.gate.Release(1)
	return fn()
}

// Stat follows symlinks.
func (t *Tree) Stat(ctx context.Context, abs string) (fs.FileInfo, error) {
	var info fs.FileInfo
	err := t.Do(ctx, func() (err error) {
		info, err = os.Stat(abs)
		return err
	})
	return info, err
}

// Canonical evaluates every symlink in abs and returns the absolute result.
func (t *Tree) Canonical(ctx context.Context, abs string) (string, error) {
	var out string
	err := t.Do(ctx, func() (err error) {
		out, err = filepath.EvalSymlinks(abs)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// ReadFile reads the whole file at abs.
func (t *Tree) ReadFile(ctx context.Context, abs string) ([]byte, error) {
	var data []byte
	err := t.Do(ctx, func() (err error) {
		data, err = os.ReadFile(abs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", abs, err)
	}
	return data, nil
}

// ReadDir lists the immediate children of abs in directory order.
func (t *Tree) ReadDir(ctx context.Context, abs string) ([]fs.DirEntry, error) {
	var entries []fs.DirEntry
	err := t.Do(ctx, func() (err error) {
		entries, err = os.ReadDir(abs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", abs, err)
	}
	return entries, nil
}

// SafePath resolves a slash-separated path relative to the root and rejects
// any result that escapes it, lexically or through a symlink.
func (t *Tree) SafePath(ctx context.Context, rel string) (string, error) {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	if rel == "" {
		return t.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s: %w", rel, apperr.ErrDenied)
	}
	joined := filepath.Join(t.root, cleaned)
	canonical, err := t.Canonical(ctx, joined)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("storage: %s: %w", rel, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("storage: canonicalize %s: %w", rel, err)
	}
	if !t.Contains(canonical) {
		return "", fmt.Errorf("storage: path escapes root: %s: %w", rel, apperr.ErrDenied)
	}
	return canonical, nil
}

// List walks dir (relative to root) and returns metadata for every Markdown
// file. Dot-directories and dotfiles are skipped, as are symlinks.
func (t *Tree) List(ctx context.Context, dir string) ([]models.DocumentMeta, error) {
	base, err := t.SafePath(ctx, dir)
	if err != nil {
		return nil, err
	}
	var out []models.DocumentMeta
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p != base && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !contenttype.IsMarkdown(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := t.ReadFile(ctx, p)
		if err != nil {
			return err
		}
		rel, _ := t.Rel(p)
		out = append(out, models.DocumentMeta{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of the file at rel.
func (t *Tree) Read(ctx context.Context, rel string) ([]byte, error) {
	abs, err := t.SafePath(ctx, rel)
	if err != nil {
		return nil, err
	}
	return t.ReadFile(ctx, abs)
}
