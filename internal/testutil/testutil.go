// Package testutil provides shared test helpers for building serve roots and indexes.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mdserve/internal/index"
	"github.com/starford/mdserve/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mdserve-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// WriteFiles creates each file (slash-separated path -> content) under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TestTree creates a temporary serve root holding files and returns it with
// its directory.
func TestTree(t *testing.T, files map[string]string) (*storage.Tree, string) {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)
	tree, err := storage.NewTree(root, 8)
	if err != nil {
		t.Fatal(err)
	}
	return tree, root
}

// NestedTree creates a temporary directory with a serve root at <dir>/root,
// so tests can place files just outside the root. It returns the tree, the
// root directory and the outer directory.
func NestedTree(t *testing.T, inside, outside map[string]string) (*storage.Tree, string, string) {
	t.Helper()
	outer := t.TempDir()
	root := filepath.Join(outer, "root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	WriteFiles(t, outer, outside)
	WriteFiles(t, root, inside)
	tree, err := storage.NewTree(root, 8)
	if err != nil {
		t.Fatal(err)
	}
	return tree, root, outer
}

// Symlink creates a symlink at link pointing to target, skipping the test
// when the platform refuses.
func Symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
}
