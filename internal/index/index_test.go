package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/mdserve/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "mdserve-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "index.db")
	for range 2 {
		db, err := Open(dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		var version int
		if err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
			t.Fatal(err)
		}
		if version != len(migrations) {
			t.Errorf("user_version = %d, want %d", version, len(migrations))
		}
		db.Close()
	}

	db, _ := Open(dsn)
	_, _ = db.conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, len(migrations)+1))
	db.Close()
	if _, err := Open(dsn); err == nil {
		t.Error("Open should refuse a newer schema")
	}
}

func TestDeleteDocument_CascadesLinks(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "a.md", Checksum: "a", UpdatedAt: now}, "", []LinkRow{{Target: "b.md"}})
	if err := db.DeleteDocument("a.md"); err != nil {
		t.Fatal(err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&n)
	if n != 0 {
		t.Errorf("links left behind: %d", n)
	}
}

func TestOpenMemory(t *testing.T) {
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.UpsertDocument(DocumentRow{Path: "m.md", Checksum: "1", UpdatedAt: time.Now()}, "body", nil); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("m.md")
	if err != nil || cs != "1" {
		t.Fatalf("GetChecksum = %q, %v", cs, err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertDocument(row, "This is a hello world document.", []LinkRow{{Target: "other.md"}}); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "c.md", Title: "Charlie", Checksum: "2", UpdatedAt: now}, "body",
		[]LinkRow{{Target: "b.md", Fragment: "intro", Snippet: "see b"}})
	_ = db.UpsertDocument(DocumentRow{Path: "a.md", Checksum: "1", UpdatedAt: now}, "body",
		[]LinkRow{{Target: "b"}})
	_ = db.UpsertDocument(DocumentRow{Path: "b.md", Checksum: "3", UpdatedAt: now}, "body",
		[]LinkRow{{Target: "b.md"}})

	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("expected 2 backlinks, got %+v", bl)
	}
	if bl[0].Source != "a.md" || bl[0].SourceTitle != "a.md" {
		t.Errorf("first backlink = %+v", bl[0])
	}
	if bl[1].Source != "c.md" || bl[1].SourceTitle != "Charlie" || bl[1].Fragment != "intro" || bl[1].Snippet != "see b" {
		t.Errorf("second backlink = %+v", bl[1])
	}
}

func TestBacklinks_DirectoryIndex(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "x.md", Checksum: "1", UpdatedAt: now}, "body",
		[]LinkRow{{Target: "docs"}})
	_ = db.UpsertDocument(DocumentRow{Path: "y.md", Checksum: "2", UpdatedAt: now}, "body",
		[]LinkRow{{Target: ""}})

	bl, _ := db.Backlinks("docs/README.md")
	if len(bl) != 1 || bl[0].Source != "x.md" {
		t.Errorf("docs/README.md backlinks = %+v", bl)
	}
	bl, _ = db.Backlinks("index.md")
	if len(bl) != 1 || bl[0].Source != "y.md" {
		t.Errorf("index.md backlinks = %+v", bl)
	}
	bl, _ = db.Backlinks("docs/other.md")
	if len(bl) != 0 {
		t.Errorf("docs/other.md backlinks = %+v", bl)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "del.md", Checksum: "x", UpdatedAt: time.Now()}, "body", []LinkRow{{Target: "target.md"}})

	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target.md")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "up.md", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body", []LinkRow{{Target: "x.md"}})
	_ = db.UpsertDocument(DocumentRow{Path: "up.md", Title: "New", Checksum: "2", Tags: []string{"new"}, UpdatedAt: now}, "new body", []LinkRow{{Target: "y.md"}})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	bl, _ := db.Backlinks("x.md")
	if len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	bl, _ = db.Backlinks("y.md")
	if len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "s.md", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestLinkTarget(t *testing.T) {
	tests := []struct {
		in, key, fragment string
		ok                bool
	}{
		{"/docs/a.md", "docs/a.md", "", true},
		{"/docs/a%20b.md#setup", "docs/a b.md", "setup", true},
		{"/docs/?x=1", "docs", "", true},
		{"/", "", "", true},
		{"/bad%zz.md", "", "", false},
	}
	for _, tt := range tests {
		key, fragment, ok := LinkTarget(tt.in)
		if key != tt.key || fragment != tt.fragment || ok != tt.ok {
			t.Errorf("LinkTarget(%q) = %q, %q, %v", tt.in, key, fragment, ok)
		}
	}
}

func TestSync(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.md", "# Alpha\n\nSee [guide](docs/guide.md#setup).\n")
	write("docs/guide.md", "---\ntitle: Guide\n---\nBody with [up](../a.md).\n")
	write(".hidden/skip.md", "# hidden")

	tree, err := storage.NewTree(root, 4)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "stale.md", Checksum: "s", UpdatedAt: time.Now()}, "", nil)

	if err := Sync(context.Background(), db, tree, discardLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	all, _ := db.AllChecksums()
	if len(all) != 2 {
		t.Fatalf("indexed = %v, want a.md and docs/guide.md", all)
	}
	if _, ok := all["stale.md"]; ok {
		t.Error("stale entry survived sync")
	}

	bl, _ := db.Backlinks("docs/guide.md")
	if len(bl) != 1 || bl[0].Source != "a.md" || bl[0].SourceTitle != "Alpha" || bl[0].Fragment != "setup" {
		t.Errorf("guide backlinks = %+v", bl)
	}
	bl, _ = db.Backlinks("a.md")
	if len(bl) != 1 || bl[0].SourceTitle != "Guide" {
		t.Errorf("a.md backlinks = %+v", bl)
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = db.UpsertDocument(DocumentRow{Path: "b.md", Title: "alpha", Checksum: "1", Tags: []string{"go"}, UpdatedAt: base}, "", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "a.md", Title: "Zulu", Checksum: "2", UpdatedAt: base.Add(time.Hour)}, "", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "c.md", Title: "Mike", Checksum: "3", Tags: []string{"go", "web"}, UpdatedAt: base.Add(2 * time.Hour)}, "", nil)

	paths := func(rows []DocumentRow) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.Path)
		}
		return out
	}

	cases := []struct {
		sort  string
		tag   string
		limit int
		want  string
		total int
	}{
		{"", "", 0, "a.md b.md c.md", 3},
		{SortTitle, "", 0, "b.md c.md a.md", 3},
		{SortUpdated, "", 0, "c.md a.md b.md", 3},
		{"bogus", "", 2, "a.md b.md", 3},
		{SortPath, "go", 0, "b.md c.md", 2},
		{SortPath, "none", 0, "", 0},
	}
	for _, c := range cases {
		rows, total, err := db.ListDocuments(c.limit, 0, c.tag, c.sort)
		if err != nil {
			t.Fatalf("%+v: %v", c, err)
		}
		if got := strings.Join(paths(rows), " "); got != c.want || total != c.total {
			t.Errorf("sort=%q tag=%q: got %q (total %d), want %q (total %d)", c.sort, c.tag, got, total, c.want, c.total)
		}
	}

	rows, _, _ := db.ListDocuments(1, 2, "", SortPath)
	if len(rows) != 1 || rows[0].Path != "c.md" || len(rows[0].Tags) != 2 {
		t.Errorf("offset page = %+v", rows)
	}
	if !rows[0].UpdatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("updated_at = %v", rows[0].UpdatedAt)
	}
}
