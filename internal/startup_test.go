package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mdserve/internal/testutil"
)

func serveConfig(entry string) ServeConfig {
	cfg := NewDefaultConfig().Serve
	cfg.Entry = entry
	return cfg
}

func canonicalDir(t *testing.T, dir string) string {
	t.Helper()
	c, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDeriveLayout_EntryInsideCwd(t *testing.T) {
	cwd := canonicalDir(t, t.TempDir())
	testutil.WriteFiles(t, cwd, map[string]string{"docs/My Guide.md": "# Guide"})

	l, err := DeriveLayout(cwd, serveConfig("docs/My Guide.md"))
	if err != nil {
		t.Fatal(err)
	}
	if l.Root != cwd || l.OutsideCwd {
		t.Errorf("root = %q, outside = %v", l.Root, l.OutsideCwd)
	}
	if l.EntryURL != "/docs/My%20Guide.md" {
		t.Errorf("entry url = %q", l.EntryURL)
	}
}

func TestDeriveLayout_EntryOutsideCwd(t *testing.T) {
	cwd := canonicalDir(t, t.TempDir())
	other := canonicalDir(t, t.TempDir())
	testutil.WriteFiles(t, other, map[string]string{"notes/a.md": "# A"})

	l, err := DeriveLayout(cwd, serveConfig(filepath.Join(other, "notes", "a.md")))
	if err != nil {
		t.Fatal(err)
	}
	if l.Root != filepath.Join(other, "notes") || !l.OutsideCwd {
		t.Errorf("root = %q, outside = %v", l.Root, l.OutsideCwd)
	}
	if l.EntryURL != "/a.md" {
		t.Errorf("entry url = %q", l.EntryURL)
	}
}

func TestDeriveLayout_DirectoryEntry(t *testing.T) {
	cwd := canonicalDir(t, t.TempDir())
	other := canonicalDir(t, t.TempDir())
	testutil.WriteFiles(t, other, map[string]string{"index.md": "# Index"})

	l, err := DeriveLayout(cwd, serveConfig(other))
	if err != nil {
		t.Fatal(err)
	}
	if l.Root != other || l.EntryURL != "/index.md" {
		t.Errorf("layout = %+v", l)
	}
}

func TestDeriveLayout_DirectoryWithoutIndex(t *testing.T) {
	cwd := canonicalDir(t, t.TempDir())
	testutil.WriteFiles(t, cwd, map[string]string{"a.txt": "a"})

	l, err := DeriveLayout(cwd, serveConfig(""))
	if err != nil {
		t.Fatal(err)
	}
	if l.Root != cwd || l.Entry != "" || l.EntryURL != "" {
		t.Errorf("layout = %+v", l)
	}
}

func TestDeriveLayout_MissingEntry(t *testing.T) {
	cwd := t.TempDir()
	_, err := DeriveLayout(cwd, serveConfig("nope.md"))
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("err = %v, want ErrEntryNotFound", err)
	}
}

func TestDeriveLayout_ExplicitRoot(t *testing.T) {
	cwd := canonicalDir(t, t.TempDir())
	testutil.WriteFiles(t, cwd, map[string]string{"site/docs/a.md": "# A", "b.md": "# B"})

	cfg := serveConfig("site/docs/a.md")
	cfg.Root = "site"
	l, err := DeriveLayout(cwd, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l.Root != filepath.Join(cwd, "site") || l.EntryURL != "/docs/a.md" {
		t.Errorf("layout = %+v", l)
	}

	cfg.Entry = "b.md"
	if _, err := DeriveLayout(cwd, cfg); err == nil {
		t.Error("expected error for entry outside the explicit root")
	}
}

func TestDeriveLayout_SymlinkedEntry(t *testing.T) {
	cwd := canonicalDir(t, t.TempDir())
	other := canonicalDir(t, t.TempDir())
	testutil.WriteFiles(t, other, map[string]string{"real.md": "# Real"})
	testutil.Symlink(t, filepath.Join(other, "real.md"), filepath.Join(cwd, "link.md"))

	l, err := DeriveLayout(cwd, serveConfig("link.md"))
	if err != nil {
		t.Fatal(err)
	}
	// The entry canonicalizes outside cwd, so the root follows it.
	if l.Root != other || l.EntryURL != "/real.md" {
		t.Errorf("layout = %+v", l)
	}
	if _, err := os.Stat(l.Entry); err != nil {
		t.Error(err)
	}
}

func TestWithin(t *testing.T) {
	sep := string(filepath.Separator)
	root := sep + "srv"
	cases := []struct {
		p    string
		want bool
	}{
		{root, true},
		{root + sep + "a.md", true},
		{root + sep + "a" + sep, true},
		{sep + "srv2" + sep, false},
		{sep + "other", false},
	}
	for _, c := range cases {
		if got := within(root, c.p); got != c.want {
			t.Errorf("within(%q, %q) = %v, want %v", root, c.p, got, c.want)
		}
	}
	if !within(sep, sep+"x") {
		t.Error("everything is within the filesystem root")
	}
}
