package contenttype

import "testing"

func TestForName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"style.css", "text/css; charset=utf-8"},
		{"img/Logo.PNG", "image/png"},
		{"data.json", "application/json"},
		{"archive.tar.gz", OctetStream},
		{"Makefile", OctetStream},
		{"notes.md", "text/markdown; charset=utf-8"},
	}
	for _, tc := range tests {
		if got := ForName(tc.name); got != tc.want {
			t.Errorf("ForName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestIsMarkdown(t *testing.T) {
	for _, n := range []string{"a.md", "docs/B.MD", "c.Md"} {
		if !IsMarkdown(n) {
			t.Errorf("IsMarkdown(%q) = false", n)
		}
	}
	for _, n := range []string{"a.markdown", "md", "a.mdx", "a.txt"} {
		if IsMarkdown(n) {
			t.Errorf("IsMarkdown(%q) = true", n)
		}
	}
}
