package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/mdserve/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		href string
		want models.LinkClass
	}{
		{"https://example.com/a.md", models.LinkExternal},
		{"HTTP://EXAMPLE.COM", models.LinkExternal},
		{"//cdn.example.com/x.js", models.LinkExternal},
		{"ftp://host/file", models.LinkExternal},
		{"mailto:me@example.com", models.LinkMail},
		{"MAILTO:me@example.com", models.LinkMail},
		{"tel:+15551234", models.LinkMail},
		{"#setup", models.LinkFragment},
		{"", models.LinkFragment},
		{"/docs/guide.md", models.LinkRootRelative},
		{"guide.md", models.LinkLocal},
		{"./guide", models.LinkLocal},
		{"../other/b.md#x", models.LinkLocal},
		{"a/b:c.md", models.LinkLocal},
		{"?raw=1", models.LinkLocal},
		{"1abc:foo", models.LinkLocal},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.href), tc.href)
	}
}

func TestSplit(t *testing.T) {
	p, q, f, hq, hf := Split("a/b.md?raw=1#top")
	assert.Equal(t, "a/b.md", p)
	assert.Equal(t, "raw=1", q)
	assert.Equal(t, "top", f)
	assert.True(t, hq)
	assert.True(t, hf)

	p, q, f, hq, hf = Split("a#frag?notquery")
	assert.Equal(t, "a", p)
	assert.Empty(t, q)
	assert.Equal(t, "frag?notquery", f)
	assert.False(t, hq)
	assert.True(t, hf)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		href, dir string
		want      string
		ok        bool
	}{
		{"guide.md", "/docs", "/docs/guide.md", true},
		{"guide", "/docs", "/docs/guide", true},
		{"./guide.md", "/docs", "/docs/guide.md", true},
		{"../README.md", "/docs", "/README.md", true},
		{"sub/", "/docs", "/docs/sub/", true},
		{"..", "/docs/a", "/docs/", true},
		{"..", "/docs", "/", true},
		{"a.md?raw=1#part", "/", "/a.md?raw=1#part", true},
		{"a.md#", "/", "/a.md#", true},
		{"b%20c.md", "/docs", "/docs/b%20c.md", true},
		{"next.md", "/c#", "/c%23/next.md", true},
		{"b.md", "/q?x/My Guide", "/q%3Fx/My%20Guide/b.md", true},
		{"../up.md", "/50%/sub", "/50%25/up.md", true},
		{"x/../y.md", "/", "/y.md", true},
		{"../outside.md", "/", "", false},
		{"../../x.md", "/docs", "", false},
		{"?raw=1", "/docs", "", false},
	}
	for _, tc := range tests {
		got, ok := Resolve(tc.href, tc.dir)
		assert.Equal(t, tc.ok, ok, tc.href)
		assert.Equal(t, tc.want, got, tc.href)
	}
}
