package doctree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(root Node, kind Kind) []Node {
	var out []Node
	Walk(root, func(n Node) bool {
		if n.Kind() == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

func TestParse_HeadingsInOrder(t *testing.T) {
	doc := Parse([]byte("# One\n\ntext\n\n## Two *em* `code`\n\n### Three\n"))
	hs := collect(doc.Root(), KindHeading)
	require.Len(t, hs, 3)

	h := hs[1].(HeadingNode)
	assert.Equal(t, 2, h.Level())
	assert.Equal(t, "Two em code", h.Text())
}

func TestSetID_Rendered(t *testing.T) {
	doc := Parse([]byte("## Setup\n"))
	h := collect(doc.Root(), KindHeading)[0].(HeadingNode)
	h.SetID("setup-1")
	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, string(out), `<h2 id="setup-1">Setup</h2>`)
}

func TestLinksAndImages(t *testing.T) {
	doc := Parse([]byte("See [guide](guide.md) and ![logo](img/logo.png).\n"))
	links := collect(doc.Root(), KindLink)
	images := collect(doc.Root(), KindImage)
	require.Len(t, links, 1)
	require.Len(t, images, 1)

	l := links[0].(LinkNode)
	assert.Equal(t, "guide.md", l.Destination())
	assert.Equal(t, "See guide and logo.", l.Context())

	l.SetDestination("/docs/guide.md")
	images[0].(LinkNode).SetDestination("/docs/img/logo.png")
	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, string(out), `href="/docs/guide.md"`)
	assert.Contains(t, string(out), `src="/docs/img/logo.png"`)
}

func TestCodeIsNotALink(t *testing.T) {
	doc := Parse([]byte("`[x](y.md)`\n\n```\n[a](b.md)\n```\n"))
	assert.Empty(t, collect(doc.Root(), KindLink))
	assert.Len(t, collect(doc.Root(), KindCode), 2)
}

func TestRawHTMLOmitted(t *testing.T) {
	doc := Parse([]byte("<script>alert(1)</script>\n\nhi <b>there</b>\n"))
	out, err := doc.HTML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
	assert.NotContains(t, string(out), "<b>")
	assert.Contains(t, string(out), "raw HTML omitted")
}

func TestGFM(t *testing.T) {
	doc := Parse([]byte("| a | b |\n|---|---|\n| 1 | 2 |\n\n- [x] done\n\n~~gone~~\n"))
	out, err := doc.HTML()
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<table>")
	assert.Contains(t, s, `type="checkbox"`)
	assert.Contains(t, s, "<del>gone</del>")
}

func TestContextTruncated(t *testing.T) {
	long := strings.Repeat("word ", 100)
	doc := Parse([]byte(long + "[x](y.md)\n"))
	l := collect(doc.Root(), KindLink)[0].(LinkNode)
	assert.True(t, strings.HasSuffix(l.Context(), "…"))
	assert.LessOrEqual(t, len([]rune(l.Context())), contextLimit+1)
}

func TestWalkSkipsChildren(t *testing.T) {
	doc := Parse([]byte("# [link](a.md)\n"))
	var seen int
	Walk(doc.Root(), func(n Node) bool {
		if n.Kind() == KindLink {
			seen++
		}
		return n.Kind() != KindHeading
	})
	assert.Zero(t, seen)
}
