package doctree

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// contextLimit caps LinkNode.Context, in runes.
const contextLimit = 160

// The default HTML renderer omits raw HTML; html.WithUnsafe is never set.
// Heading ids come only from SetID, so parser.WithAutoHeadingID is not used.
var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Document is a parsed Markdown document backed by goldmark.
type Document struct {
	root   ast.Node
	source []byte
}

// Parse parses Markdown source. Goldmark accepts any input, so Parse never fails.
func Parse(source []byte) *Document {
	root := engine.Parser().Parse(text.NewReader(source))
	return &Document{root: root, source: source}
}

// Root returns the document node.
func (d *Document) Root() Node { return wrap(d.root, d.source) }

// Render serializes the (possibly rewritten) tree as HTML.
func (d *Document) Render(w io.Writer) error {
	if err := engine.Renderer().Render(w, d.source, d.root); err != nil {
		return fmt.Errorf("doctree: render: %w", err)
	}
	return nil
}

// HTML is Render into a byte slice.
func (d *Document) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type gmNode struct {
	n   ast.Node
	src []byte
}

func wrap(n ast.Node, src []byte) Node {
	base := gmNode{n: n, src: src}
	switch v := n.(type) {
	case *ast.Heading:
		return &gmHeading{gmNode: base, h: v}
	case *ast.Link:
		return &gmLink{gmNode: base, dest: &v.Destination}
	case *ast.Image:
		return &gmLink{gmNode: base, dest: &v.Destination}
	}
	return &base
}

func (g *gmNode) Kind() Kind {
	switch g.n.Kind() {
	case ast.KindDocument:
		return KindDocument
	case ast.KindHeading:
		return KindHeading
	case ast.KindLink:
		return KindLink
	case ast.KindImage:
		return KindImage
	case ast.KindAutoLink:
		return KindAutoLink
	case ast.KindCodeSpan, ast.KindCodeBlock, ast.KindFencedCodeBlock:
		return KindCode
	case ast.KindHTMLBlock, ast.KindRawHTML:
		return KindRaw
	case ast.KindText, ast.KindString:
		return KindText
	}
	if g.n.Type() == ast.TypeBlock {
		return KindBlock
	}
	return KindInline
}

func (g *gmNode) Children() []Node {
	var out []Node
	for c := g.n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, wrap(c, g.src))
	}
	return out
}

func (g *gmNode) Text() string { return plainText(g.n, g.src) }

type gmHeading struct {
	gmNode
	h *ast.Heading
}

func (g *gmHeading) Level() int { return g.h.Level }

func (g *gmHeading) SetID(id string) {
	// The HTML renderer writes []byte attribute values.
	g.h.SetAttributeString("id", []byte(id))
}

type gmLink struct {
	gmNode
	dest *[]byte
}

func (g *gmLink) Destination() string { return string(*g.dest) }

func (g *gmLink) SetDestination(dest string) { *g.dest = []byte(dest) }

func (g *gmLink) Context() string {
	block := g.n.Parent()
	for block != nil && block.Type() != ast.TypeBlock {
		block = block.Parent()
	}
	if block == nil {
		return ""
	}
	s := strings.Join(strings.Fields(plainText(block, g.src)), " ")
	if utf8.RuneCountInString(s) > contextLimit {
		s = string([]rune(s)[:contextLimit]) + "…"
	}
	return s
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
