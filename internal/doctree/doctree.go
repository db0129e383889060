// Package doctree is the parser-neutral view of a parsed Markdown document.
//
// Link rewriting and heading anchors are written against these interfaces,
// not against a concrete parser's node types.
package doctree

// Kind classifies a node.
type Kind int

const (
	KindDocument Kind = iota
	KindBlock
	KindInline
	KindHeading
	KindLink
	KindImage
	KindAutoLink
	KindCode // code spans and code blocks
	KindRaw  // raw HTML, never rendered
	KindText
)

// Node is one node of a document tree.
type Node interface {
	Kind() Kind
	Children() []Node
	// Text is the plain text of the node's subtree.
	Text() string
}

// LinkNode is a link or image with a mutable destination.
type LinkNode interface {
	Node
	Destination() string
	SetDestination(dest string)
	// Context is the plain text of the enclosing block, trimmed.
	Context() string
}

// HeadingNode is a heading whose anchor id can be set.
type HeadingNode interface {
	Node
	Level() int
	SetID(id string)
}

// WalkFunc is called for each node in document order.
// Returning false skips the node's children.
type WalkFunc func(n Node) bool

// Walk visits n and its descendants depth-first, top to bottom.
func Walk(n Node, fn WalkFunc) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
