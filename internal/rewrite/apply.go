package rewrite

import (
	"path"

	"github.com/starford/mdserve/internal/doctree"
	"github.com/starford/mdserve/internal/models"
)

// Result is what one traversal collected.
type Result struct {
	Headings []models.HeadingEntry
	Links    []models.LinkReference
}

// Apply walks root once. Local relative link destinations are rewritten in
// place to root-relative form against the directory of docRel (the
// document's slash-separated, root-relative path), and every heading gets a
// unique id. Code spans and code blocks are never descended into.
func Apply(root doctree.Node, docRel string) Result {
	docDir := path.Dir("/" + docRel)
	anchors := NewAnchors()
	var res Result

	doctree.Walk(root, func(n doctree.Node) bool {
		switch n.Kind() {
		case doctree.KindCode, doctree.KindRaw:
			return false
		case doctree.KindHeading:
			h, ok := n.(doctree.HeadingNode)
			if !ok {
				return true
			}
			text := h.Text()
			id := anchors.Assign(text)
			h.SetID(id)
			res.Headings = append(res.Headings, models.HeadingEntry{
				Level:    h.Level(),
				Text:     text,
				AnchorID: id,
			})
		case doctree.KindLink, doctree.KindImage:
			if l, ok := n.(doctree.LinkNode); ok {
				res.Links = append(res.Links, rewriteLink(l, docDir))
			}
		}
		return true
	})
	return res
}

func rewriteLink(l doctree.LinkNode, docDir string) models.LinkReference {
	href := l.Destination()
	ref := models.LinkReference{
		Href:    href,
		Class:   Classify(href),
		Context: l.Context(),
	}
	switch ref.Class {
	case models.LinkLocal:
		if target, ok := Resolve(href, docDir); ok {
			l.SetDestination(target)
			ref.Target = target
			ref.Rewritten = true
		}
	case models.LinkRootRelative:
		ref.Target = href
	}
	return ref
}
