// Package ir defines the resolved output tree of the compiler.
//
// An IR tree only contains the eight builtin node kinds. It holds no
// references into the syntax tree and is safe to share between goroutines
// once built.
package ir

import "github.com/aledsdavies/markerml/core/invariant"

// Node is one resolved element. The set of implementations is closed.
type Node interface {
	isNode()
	Kind() Kind
}

// Kind names a node variant.
type Kind string

const (
	KindBox       Kind = "box"
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindLink      Kind = "link"
	KindList      Kind = "list"
	KindHeader    Kind = "header"
	KindParagraph Kind = "paragraph"
	KindPage      Kind = "page"
)

type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

type Align string

const (
	AlignStart  Align = "start"
	AlignCenter Align = "center"
	AlignEnd    Align = "end"
)

// ParseAlign maps a property value to an Align.
func ParseAlign(s string) (Align, bool) {
	switch Align(s) {
	case AlignStart, AlignCenter, AlignEnd:
		return Align(s), true
	}
	return "", false
}

type Box struct {
	Orientation Orientation
	XAlign      Align
	YAlign      Align
	Children    []Node
}

type Text struct {
	Content string
}

type Image struct {
	URL string
}

type Link struct {
	URL  string
	Name string
}

type List struct {
	Ordered bool
	Items   []Node
}

// Header keeps whatever level the source asked for; backends decide which
// levels they can render.
type Header struct {
	Level   int64
	Content string
}

type Paragraph struct {
	Content string
}

type Page struct {
	Title    string
	Children []Node
}

func (*Box) isNode()       {}
func (*Text) isNode()      {}
func (*Image) isNode()     {}
func (*Link) isNode()      {}
func (*List) isNode()      {}
func (*Header) isNode()    {}
func (*Paragraph) isNode() {}
func (*Page) isNode()      {}

func (*Box) Kind() Kind       { return KindBox }
func (*Text) Kind() Kind      { return KindText }
func (*Image) Kind() Kind     { return KindImage }
func (*Link) Kind() Kind      { return KindLink }
func (*List) Kind() Kind      { return KindList }
func (*Header) Kind() Kind    { return KindHeader }
func (*Paragraph) Kind() Kind { return KindParagraph }
func (*Page) Kind() Kind      { return KindPage }

// Children returns the direct children of n, or nil for leaves.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Box:
		return n.Children
	case *List:
		return n.Items
	case *Page:
		return n.Children
	case *Text, *Image, *Link, *Header, *Paragraph:
		return nil
	default:
		invariant.Unreachable("unknown ir node %T", n)
		return nil
	}
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n Node) int {
	count := 0
	Walk(n, func(Node) bool {
		count++
		return true
	})
	return count
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch n := n.(type) {
	case *Box:
		c := *n
		c.Children = CloneAll(n.Children)
		return &c
	case *List:
		c := *n
		c.Items = CloneAll(n.Items)
		return &c
	case *Page:
		c := *n
		c.Children = CloneAll(n.Children)
		return &c
	case *Text:
		c := *n
		return &c
	case *Image:
		c := *n
		return &c
	case *Link:
		c := *n
		return &c
	case *Header:
		c := *n
		return &c
	case *Paragraph:
		c := *n
		return &c
	default:
		invariant.Unreachable("unknown ir node %T", n)
		return nil
	}
}

// CloneAll deep-copies each node in nodes.
func CloneAll(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Clone(n)
	}
	return out
}
