// Package ast defines the syntax tree produced by the parser.
//
// Every sum type here is closed: the marker methods are unexported, so only
// this package can add variants, and consumers switch exhaustively.
package ast

import "strings"

// Module is a parsed source file. Items are *Component or
// *ComponentDefinition in source order.
type Module struct {
	Items []Item
}

// Item is a top-level entry of a module.
type Item interface {
	isItem()
	ItemSpan() Span
}

// Components returns the top-level component instantiations in order.
func (m *Module) Components() []*Component {
	var out []*Component
	for _, it := range m.Items {
		if c, ok := it.(*Component); ok {
			out = append(out, c)
		}
	}
	return out
}

// Definitions returns the component definitions in order.
func (m *Module) Definitions() []*ComponentDefinition {
	var out []*ComponentDefinition
	for _, it := range m.Items {
		if d, ok := it.(*ComponentDefinition); ok {
			out = append(out, d)
		}
	}
	return out
}

// NameKind distinguishes the three forms a component name can take.
type NameKind int

const (
	NameIdent  NameKind = iota // box, paragraph, card
	NameSymbol                 // @ or #
	NameSlot                   // ${content} placement inside a template body
)

func (k NameKind) String() string {
	switch k {
	case NameIdent:
		return "identifier"
	case NameSymbol:
		return "symbol"
	case NameSlot:
		return "slot"
	default:
		return "unknown"
	}
}

// ComponentName is the head of an instantiation.
type ComponentName struct {
	Kind  NameKind
	Value string
	Span  Span
}

func (n ComponentName) String() string {
	if n.Kind == NameSlot {
		return "${" + n.Value + "}"
	}
	return n.Value
}

// Component is a single instantiation. Text and Children are mutually
// exclusive; HasChildren records an explicit, possibly empty, `{}` block.
type Component struct {
	Name        ComponentName
	Properties  []Property
	Children    []*Component
	HasChildren bool
	Text        *Text
	Span        Span
}

func (*Component) isItem()          {}
func (c *Component) ItemSpan() Span { return c.Span }

// Text is a parenthesised text block.
type Text struct {
	Segments []Segment
	Span     Span
}

// Segment is a piece of string or text content.
type Segment interface {
	isSegment()
}

// LiteralSegment is raw text with escapes already processed.
type LiteralSegment struct {
	Text string
}

// SpaceSegment is a line break plus following indentation, folded to " ".
type SpaceSegment struct{}

// VarSegment is a ${name} interpolation.
type VarSegment struct {
	Name string
	Span Span
}

func (*LiteralSegment) isSegment() {}
func (*SpaceSegment) isSegment()   {}
func (*VarSegment) isSegment()     {}

// SegmentsString renders segments back to surface form, mostly for
// debugging and test output.
func SegmentsString(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		switch s := s.(type) {
		case *LiteralSegment:
			b.WriteString(s.Text)
		case *SpaceSegment:
			b.WriteByte(' ')
		case *VarSegment:
			b.WriteString("${" + s.Name + "}")
		}
	}
	return b.String()
}
