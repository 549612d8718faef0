package ast

import (
	"strconv"
)

// Value is a literal or variable reference appearing as a property value
// or a parameter default.
type Value interface {
	isValue()
	ValueSpan() Span
}

type BoolValue struct {
	Value bool
	Span  Span
}

type IntValue struct {
	Value int64
	Span  Span
}

// StringValue is a quoted string. It may contain interpolations.
type StringValue struct {
	Segments []Segment
	Span     Span
}

// VarRef is a bare ${name} used as a whole value.
type VarRef struct {
	Name string
	Span Span
}

func (*BoolValue) isValue()   {}
func (*IntValue) isValue()    {}
func (*StringValue) isValue() {}
func (*VarRef) isValue()      {}

func (v *BoolValue) ValueSpan() Span   { return v.Span }
func (v *IntValue) ValueSpan() Span    { return v.Span }
func (v *StringValue) ValueSpan() Span { return v.Span }
func (v *VarRef) ValueSpan() Span      { return v.Span }

func (v *BoolValue) String() string   { return strconv.FormatBool(v.Value) }
func (v *IntValue) String() string    { return strconv.FormatInt(v.Value, 10) }
func (v *StringValue) String() string { return strconv.Quote(SegmentsString(v.Segments)) }
func (v *VarRef) String() string      { return "${" + v.Name + "}" }

// IsLiteral reports whether v contains no variable references.
func IsLiteral(v Value) bool {
	switch v := v.(type) {
	case *VarRef:
		return false
	case *StringValue:
		for _, s := range v.Segments {
			if _, ok := s.(*VarSegment); ok {
				return false
			}
		}
	}
	return true
}

// Property is one entry of a `[...]` property list.
type Property interface {
	isProperty()
	PropertySpan() Span
}

// DefaultProperty is an unnamed value in first position: header[2].
type DefaultProperty struct {
	Value Value
	Span  Span
}

// NamedProperty is name=value.
type NamedProperty struct {
	Name  string
	Value Value
	Span  Span
}

// FlagProperty is a bare name, shorthand for name=true.
type FlagProperty struct {
	Name string
	Span Span
}

func (*DefaultProperty) isProperty() {}
func (*NamedProperty) isProperty()   {}
func (*FlagProperty) isProperty()    {}

func (p *DefaultProperty) PropertySpan() Span { return p.Span }
func (p *NamedProperty) PropertySpan() Span   { return p.Span }
func (p *FlagProperty) PropertySpan() Span    { return p.Span }
