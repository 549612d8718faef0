package ast

// Type is a declared parameter type.
type Type int

const (
	TypeString Type = iota
	TypeInt
	TypeBool
	TypeSlot
	TypeSlotList
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeSlot:
		return "slot"
	case TypeSlotList:
		return "slot[]"
	default:
		return "unknown"
	}
}

// IsSlot reports whether t holds component nodes rather than a scalar.
func (t Type) IsSlot() bool {
	return t == TypeSlot || t == TypeSlotList
}

// ComponentDefinition is `component name[params] { body }`.
type ComponentDefinition struct {
	Name     string
	NameSpan Span
	Params   []PropertyDefinition
	Body     []*Component
	Span     Span
}

func (*ComponentDefinition) isItem()          {}
func (d *ComponentDefinition) ItemSpan() Span { return d.Span }

// PropertyDefinition declares one parameter of a definition.
type PropertyDefinition interface {
	isPropertyDefinition()
	ParamName() string
	ParamType() Type
	DefinitionSpan() Span
}

// DefaultDef is `default name: type`; it receives the unnamed value.
type DefaultDef struct {
	Name string
	Type Type
	Span Span
}

// TextDef is `text name`; it receives the text block as a string.
type TextDef struct {
	Name string
	Span Span
}

// NamedDef is `name: type` with an optional `= value` default.
type NamedDef struct {
	Name    string
	Type    Type
	Default Value
	Span    Span
}

func (*DefaultDef) isPropertyDefinition() {}
func (*TextDef) isPropertyDefinition()    {}
func (*NamedDef) isPropertyDefinition()   {}

func (d *DefaultDef) ParamName() string { return d.Name }
func (d *TextDef) ParamName() string    { return d.Name }
func (d *NamedDef) ParamName() string   { return d.Name }

func (d *DefaultDef) ParamType() Type { return d.Type }
func (d *TextDef) ParamType() Type    { return TypeString }
func (d *NamedDef) ParamType() Type   { return d.Type }

func (d *DefaultDef) DefinitionSpan() Span { return d.Span }
func (d *TextDef) DefinitionSpan() Span    { return d.Span }
func (d *NamedDef) DefinitionSpan() Span   { return d.Span }
