// Package types describes component interfaces: the parameters a
// component accepts, how each one may be supplied and whether it takes
// children. Builtin components and user definitions share this shape.
package types

import (
	"fmt"
	"slices"

	"github.com/aledsdavies/markerml/core/ast"
)

// ParamKind says how a parameter may be supplied at a call site.
type ParamKind int

const (
	// ParamNamed is supplied as name=value or, for bools, as a bare flag.
	ParamNamed ParamKind = iota
	// ParamDefault also receives the unnamed first property: header[2].
	ParamDefault
	// ParamText also receives the text block: paragraph(hello).
	ParamText
)

func (k ParamKind) String() string {
	switch k {
	case ParamDefault:
		return "default"
	case ParamText:
		return "text"
	default:
		return "named"
	}
}

// ChildPolicy says whether a component accepts a children block.
type ChildPolicy int

const (
	ChildrenForbidden ChildPolicy = iota
	ChildrenAllowed
)

// ComponentSchema describes a component's interface
type ComponentSchema struct {
	Name             string                 // "box", "@", "card"
	Aliases          []string               // Alternative names, e.g. "link" for "#"
	Description      string                 // Human-readable description
	DefaultParameter string                 // Name of the default param, empty if none
	TextParameter    string                 // Name of the text param, empty if none
	Parameters       map[string]ParamSchema // All parameters
	ParameterOrder   []string               // Declaration order
	Children         ChildPolicy            // Builtins only; user components take slots
	TopLevelOnly     bool                   // Only valid as a top-level item (page)
}

// ParamSchema describes a single parameter
type ParamSchema struct {
	Name        string
	Kind        ParamKind
	Type        ast.Type
	Description string
	Required    bool      // No default and not a slot
	Default     ast.Value // Literal default, evaluated in an empty scope
	Enum        []string  // Allowed string values, empty means any
	Group       string    // Mutually exclusive flag group, e.g. "orientation"
	Span        ast.Span  // Declaration site for user definitions
}

// ValidateEnum checks value against the enum constraint
func (p *ParamSchema) ValidateEnum(value string) error {
	if len(p.Enum) == 0 || slices.Contains(p.Enum, value) {
		return nil
	}
	return fmt.Errorf("'%s' must be one of %v, got %q", p.Name, p.Enum, value)
}

// GetOrderedParameters returns parameters in declaration order
func (s *ComponentSchema) GetOrderedParameters() []ParamSchema {
	result := make([]ParamSchema, 0, len(s.ParameterOrder))
	for _, name := range s.ParameterOrder {
		if param, exists := s.Parameters[name]; exists {
			result = append(result, param)
		}
	}
	return result
}

// SlotParameters returns the slot-typed parameters in declaration order.
func (s *ComponentSchema) SlotParameters() []ParamSchema {
	var out []ParamSchema
	for _, p := range s.GetOrderedParameters() {
		if p.Type.IsSlot() {
			out = append(out, p)
		}
	}
	return out
}

// Group returns the names of the flags sharing group, in declaration order.
func (s *ComponentSchema) Group(group string) []string {
	var out []string
	for _, p := range s.GetOrderedParameters() {
		if group != "" && p.Group == group {
			out = append(out, p.Name)
		}
	}
	return out
}

// ParameterNames returns every parameter name in declaration order.
func (s *ComponentSchema) ParameterNames() []string {
	return slices.Clone(s.ParameterOrder)
}

// SchemaBuilder provides fluent API for building schemas
type SchemaBuilder struct {
	schema ComponentSchema
}

// NewSchema creates a new schema builder
func NewSchema(name string) *SchemaBuilder {
	return &SchemaBuilder{
		schema: ComponentSchema{
			Name:       name,
			Parameters: make(map[string]ParamSchema),
		},
	}
}

// Description sets the component description
func (b *SchemaBuilder) Description(desc string) *SchemaBuilder {
	b.schema.Description = desc
	return b
}

// Alias registers an alternative name
func (b *SchemaBuilder) Alias(name string) *SchemaBuilder {
	b.schema.Aliases = append(b.schema.Aliases, name)
	return b
}

// AcceptsChildren allows a children block
func (b *SchemaBuilder) AcceptsChildren() *SchemaBuilder {
	b.schema.Children = ChildrenAllowed
	return b
}

// TopLevelOnly restricts the component to top-level items
func (b *SchemaBuilder) TopLevelOnly() *SchemaBuilder {
	b.schema.TopLevelOnly = true
	return b
}

// Param adds a named parameter and returns a ParamBuilder
func (b *SchemaBuilder) Param(name string, typ ast.Type) *ParamBuilder {
	return &ParamBuilder{
		schemaBuilder: b,
		param:         ParamSchema{Name: name, Kind: ParamNamed, Type: typ},
	}
}

// DefaultParam adds the parameter that receives the unnamed first property
func (b *SchemaBuilder) DefaultParam(name string, typ ast.Type) *ParamBuilder {
	pb := b.Param(name, typ)
	pb.param.Kind = ParamDefault
	return pb
}

// TextParam adds the string parameter that receives the text block
func (b *SchemaBuilder) TextParam(name string) *ParamBuilder {
	pb := b.Param(name, ast.TypeString)
	pb.param.Kind = ParamText
	return pb
}

// Flag adds a bool parameter defaulting to false
func (b *SchemaBuilder) Flag(name string) *ParamBuilder {
	return b.Param(name, ast.TypeBool).Default(false)
}

// Build returns the schema
func (b *SchemaBuilder) Build() ComponentSchema {
	return b.schema
}

// ParamBuilder provides fluent API for building parameters
type ParamBuilder struct {
	schemaBuilder *SchemaBuilder
	param         ParamSchema
}

// Description sets parameter description
func (pb *ParamBuilder) Description(desc string) *ParamBuilder {
	pb.param.Description = desc
	return pb
}

// Required marks parameter as required
func (pb *ParamBuilder) Required() *ParamBuilder {
	pb.param.Required = true
	return pb
}

// Default sets the default value. val must be a string, int, int64 or bool.
func (pb *ParamBuilder) Default(val any) *ParamBuilder {
	pb.param.Default = LiteralValue(val)
	pb.param.Required = false
	return pb
}

// DefaultValue sets the default from an AST literal
func (pb *ParamBuilder) DefaultValue(val ast.Value) *ParamBuilder {
	pb.param.Default = val
	pb.param.Required = false
	return pb
}

// At records the declaration site
func (pb *ParamBuilder) At(span ast.Span) *ParamBuilder {
	pb.param.Span = span
	return pb
}

// Enum sets the allowed string values
func (pb *ParamBuilder) Enum(values ...string) *ParamBuilder {
	pb.param.Enum = values
	return pb
}

// Exclusive puts a flag in a mutually exclusive group
func (pb *ParamBuilder) Exclusive(group string) *ParamBuilder {
	pb.param.Group = group
	return pb
}

// Done finishes building this parameter and returns to schema builder
func (pb *ParamBuilder) Done() *SchemaBuilder {
	s := &pb.schemaBuilder.schema
	s.Parameters[pb.param.Name] = pb.param
	s.ParameterOrder = append(s.ParameterOrder, pb.param.Name)
	switch pb.param.Kind {
	case ParamDefault:
		s.DefaultParameter = pb.param.Name
	case ParamText:
		s.TextParameter = pb.param.Name
	}
	return pb.schemaBuilder
}

// LiteralValue converts a Go scalar to its AST literal.
func LiteralValue(val any) ast.Value {
	switch v := val.(type) {
	case string:
		return &ast.StringValue{Segments: []ast.Segment{&ast.LiteralSegment{Text: v}}}
	case int:
		return &ast.IntValue{Value: int64(v)}
	case int64:
		return &ast.IntValue{Value: v}
	case bool:
		return &ast.BoolValue{Value: v}
	default:
		panic(fmt.Sprintf("types: unsupported default %T", val))
	}
}

// LiteralType returns the type of a literal value, or false for a
// variable reference.
func LiteralType(v ast.Value) (ast.Type, bool) {
	switch v.(type) {
	case *ast.StringValue:
		return ast.TypeString, true
	case *ast.IntValue:
		return ast.TypeInt, true
	case *ast.BoolValue:
		return ast.TypeBool, true
	default:
		return 0, false
	}
}

// ValidateSchema validates a component schema
func ValidateSchema(schema ComponentSchema) error {
	if schema.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(schema.Parameters) != len(schema.ParameterOrder) {
		return fmt.Errorf("%s: duplicate parameter in %v", schema.Name, schema.ParameterOrder)
	}

	defaults, texts := 0, 0
	for _, param := range schema.GetOrderedParameters() {
		switch param.Kind {
		case ParamDefault:
			defaults++
			if param.Type.IsSlot() {
				return fmt.Errorf("%s: default parameter %q cannot be a slot", schema.Name, param.Name)
			}
		case ParamText:
			texts++
		}
		if param.Default != nil {
			if param.Type.IsSlot() {
				return fmt.Errorf("%s: slot parameter %q cannot have a default", schema.Name, param.Name)
			}
			if typ, ok := LiteralType(param.Default); ok && typ != param.Type {
				return fmt.Errorf("%s: parameter %q default is %s, want %s", schema.Name, param.Name, typ, param.Type)
			}
		}
		if param.Required && param.Default != nil {
			return fmt.Errorf("%s: parameter %q is required and has a default", schema.Name, param.Name)
		}
		if len(param.Enum) > 0 && param.Type != ast.TypeString {
			return fmt.Errorf("%s: enum on non-string parameter %q", schema.Name, param.Name)
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%s: more than one default parameter", schema.Name)
	}
	if texts > 1 {
		return fmt.Errorf("%s: more than one text parameter", schema.Name)
	}
	if len(schema.SlotParameters()) > 1 {
		return fmt.Errorf("%s: more than one slot parameter", schema.Name)
	}
	return nil
}
