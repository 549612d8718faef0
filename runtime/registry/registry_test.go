package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/core/types"
	"github.com/aledsdavies/markerml/runtime/parser"
)

func build(t *testing.T, input string, opts ...Option) (*Registry, error) {
	t.Helper()
	mod, err := parser.ParseModule(input)
	require.NoError(t, err)
	return New(mod, opts...)
}

func TestLookup(t *testing.T) {
	reg, err := build(t, "component card[default title: string] { header(${title}) }\ncomponent empty")
	require.NoError(t, err)

	entry, kind := reg.Lookup("card")
	assert.Equal(t, UserDefined, kind)
	require.NotNil(t, entry.Definition)
	assert.Equal(t, "title", entry.Schema.DefaultParameter)
	assert.True(t, entry.Schema.Parameters["title"].Required)

	entry, kind = reg.Lookup("paragraph")
	assert.Equal(t, Builtin, kind)
	assert.Nil(t, entry.Definition)
	assert.Equal(t, "content", entry.Schema.TextParameter)

	_, kind = reg.Lookup("link")
	assert.Equal(t, Builtin, kind)

	entry, kind = reg.Lookup("nope")
	assert.Equal(t, Unknown, kind)
	assert.Nil(t, entry)

	names := reg.Names()
	assert.Contains(t, names, "box")
	assert.Equal(t, []string{"card", "empty"}, names[len(names)-2:])

	card, kind := reg.Lookup("card")
	require.Equal(t, UserDefined, kind)
	assert.Equal(t, "card", card.Name)
}

func TestSchemaFromDefinition(t *testing.T) {
	reg, err := build(t, `component c[default n: int, text body, tag: string = "x", on: bool = true, a: slot, w: int]`)
	require.NoError(t, err)

	entry, _ := reg.Lookup("c")
	s := entry.Schema
	assert.Equal(t, []string{"n", "body", "tag", "on", "a", "w"}, s.ParameterOrder)
	assert.Equal(t, types.ParamText, s.Parameters["body"].Kind)
	assert.True(t, s.Parameters["w"].Required, "named param without default is required")
	assert.False(t, s.Parameters["tag"].Required)
	assert.False(t, s.Parameters["a"].Required, "slots are governed by arity, not required-ness")
	assert.Equal(t, &ast.BoolValue{Value: true, Span: s.Parameters["on"].Default.ValueSpan()}, s.Parameters["on"].Default)
	assert.Equal(t, 1, s.Parameters["n"].Span.Start.Line)

	slots := s.SlotParameters()
	require.Len(t, slots, 1)
	assert.Equal(t, ast.TypeSlot, slots[0].Type)
}

func TestDefinitionErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    diag.Kind
		message string
		column  int
	}{
		{
			name:    "redefinition",
			input:   "component a\ncomponent a",
			kind:    diag.DuplicateComponentDefinition,
			message: "component 'a' is already defined",
			column:  11,
		},
		{
			name:    "shadowing a builtin",
			input:   "component paragraph",
			kind:    diag.DuplicateComponentDefinition,
			message: "component 'paragraph' is a builtin and cannot be redefined",
			column:  11,
		},
		{
			name:    "shadowing a builtin alias",
			input:   "component link",
			kind:    diag.DuplicateComponentDefinition,
			message: "component 'link' is a builtin and cannot be redefined",
			column:  11,
		},
		{
			name:    "duplicate parameter",
			input:   "component c[a: int, a: string]",
			kind:    diag.DuplicateProperty,
			message: "parameter 'a' is declared more than once in 'c'",
			column:  21,
		},
		{
			name:    "two default parameters",
			input:   "component c[default a: int, default b: int]",
			kind:    diag.InvalidDefinition,
			message: "'c' declares more than one default parameter",
			column:  29,
		},
		{
			name:    "two text parameters",
			input:   "component c[text a, text b]",
			kind:    diag.InvalidDefinition,
			message: "'c' declares more than one text parameter",
			column:  21,
		},
		{
			name:    "slot default parameter",
			input:   "component c[default a: slot]",
			kind:    diag.InvalidDefinition,
			message: "default parameter 'a' cannot be a slot",
			column:  13,
		},
		{
			name:    "slot with default value",
			input:   `component c[a: slot = "x"]`,
			kind:    diag.InvalidDefinition,
			message: "slot parameter 'a' cannot have a default value",
			column:  23,
		},
		{
			name:    "slot and slot list",
			input:   "component c[a: slot[], b: slot]",
			kind:    diag.InvalidDefinition,
			message: "'c' can have only one slot or slot[] parameter",
			column:  24,
		},
		{
			name:    "two slots",
			input:   "component c[a: slot, b: slot]",
			kind:    diag.InvalidDefinition,
			message: "'c' can have only one slot or slot[] parameter",
			column:  22,
		},
		{
			name:    "default of wrong type",
			input:   `component c[n: int = "three"]`,
			kind:    diag.TypeMismatch,
			message: "default for 'n' is string, declared int",
			column:  22,
		},
		{
			name:    "recursive definition",
			input:   "component r { r { } }",
			kind:    diag.RecursiveDefinition,
			message: "recursive component reference: r -> r",
			column:  15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, tt.input)
			require.Error(t, err)

			var derr *diag.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.kind, derr.Kind)
			assert.Equal(t, tt.message, derr.Message)
			assert.Equal(t, tt.column, derr.Span.Start.Column)
		})
	}
}

func TestRedefinitionPointsAtFirst(t *testing.T) {
	_, err := build(t, "component a\ncomponent a")
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	require.NotNil(t, derr.Related)
	assert.Equal(t, 1, derr.Related.Start.Line)
	assert.Equal(t, 2, derr.Span.Start.Line)
}

func TestLazyCycles(t *testing.T) {
	reg, err := build(t, "component r { r }", LazyCycles())
	require.NoError(t, err)
	_, kind := reg.Lookup("r")
	assert.Equal(t, UserDefined, kind)
}

func TestRecursiveCycleField(t *testing.T) {
	_, err := build(t, "component a { b }\ncomponent b { a }")
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, []string{"a", "b", "a"}, derr.Cycle)
}
