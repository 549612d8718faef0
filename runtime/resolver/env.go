package resolver

import (
	"maps"
	"slices"
	"strconv"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/ir"
)

// Binding is a resolved value in scope: a scalar or a slot's nodes.
type Binding struct {
	Type  ast.Type
	Str   string
	Int   int64
	Bool  bool
	Nodes []ir.Node // TypeSlot and TypeSlotList
}

func stringBinding(s string) Binding { return Binding{Type: ast.TypeString, Str: s} }
func intBinding(n int64) Binding     { return Binding{Type: ast.TypeInt, Int: n} }
func boolBinding(b bool) Binding     { return Binding{Type: ast.TypeBool, Bool: b} }

// String renders a scalar for interpolation. Slots have no text form.
func (b Binding) String() string {
	switch b.Type {
	case ast.TypeString:
		return b.Str
	case ast.TypeInt:
		return strconv.FormatInt(b.Int, 10)
	case ast.TypeBool:
		return strconv.FormatBool(b.Bool)
	default:
		return ""
	}
}

// Env is an immutable scope. Expanding a user component starts a fresh Env
// holding only that component's parameters; scopes never chain.
type Env struct {
	vars map[string]Binding
}

// EmptyEnv is the scope for top-level items and parameter defaults.
func EmptyEnv() Env {
	return Env{}
}

// Lookup returns the binding for name.
func (e Env) Lookup(name string) (Binding, bool) {
	b, ok := e.vars[name]
	return b, ok
}

// With returns a copy of e with name bound to b.
func (e Env) With(name string, b Binding) Env {
	vars := make(map[string]Binding, len(e.vars)+1)
	maps.Copy(vars, e.vars)
	vars[name] = b
	return Env{vars: vars}
}

// Names returns the bound names, sorted.
func (e Env) Names() []string {
	return slices.Sorted(maps.Keys(e.vars))
}
