// Package validation holds whole-module checks that run before expansion.
package validation

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/markerml/core/ast"
)

// RecursionError represents a recursion detection error with cycle information
type RecursionError struct {
	Component string   // The definition where the cycle closes
	Cycle     []string // The cycle path (e.g., ["a", "b", "a"])
	Span      ast.Span // The reference that closes the cycle
	Message   string
}

func (e *RecursionError) Error() string {
	return e.Message
}

// ValidateNoRecursion checks that no component definition reaches itself
// through the instantiations in its body. Bodies have no conditionals, so
// every such cycle would expand forever.
func ValidateNoRecursion(defs []*ast.ComponentDefinition) error {
	byName := make(map[string]*ast.ComponentDefinition, len(defs))
	for _, d := range defs {
		if _, dup := byName[d.Name]; !dup {
			byName[d.Name] = d
		}
	}

	done := make(map[string]bool, len(defs))
	for _, d := range defs {
		if err := detectRecursion(d.Name, d.NameSpan, byName, nil, make(map[string]bool), done); err != nil {
			return err
		}
	}
	return nil
}

// detectRecursion performs depth-first search to detect cycles in
// component references. done memoises definitions already proven acyclic.
func detectRecursion(name string, at ast.Span, defs map[string]*ast.ComponentDefinition, path []string, visiting, done map[string]bool) error {
	if visiting[name] {
		start := 0
		for i, n := range path {
			if n == name {
				start = i
				break
			}
		}
		cycle := append(append([]string{}, path[start:]...), name)
		return &RecursionError{
			Component: name,
			Cycle:     cycle,
			Span:      at,
			Message:   fmt.Sprintf("recursive component reference: %s", strings.Join(cycle, " -> ")),
		}
	}
	if done[name] {
		return nil
	}

	def, exists := defs[name]
	if !exists {
		// Builtin or unknown; unknown names are reported during expansion.
		return nil
	}

	visiting[name] = true
	path = append(path, name)

	for _, ref := range findReferences(def.Body) {
		if err := detectRecursion(ref.Name.Value, ref.Name.Span, defs, path, visiting, done); err != nil {
			return err
		}
	}

	delete(visiting, name)
	done[name] = true
	return nil
}

// findReferences returns every identifier-named instantiation in body,
// children included, in source order.
func findReferences(body []*ast.Component) []*ast.Component {
	var refs []*ast.Component
	for _, c := range body {
		if c.Name.Kind == ast.NameIdent {
			refs = append(refs, c)
		}
		refs = append(refs, findReferences(c.Children)...)
	}
	return refs
}
