package diag

import "github.com/aledsdavies/markerml/core/ast"

// Diagnostic is a flat, renderer-friendly view of any compile error.
type Diagnostic struct {
	Kind    Kind
	Span    ast.Span
	Message string
	Notes   []string
}

// Spanned is implemented by errors that know where they happened. The
// parser's ParseError implements it so tooling can treat syntax and
// semantic errors uniformly.
type Spanned interface {
	error
	Diagnostic() Diagnostic
}

// Diagnostic implements Spanned.
func (e *Error) Diagnostic() Diagnostic {
	d := Diagnostic{Kind: e.Kind, Span: e.Span, Message: e.Message}
	if len(e.Cycle) > 0 {
		d.Notes = append(d.Notes, "cycle: "+joinCycle(e.Cycle))
	}
	if e.Expected != "" {
		d.Notes = append(d.Notes, "expected "+e.Expected+", found "+e.Found)
	}
	for _, s := range e.Suggestions {
		d.Notes = append(d.Notes, "did you mean '"+s+"'?")
	}
	return d
}

func joinCycle(cycle []string) string {
	out := ""
	for i, c := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += c
	}
	return out
}
