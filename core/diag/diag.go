// Package diag holds the diagnostic types shared by the parser, registry
// and resolver: error kinds, the semantic Error type and the source snippet
// renderer used in every message.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aledsdavies/markerml/core/ast"
)

// Kind categorises a compile error.
type Kind int

const (
	ParseError Kind = iota
	UnknownComponent
	UnknownProperty
	DuplicateProperty
	MissingRequiredProperty
	TypeMismatch
	UnknownVariable
	RecursiveDefinition
	BadSlotArity
	DuplicateComponentDefinition
	ConflictingProperties
	InvalidPropertyValue
	UnexpectedChildren
	InvalidDefinition
	MisplacedPage
)

var kindNames = [...]string{
	ParseError:                   "parse error",
	UnknownComponent:             "unknown component",
	UnknownProperty:              "unknown property",
	DuplicateProperty:            "duplicate property",
	MissingRequiredProperty:      "missing required property",
	TypeMismatch:                 "type mismatch",
	UnknownVariable:              "unknown variable",
	RecursiveDefinition:          "recursive definition",
	BadSlotArity:                 "bad slot arity",
	DuplicateComponentDefinition: "duplicate component definition",
	ConflictingProperties:        "conflicting properties",
	InvalidPropertyValue:         "invalid property value",
	UnexpectedChildren:           "unexpected children",
	InvalidDefinition:            "invalid definition",
	MisplacedPage:                "misplaced page",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "error"
}

// Error is a semantic error found while building the registry or
// resolving a module.
type Error struct {
	Kind    Kind
	Message string
	Span    ast.Span

	// Related points at a second location, such as the first binding of a
	// duplicated property or the earlier definition of a component.
	Related *ast.Span

	// Cycle is the definition path for RecursiveDefinition, e.g. [a b a].
	Cycle []string

	// Expected and Found are set for TypeMismatch.
	Expected string
	Found    string

	Suggestions []string

	// Input is the full source, used to render a snippet. Optional.
	Input string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean '%s'?)", e.Suggestions[0])
	}
	if snippet := Snippet(e.Input, e.Span); snippet != "" {
		b.WriteByte('\n')
		b.WriteString(snippet)
	}
	return b.String()
}

// WithInput attaches source text for snippet rendering and returns e.
func (e *Error) WithInput(input string) *Error {
	e.Input = input
	return e
}

// Newf builds an Error of the given kind.
func Newf(kind Kind, span ast.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// Snippet renders the line containing span with a caret under the start
// column:
//
//	  --> 3:5
//	   |
//	 3 |     bogus[x]
//	   |     ^^^^^
func Snippet(input string, span ast.Span) string {
	pos := span.Start
	if input == "" || !pos.IsValid() {
		return ""
	}

	lines := strings.Split(input, "\n")
	if pos.Line > len(lines) {
		return ""
	}
	lineContent := strings.TrimRight(lines[pos.Line-1], "\r")

	var b strings.Builder
	fmt.Fprintf(&b, "  --> %d:%d\n", pos.Line, pos.Column)
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "%2d | %s\n", pos.Line, lineContent)
	b.WriteString("   | ")
	if pos.Column > 0 && pos.Column <= len(lineContent)+1 {
		width := 1
		if span.End.Line == pos.Line && span.End.Column > pos.Column {
			width = span.End.Column - pos.Column
		}
		if pos.Column-1+width > len(lineContent) {
			width = max(1, len(lineContent)-pos.Column+1)
		}
		b.WriteString(strings.Repeat(" ", pos.Column-1) + strings.Repeat("^", width))
	}
	return b.String()
}
