package diag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/markerml/core/ast"
)

func span(line, col, endCol int) ast.Span {
	return ast.Span{
		Start: ast.Position{Line: line, Column: col},
		End:   ast.Position{Line: line, Column: endCol},
	}
}

func TestSnippet(t *testing.T) {
	input := "box {\n    bogus[x]\n}"

	got := Snippet(input, span(2, 5, 10))

	want := "  --> 2:5\n" +
		"   |\n" +
		" 2 |     bogus[x]\n" +
		"   |     ^^^^^"
	assert.Equal(t, want, got)
}

func TestSnippetWithoutSource(t *testing.T) {
	assert.Empty(t, Snippet("", span(1, 1, 2)))
	assert.Empty(t, Snippet("abc", ast.Span{}))
	assert.Empty(t, Snippet("abc", span(4, 1, 2)))
}

func TestSnippetClampsCaretToLine(t *testing.T) {
	got := Snippet("ab", span(1, 2, 40))
	assert.Contains(t, got, "   |  ^")
	assert.NotContains(t, got, "^^")
}

func TestErrorMessage(t *testing.T) {
	err := &Error{
		Kind:        UnknownComponent,
		Message:     "no component named 'paragrph'",
		Span:        span(1, 1, 9),
		Suggestions: []string{"paragraph"},
		Input:       "paragrph(hi)",
	}

	msg := err.Error()
	assert.Contains(t, msg, "unknown component: no component named 'paragrph' (did you mean 'paragraph'?)")
	assert.Contains(t, msg, " 1 | paragrph(hi)")
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("resolve: %w", Newf(BadSlotArity, ast.Span{}, "expected 1 child, got %d", 2))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, BadSlotArity, kind)

	_, ok = KindOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestDiagnosticNotes(t *testing.T) {
	err := &Error{
		Kind:     RecursiveDefinition,
		Message:  "component 'a' expands itself",
		Cycle:    []string{"a", "b", "a"},
		Expected: "",
	}
	d := err.Diagnostic()
	assert.Equal(t, RecursiveDefinition, d.Kind)
	assert.Equal(t, []string{"cycle: a -> b -> a"}, d.Notes)

	tm := &Error{Kind: TypeMismatch, Expected: "int", Found: "string"}
	assert.Equal(t, []string{"expected int, found string"}, tm.Diagnostic().Notes)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "duplicate component definition", DuplicateComponentDefinition.String())
	assert.Equal(t, "error", Kind(99).String())
}
