package parser

import (
	"fmt"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/runtime/lexer"
)

// ParseError is a syntax error. Parsing stops at the first one.
type ParseError struct {
	Message  string
	Expected string // what the grammar wanted, e.g. "']'"; empty for lexical errors
	Found    lexer.Token
	Context  string // grammar rule being parsed, e.g. "property list"
	Input    string
}

// Span returns the location of the offending token.
func (e *ParseError) Span() ast.Span {
	return e.Found.Span
}

// Error returns the formatted error message with line/column and code snippet
func (e *ParseError) Error() string {
	msg := "parse error: " + e.Message
	if e.Context != "" {
		msg += " in " + e.Context
	}
	if snippet := diag.Snippet(e.Input, e.Found.Span); snippet != "" {
		msg += "\n" + snippet
	}
	return msg
}

// Diagnostic implements diag.Spanned.
func (e *ParseError) Diagnostic() diag.Diagnostic {
	d := diag.Diagnostic{Kind: diag.ParseError, Span: e.Found.Span, Message: e.Message}
	if e.Context != "" {
		d.Notes = append(d.Notes, "while parsing "+e.Context)
	}
	return d
}

// describe names a token the way error messages refer to it.
func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.IDENTIFIER:
		return fmt.Sprintf("identifier '%s'", tok.Value)
	case lexer.INTEGER, lexer.BOOLEAN:
		return fmt.Sprintf("%s %s", tok.Type, tok.Value)
	default:
		return tok.Type.String()
	}
}

func (p *parser) errUnexpected(expected string) error {
	tok := p.current()
	if tok.Type == lexer.ILLEGAL {
		return p.errIllegal(tok)
	}
	return &ParseError{
		Message:  fmt.Sprintf("expected %s, found %s", expected, describe(tok)),
		Expected: expected,
		Found:    tok,
		Context:  p.context(),
		Input:    p.input,
	}
}

func (p *parser) errAt(tok lexer.Token, format string, args ...any) error {
	if tok.Type == lexer.ILLEGAL {
		return p.errIllegal(tok)
	}
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Found:   tok,
		Context: p.context(),
		Input:   p.input,
	}
}

func (p *parser) errIllegal(tok lexer.Token) error {
	return &ParseError{
		Message: tok.Message,
		Found:   tok,
		Input:   p.input,
	}
}
