package lexer

import (
	"fmt"

	"github.com/aledsdavies/markerml/core/ast"
)

// TokenType identifies a lexical token.
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Punctuation
	LSQUARE // [
	RSQUARE // ]
	LBRACE  // {
	RBRACE  // }
	COMMA   // ,
	COLON   // :
	EQUALS  // =
	AT      // @
	HASH    // #

	// Literals
	IDENTIFIER
	INTEGER
	BOOLEAN

	// Keywords. Contextual: the parser accepts them wherever an identifier
	// is expected outside the position that gives them meaning.
	COMPONENT // component
	DEFAULT   // default
	TEXT      // text
	STRING    // string
	INT       // int
	BOOL      // bool
	SLOT      // slot

	// String and text literal structure
	STRING_START // "
	STRING_END   // "
	TEXT_START   // (
	TEXT_END     // )
	LITERAL      // raw run inside a string or text literal
	SPACE        // folded line break inside a string or text literal
	INTERP_START // ${
)

var tokenNames = map[TokenType]string{
	EOF:          "EOF",
	ILLEGAL:      "ILLEGAL",
	LSQUARE:      "'['",
	RSQUARE:      "']'",
	LBRACE:       "'{'",
	RBRACE:       "'}'",
	COMMA:        "','",
	COLON:        "':'",
	EQUALS:       "'='",
	AT:           "'@'",
	HASH:         "'#'",
	IDENTIFIER:   "identifier",
	INTEGER:      "integer",
	BOOLEAN:      "boolean",
	COMPONENT:    "'component'",
	DEFAULT:      "'default'",
	TEXT:         "'text'",
	STRING:       "'string'",
	INT:          "'int'",
	BOOL:         "'bool'",
	SLOT:         "'slot'",
	STRING_START: "string",
	STRING_END:   "end of string",
	TEXT_START:   "'('",
	TEXT_END:     "')'",
	LITERAL:      "text",
	SPACE:        "line break",
	INTERP_START: "'${'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Keywords maps reserved words to their token types.
var Keywords = map[string]TokenType{
	"component": COMPONENT,
	"default":   DEFAULT,
	"text":      TEXT,
	"string":    STRING,
	"int":       INT,
	"bool":      BOOL,
	"slot":      SLOT,
	"true":      BOOLEAN,
	"false":     BOOLEAN,
}

// IsKeyword reports whether t is a contextual keyword.
func (t TokenType) IsKeyword() bool {
	return t >= COMPONENT && t <= SLOT
}

// Token is a lexical token with its source span. Value holds the
// identifier name, the integer or boolean spelling, or the processed text
// of a LITERAL. Message is only set on ILLEGAL tokens.
type Token struct {
	Type    TokenType
	Value   string
	Message string
	Span    ast.Span
}

func (t Token) String() string {
	switch t.Type {
	case IDENTIFIER, INTEGER, BOOLEAN, LITERAL:
		return fmt.Sprintf("%s %q @%s", t.Type, t.Value, t.Span.Start)
	case ILLEGAL:
		return fmt.Sprintf("ILLEGAL(%s) @%s", t.Message, t.Span.Start)
	default:
		return fmt.Sprintf("%s @%s", t.Type, t.Span.Start)
	}
}
