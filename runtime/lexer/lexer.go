// Package lexer turns MarkerML source into a flat token slice.
//
// The lexer has two contexts. Outside literals it produces punctuation,
// identifiers, keywords and integers and skips whitespace and `//`
// comments. Inside a "string" or (text) literal it produces LITERAL runs,
// SPACE tokens for folded line breaks and `${name}` interpolations.
//
// Lexing stops at the first ILLEGAL token. The slice always ends in EOF.
package lexer

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/invariant"
)

var (
	isDigit      [128]bool
	isIdentStart [128]bool
	isIdentPart  [128]bool
	singleChar   [128]TokenType
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
		singleChar[i] = ILLEGAL
	}
	singleChar['['] = LSQUARE
	singleChar[']'] = RSQUARE
	singleChar['{'] = LBRACE
	singleChar['}'] = RBRACE
	singleChar[','] = COMMA
	singleChar[':'] = COLON
	singleChar['='] = EQUALS
	singleChar['@'] = AT
	singleChar['#'] = HASH
}

// LexerOpt configures a Lexer.
type LexerOpt func(*Lexer)

// WithLogger sets the logger used for token tracing at debug level.
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(l *Lexer) {
		l.logger = logger
	}
}

// Lexer holds scanning state for one source text.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
	tokens []Token
	failed bool
	logger *slog.Logger
}

// New creates a lexer over input.
func New(input string, opts ...LexerOpt) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 1,
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// defaultLogger traces tokens to stderr when MARKERML_DEBUG_LEXER is set
// and discards otherwise.
func defaultLogger() *slog.Logger {
	if os.Getenv("MARKERML_DEBUG_LEXER") == "" {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Tokenize lexes input in one pass.
func Tokenize(input string, opts ...LexerOpt) []Token {
	return New(input, opts...).Tokens()
}

// Tokens runs the lexer to completion and returns every token.
func (l *Lexer) Tokens() []Token {
	if l.tokens != nil {
		return l.tokens
	}
	l.tokens = make([]Token, 0, len(l.input)/3+1)

	for !l.failed {
		l.skipTrivia()
		if l.pos >= len(l.input) {
			break
		}
		prev := l.pos
		l.next()
		invariant.Invariant(l.failed || l.pos > prev, "lexer must advance at offset %d", prev)
	}

	here := l.mark()
	l.emit(Token{Type: EOF, Span: ast.Span{Start: here, End: here}})
	return l.tokens
}

func (l *Lexer) next() {
	start := l.mark()
	ch := l.input[l.pos]

	if ch < utf8.RuneSelf {
		if tt := singleChar[ch]; tt != ILLEGAL {
			l.advance()
			l.emit(Token{Type: tt, Value: string(ch), Span: l.spanFrom(start)})
			return
		}
	}

	switch {
	case ch == '"':
		l.lexQuoted(STRING_START, STRING_END, '"', "string")
	case ch == '(':
		l.lexQuoted(TEXT_START, TEXT_END, ')', "text")
	case ch == '$':
		if l.peek(1) == '{' {
			l.advance()
			l.advance()
			l.emit(Token{Type: INTERP_START, Value: "${", Span: l.spanFrom(start)})
			return
		}
		l.advance()
		l.illegal("expected '{' after '$'", start)
	case ch == '-' || (ch < utf8.RuneSelf && isDigit[ch]):
		l.lexInteger()
	case ch < utf8.RuneSelf && isIdentStart[ch]:
		l.lexIdentifier()
	default:
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		for i := 0; i < size; i++ {
			l.advance()
		}
		l.illegal(fmt.Sprintf("unexpected character %q", r), start)
	}
}

// skipTrivia skips whitespace and line comments outside literals.
func (l *Lexer) skipTrivia() {
	for l.pos < len(l.input) {
		switch ch := l.input[l.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peek(1) == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) lexIdentifier() {
	start := l.mark()
	begin := l.pos
	for l.pos < len(l.input) && l.input[l.pos] < utf8.RuneSelf && isIdentPart[l.input[l.pos]] {
		l.advance()
	}
	word := l.input[begin:l.pos]

	tt := IDENTIFIER
	if kw, ok := Keywords[word]; ok {
		tt = kw
	}
	l.emit(Token{Type: tt, Value: word, Span: l.spanFrom(start)})
}

func (l *Lexer) lexInteger() {
	start := l.mark()
	begin := l.pos
	if l.input[l.pos] == '-' {
		l.advance()
		if l.pos >= len(l.input) || l.input[l.pos] >= utf8.RuneSelf || !isDigit[l.input[l.pos]] {
			l.illegal("expected digit after '-'", start)
			return
		}
	}
	for l.pos < len(l.input) && l.input[l.pos] < utf8.RuneSelf && isDigit[l.input[l.pos]] {
		l.advance()
	}
	text := l.input[begin:l.pos]
	if _, err := strconv.ParseInt(text, 10, 64); err != nil {
		l.illegal("integer literal out of range", start)
		return
	}
	l.emit(Token{Type: INTEGER, Value: text, Span: l.spanFrom(start)})
}

// lexQuoted scans a string or text literal including its delimiters.
//
// Escapes: `\$`, `\\` and a backslash before the closing delimiter produce
// the escaped character. Any other backslash is kept as written.
// A line break (CR, LF or CRLF) plus the indentation that follows it
// becomes one SPACE token, unless the next character closes the literal or
// starts another line break.
func (l *Lexer) lexQuoted(open, closeType TokenType, closing byte, what string) {
	openPos := l.mark()
	l.advance()
	l.emit(Token{Type: open, Span: l.spanFrom(openPos)})

	var buf strings.Builder
	var litStart ast.Position
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		l.emit(Token{Type: LITERAL, Value: buf.String(), Span: l.spanFrom(litStart)})
		buf.Reset()
	}
	write := func(b byte) {
		if buf.Len() == 0 {
			litStart = l.mark()
		}
		buf.WriteByte(b)
	}

	for {
		if l.pos >= len(l.input) {
			flush()
			l.illegal("unterminated "+what+" literal", openPos)
			return
		}

		ch := l.input[l.pos]
		switch {
		case ch == closing:
			flush()
			start := l.mark()
			l.advance()
			l.emit(Token{Type: closeType, Span: l.spanFrom(start)})
			return

		case ch == '\\':
			next := l.peek(1)
			if next == closing || next == '$' || next == '\\' {
				write(next)
				l.advance()
				l.advance()
				continue
			}
			write('\\')
			l.advance()

		case ch == '\r' || ch == '\n':
			flush()
			start := l.mark()
			l.advance()
			if ch == '\r' && l.peek(0) == '\n' {
				l.advance()
			}
			for c := l.peek(0); c == ' ' || c == '\t'; c = l.peek(0) {
				l.advance()
			}
			if next := l.peek(0); next != closing && next != '\n' && next != '\r' {
				l.emit(Token{Type: SPACE, Value: " ", Span: l.spanFrom(start)})
			}

		case ch == '$' && l.peek(1) == '{':
			flush()
			if !l.lexInterpolation() {
				return
			}

		default:
			write(ch)
			l.advance()
		}
	}
}

// lexInterpolation scans `${ name }` inside a literal. Whitespace and
// comments are allowed around the name.
func (l *Lexer) lexInterpolation() bool {
	start := l.mark()
	l.advance()
	l.advance()
	l.emit(Token{Type: INTERP_START, Value: "${", Span: l.spanFrom(start)})

	l.skipTrivia()
	if l.pos >= len(l.input) || l.input[l.pos] >= utf8.RuneSelf || !isIdentStart[l.input[l.pos]] {
		l.illegal("expected identifier after '${'", l.mark())
		return false
	}
	l.lexIdentifier()

	l.skipTrivia()
	if l.peek(0) != '}' {
		l.illegal("expected '}' to close interpolation", l.mark())
		return false
	}
	closeStart := l.mark()
	l.advance()
	l.emit(Token{Type: RBRACE, Value: "}", Span: l.spanFrom(closeStart)})
	return true
}

func (l *Lexer) illegal(msg string, start ast.Position) {
	end := l.mark()
	if end.Offset == start.Offset {
		end.Column++
		end.Offset++
	}
	l.emit(Token{
		Type:    ILLEGAL,
		Value:   l.input[start.Offset:min(end.Offset, len(l.input))],
		Message: msg,
		Span:    ast.Span{Start: start, End: end},
	})
	l.failed = true
}

func (l *Lexer) emit(tok Token) {
	l.tokens = append(l.tokens, tok)
	l.logger.Debug("token", "type", tok.Type.String(), "value", tok.Value, "pos", tok.Span.Start.String())
}

// advance moves past one byte. Columns count characters, so UTF-8
// continuation bytes leave the column alone.
func (l *Lexer) advance() {
	switch ch := l.input[l.pos]; {
	case ch == '\n':
		l.line++
		l.column = 1
	case !utf8.RuneStart(ch):
	default:
		l.column++
	}
	l.pos++
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n < len(l.input) {
		return l.input[l.pos+n]
	}
	return 0
}

func (l *Lexer) mark() ast.Position {
	return ast.Position{Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) spanFrom(start ast.Position) ast.Span {
	return ast.Span{Start: start, End: l.mark()}
}
