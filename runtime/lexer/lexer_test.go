package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/markerml/core/ast"
)

type tok struct {
	Type  TokenType
	Value string
}

func simplify(tokens []Token) []tok {
	out := make([]tok, 0, len(tokens))
	for _, t := range tokens {
		v := t.Value
		if t.Type == ILLEGAL {
			v = t.Message
		}
		switch t.Type {
		case IDENTIFIER, INTEGER, BOOLEAN, LITERAL, ILLEGAL:
		default:
			if !t.Type.IsKeyword() {
				v = ""
			}
		}
		out = append(out, tok{t.Type, v})
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tok
	}{
		{
			name:  "empty input",
			input: "",
			want:  []tok{{EOF, ""}},
		},
		{
			name:  "punctuation",
			input: "[ ] { } , : = @ #",
			want: []tok{
				{LSQUARE, ""}, {RSQUARE, ""}, {LBRACE, ""}, {RBRACE, ""},
				{COMMA, ""}, {COLON, ""}, {EQUALS, ""}, {AT, ""}, {HASH, ""},
				{EOF, ""},
			},
		},
		{
			name:  "component with properties",
			input: `box[horizontal, x_align="center"]`,
			want: []tok{
				{IDENTIFIER, "box"}, {LSQUARE, ""}, {IDENTIFIER, "horizontal"}, {COMMA, ""},
				{IDENTIFIER, "x_align"}, {EQUALS, ""},
				{STRING_START, ""}, {LITERAL, "center"}, {STRING_END, ""},
				{RSQUARE, ""}, {EOF, ""},
			},
		},
		{
			name:  "keywords and booleans",
			input: "component default text string int bool slot true false",
			want: []tok{
				{COMPONENT, "component"}, {DEFAULT, "default"}, {TEXT, "text"},
				{STRING, "string"}, {INT, "int"}, {BOOL, "bool"}, {SLOT, "slot"},
				{BOOLEAN, "true"}, {BOOLEAN, "false"}, {EOF, ""},
			},
		},
		{
			name:  "integers",
			input: "0 42 -7",
			want:  []tok{{INTEGER, "0"}, {INTEGER, "42"}, {INTEGER, "-7"}, {EOF, ""}},
		},
		{
			name:  "identifier with digits and underscores",
			input: "_card2 x_align",
			want:  []tok{{IDENTIFIER, "_card2"}, {IDENTIFIER, "x_align"}, {EOF, ""}},
		},
		{
			name:  "comments are skipped",
			input: "// heading\nbox // trailing\n{}",
			want:  []tok{{IDENTIFIER, "box"}, {LBRACE, ""}, {RBRACE, ""}, {EOF, ""}},
		},
		{
			name:  "text block",
			input: "@(Hello)",
			want: []tok{
				{AT, ""}, {TEXT_START, ""}, {LITERAL, "Hello"}, {TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "empty text block",
			input: "paragraph()",
			want: []tok{
				{IDENTIFIER, "paragraph"}, {TEXT_START, ""}, {TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "interpolation in text",
			input: "@(Hi ${name}!)",
			want: []tok{
				{AT, ""}, {TEXT_START, ""}, {LITERAL, "Hi "},
				{INTERP_START, ""}, {IDENTIFIER, "name"}, {RBRACE, ""},
				{LITERAL, "!"}, {TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "interpolation allows whitespace and comments",
			input: "@(${ // who\n  name })",
			want: []tok{
				{AT, ""}, {TEXT_START, ""},
				{INTERP_START, ""}, {IDENTIFIER, "name"}, {RBRACE, ""},
				{TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "keyword as interpolated name",
			input: `"${text}"`,
			want: []tok{
				{STRING_START, ""}, {INTERP_START, ""}, {TEXT, "text"}, {RBRACE, ""},
				{STRING_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "slot placement outside literal",
			input: "${body}",
			want:  []tok{{INTERP_START, ""}, {IDENTIFIER, "body"}, {RBRACE, ""}, {EOF, ""}},
		},
		{
			name:  "lone dollar inside literal is literal",
			input: `"costs $5"`,
			want:  []tok{{STRING_START, ""}, {LITERAL, "costs $5"}, {STRING_END, ""}, {EOF, ""}},
		},
		{
			name:  "newline folding",
			input: "paragraph(\n    text\n    a\n)",
			want: []tok{
				{IDENTIFIER, "paragraph"}, {TEXT_START, ""},
				{SPACE, ""}, {LITERAL, "text"}, {SPACE, ""}, {LITERAL, "a"},
				{TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "crlf folds to a single space",
			input: "@(a\r\n\tb)",
			want: []tok{
				{AT, ""}, {TEXT_START, ""}, {LITERAL, "a"}, {SPACE, ""}, {LITERAL, "b"},
				{TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "blank line folds to one space",
			input: "@(a\n\n    b)",
			want: []tok{
				{AT, ""}, {TEXT_START, ""}, {LITERAL, "a"}, {SPACE, ""},
				{LITERAL, "b"}, {TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "indented blank line folds to one space",
			input: "@(a\n  \n  b)",
			want: []tok{
				{AT, ""}, {TEXT_START, ""}, {LITERAL, "a"}, {SPACE, ""},
				{LITERAL, "b"}, {TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "line break before closing paren is dropped",
			input: "@(Hello\n)",
			want: []tok{
				{AT, ""}, {TEXT_START, ""}, {LITERAL, "Hello"}, {TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "line break before closing quote is dropped",
			input: "\"a\n  \"",
			want:  []tok{{STRING_START, ""}, {LITERAL, "a"}, {STRING_END, ""}, {EOF, ""}},
		},
		{
			name:  "comment marker inside literal is text",
			input: "@(see //here)",
			want: []tok{
				{AT, ""}, {TEXT_START, ""}, {LITERAL, "see //here"}, {TEXT_END, ""}, {EOF, ""},
			},
		},
		{
			name:  "nested parenthesis in text must be escaped",
			input: `@(f\(x\))`,
			want: []tok{
				{AT, ""}, {TEXT_START, ""}, {LITERAL, `f\(x)`}, {TEXT_END, ""}, {EOF, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := simplify(Tokenize(tt.input))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"escaped dollar", `"\${x}"`, "${x}"},
		{"escaped quote", `"say \"hi\""`, `say "hi"`},
		{"escaped backslash", `"a\\b"`, `a\b`},
		{"unknown escape kept", `"a\nb"`, `a\nb`},
		{"escaped paren in text", `(a\)b)`, "a)b"},
		{"quote needs no escape in text", `(say "hi")`, `say "hi"`},
		{"paren needs no escape in string", `"f(x)"`, "f(x)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			require.Len(t, tokens, 4, "want open, literal, close, EOF: %v", tokens)
			assert.Equal(t, LITERAL, tokens[1].Type)
			assert.Equal(t, tt.want, tokens[1].Value)
		})
	}
}

func TestIllegal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		line    int
		column  int
	}{
		{"unterminated string", `box[x="abc`, "unterminated string literal", 1, 7},
		{"unterminated text", "paragraph(\nabc", "unterminated text literal", 1, 10},
		{"integer overflow", "header[99999999999999999999]", "integer literal out of range", 1, 8},
		{"dash without digits", "header[-x]", "expected digit after '-'", 1, 8},
		{"dollar without brace", "$x", "expected '{' after '$'", 1, 1},
		{"bad character", "box\n  %", "unexpected character '%'", 2, 3},
		{"non-ascii identifier", "café", "unexpected character 'é'", 1, 4},
		{"empty interpolation", `"${}"`, "expected identifier after '${'", 1, 4},
		{"unclosed interpolation", `"${a b}"`, "expected '}' to close interpolation", 1, 6},
		{"single slash", "box / x", "unexpected character '/'", 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			require.GreaterOrEqual(t, len(tokens), 2)

			last := tokens[len(tokens)-1]
			assert.Equal(t, EOF, last.Type)

			illegal := tokens[len(tokens)-2]
			require.Equal(t, ILLEGAL, illegal.Type, "tokens: %v", tokens)
			assert.Equal(t, tt.message, illegal.Message)
			assert.Equal(t, tt.line, illegal.Span.Start.Line)
			assert.Equal(t, tt.column, illegal.Span.Start.Column)
		})
	}
}

func TestPositions(t *testing.T) {
	tokens := Tokenize("box {\n  @(hi)\n}")

	want := []ast.Position{
		{Line: 1, Column: 1, Offset: 0},  // box
		{Line: 1, Column: 5, Offset: 4},  // {
		{Line: 2, Column: 3, Offset: 8},  // @
		{Line: 2, Column: 4, Offset: 9},  // (
		{Line: 2, Column: 5, Offset: 10}, // hi
		{Line: 2, Column: 7, Offset: 12}, // )
		{Line: 3, Column: 1, Offset: 14}, // }
		{Line: 3, Column: 2, Offset: 15}, // EOF
	}
	got := make([]ast.Position, len(tokens))
	for i, tk := range tokens {
		got[i] = tk.Span.Start
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 4, tokens[0].Span.End.Column, "identifier span should end after 'box'")
}

func TestPositionsCountCharacters(t *testing.T) {
	tokens := Tokenize("@(héllo wörld) box")

	require.Len(t, tokens, 6)
	assert.Equal(t, IDENTIFIER, tokens[4].Type)
	assert.Equal(t, ast.Position{Line: 1, Column: 16, Offset: 17}, tokens[4].Span.Start)
	assert.Equal(t, 14, tokens[3].Span.Start.Column, "')' follows 11 characters of text")
}

func TestTokensIsIdempotent(t *testing.T) {
	l := New("box{}")
	first := l.Tokens()
	second := l.Tokens()
	assert.Equal(t, first, second)
}
