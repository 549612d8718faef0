// Package parser builds an ast.Module from MarkerML source.
//
// The parser is a recursive descent over the lexer's token slice. It does
// no recovery: the first syntax error aborts parsing and is returned as a
// *ParseError.
package parser

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/runtime/lexer"
)

// ParseResult is the outcome of a parse. Module is nil when Parse returns
// an error; Tokens, Telemetry and DebugEvents are filled either way.
type ParseResult struct {
	Source      string
	Module      *ast.Module
	Tokens      []lexer.Token
	Telemetry   *ParseTelemetry
	DebugEvents []DebugEvent
}

// Parse lexes and parses source.
func Parse(source string, opts ...ParserOpt) (*ParseResult, error) {
	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if config.logger == nil {
		config.logger = slog.New(slog.DiscardHandler)
	}

	var telemetry *ParseTelemetry
	var startTotal time.Time
	if config.telemetry >= TelemetryBasic {
		telemetry = &ParseTelemetry{}
		if config.telemetry >= TelemetryTiming {
			startTotal = time.Now()
		}
	}

	var startLex time.Time
	if config.telemetry >= TelemetryTiming {
		startLex = time.Now()
	}
	var lexOpts []lexer.LexerOpt
	if config.debug >= DebugDetailed {
		lexOpts = append(lexOpts, lexer.WithLogger(config.logger))
	}
	tokens := lexer.Tokenize(source, lexOpts...)
	if telemetry != nil {
		telemetry.TokenCount = len(tokens)
		if config.telemetry >= TelemetryTiming {
			telemetry.LexTime = time.Since(startLex)
		}
	}

	p := &parser{
		tokens: tokens,
		input:  source,
		config: config,
	}
	if config.debug > DebugOff {
		p.debugEvents = make([]DebugEvent, 0, 64)
	}

	var startParse time.Time
	if config.telemetry >= TelemetryTiming {
		startParse = time.Now()
	}

	module, err := p.module()

	if telemetry != nil {
		telemetry.ComponentCount = p.components
		telemetry.DefinitionCount = p.definitions
		if err != nil {
			telemetry.ErrorCount = 1
		}
		if config.telemetry >= TelemetryTiming {
			telemetry.ParseTime = time.Since(startParse)
			telemetry.TotalTime = time.Since(startTotal)
		}
	}

	result := &ParseResult{
		Source:      source,
		Tokens:      tokens,
		Telemetry:   telemetry,
		DebugEvents: p.debugEvents,
	}
	if err != nil {
		config.logger.Debug("parse failed", "error", err.(*ParseError).Message)
		return result, err
	}
	result.Module = module
	return result, nil
}

// ParseModule is a convenience wrapper returning only the module.
func ParseModule(source string, opts ...ParserOpt) (*ast.Module, error) {
	res, err := Parse(source, opts...)
	if err != nil {
		return nil, err
	}
	return res.Module, nil
}

// parser is the internal parser state
type parser struct {
	tokens      []lexer.Token
	pos         int
	input       string
	config      *ParserConfig
	debugEvents []DebugEvent
	rules       []string // grammar rule stack, innermost last

	components  int
	definitions int
}

// recordDebugEvent records debug events when debug tracing is enabled
func (p *parser) recordDebugEvent(event, context string) {
	if p.config.debug == DebugOff {
		return
	}
	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		TokenPos:  p.pos,
		Context:   context,
	})
}

func (p *parser) enter(rule string) {
	p.rules = append(p.rules, rule)
	p.recordDebugEvent("enter_"+rule, p.current().Type.String())
}

func (p *parser) exit(rule string) {
	invariant.Invariant(len(p.rules) > 0 && p.rules[len(p.rules)-1] == rule, "unbalanced rule exit %q", rule)
	p.rules = p.rules[:len(p.rules)-1]
	p.recordDebugEvent("exit_"+rule, "")
}

func (p *parser) context() string {
	if len(p.rules) == 0 {
		return ""
	}
	return p.rules[len(p.rules)-1]
}

// module := item*
func (p *parser) module() (*ast.Module, error) {
	mod := &ast.Module{}
	for !p.at(lexer.EOF) {
		prev := p.pos
		var item ast.Item
		var err error
		if p.at(lexer.COMPONENT) {
			item, err = p.definition()
		} else {
			item, err = p.component()
		}
		if err != nil {
			return nil, err
		}
		mod.Items = append(mod.Items, item)
		invariant.Invariant(p.pos > prev, "parser must consume tokens at position %d", prev)
	}
	return mod, nil
}

// component := component_name properties? (children | text)?
func (p *parser) component() (*ast.Component, error) {
	start := p.current().Span
	name, err := p.componentName()
	if err != nil {
		return nil, err
	}
	p.enter("component")
	defer p.exit("component")

	comp := &ast.Component{Name: name}
	p.components++

	if name.Kind == ast.NameSlot {
		if p.at(lexer.LSQUARE) || p.at(lexer.LBRACE) || p.at(lexer.TEXT_START) {
			return nil, p.errAt(p.current(), "slot placement ${%s} cannot take properties, children or text", name.Value)
		}
		comp.Span = start.Join(p.prevSpan())
		return comp, nil
	}

	if p.at(lexer.LSQUARE) {
		comp.Properties, err = p.properties()
		if err != nil {
			return nil, err
		}
	}

	switch {
	case p.at(lexer.LBRACE):
		comp.Children, err = p.children()
		if err != nil {
			return nil, err
		}
		comp.HasChildren = true
		if p.at(lexer.TEXT_START) {
			return nil, p.errAt(p.current(), "component '%s' cannot have both children and text", name)
		}
	case p.at(lexer.TEXT_START):
		comp.Text, err = p.text()
		if err != nil {
			return nil, err
		}
		if p.at(lexer.LBRACE) {
			return nil, p.errAt(p.current(), "component '%s' cannot have both text and children", name)
		}
	}

	comp.Span = start.Join(p.prevSpan())
	return comp, nil
}

// component_name := IDENTIFIER | '@' | '#' | '${' IDENTIFIER '}'
func (p *parser) componentName() (ast.ComponentName, error) {
	tok := p.current()
	switch {
	case tok.Type == lexer.AT || tok.Type == lexer.HASH:
		p.advance()
		return ast.ComponentName{Kind: ast.NameSymbol, Value: tok.Value, Span: tok.Span}, nil
	case tok.Type == lexer.INTERP_START:
		p.advance()
		ident, err := p.identifier("slot name")
		if err != nil {
			return ast.ComponentName{}, err
		}
		end, err := p.expect(lexer.RBRACE, "'}'")
		if err != nil {
			return ast.ComponentName{}, err
		}
		return ast.ComponentName{Kind: ast.NameSlot, Value: ident.Value, Span: tok.Span.Join(end.Span)}, nil
	case tok.Type == lexer.COMPONENT:
		return ast.ComponentName{}, p.errAt(tok, "component definitions are only allowed at the top level")
	case isIdentLike(tok.Type):
		p.advance()
		return ast.ComponentName{Kind: ast.NameIdent, Value: tok.Value, Span: tok.Span}, nil
	default:
		return ast.ComponentName{}, p.errUnexpected("component name")
	}
}

// properties := '[' ( property (',' property)* ','? )? ']'
func (p *parser) properties() ([]ast.Property, error) {
	p.enter("property list")
	defer p.exit("property list")

	p.advance() // '['
	var props []ast.Property
	for !p.at(lexer.RSQUARE) {
		prop, err := p.property(len(props))
		if err != nil {
			return nil, err
		}
		props = append(props, prop)

		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		if !p.at(lexer.RSQUARE) {
			return nil, p.errUnexpected("',' or ']'")
		}
	}
	p.advance() // ']'
	return props, nil
}

// property := IDENTIFIER '=' value | IDENTIFIER | value
func (p *parser) property(index int) (ast.Property, error) {
	tok := p.current()
	if isIdentLike(tok.Type) {
		p.advance()
		if !p.at(lexer.EQUALS) {
			return &ast.FlagProperty{Name: tok.Value, Span: tok.Span}, nil
		}
		p.advance()
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		return &ast.NamedProperty{Name: tok.Value, Value: val, Span: tok.Span.Join(val.ValueSpan())}, nil
	}

	if !isValueStart(tok.Type) {
		return nil, p.errUnexpected("property")
	}
	if index > 0 {
		return nil, p.errAt(tok, "default property must be the first property")
	}
	val, err := p.value()
	if err != nil {
		return nil, err
	}
	return &ast.DefaultProperty{Value: val, Span: val.ValueSpan()}, nil
}

// value := STRING | INTEGER | BOOLEAN | '${' IDENTIFIER '}'
func (p *parser) value() (ast.Value, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.STRING_START:
		segs, span, err := p.segments(lexer.STRING_END)
		if err != nil {
			return nil, err
		}
		return &ast.StringValue{Segments: segs, Span: span}, nil
	case lexer.INTEGER:
		p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		invariant.ExpectNoError(err, "lexer-validated integer")
		return &ast.IntValue{Value: n, Span: tok.Span}, nil
	case lexer.BOOLEAN:
		p.advance()
		return &ast.BoolValue{Value: tok.Value == "true", Span: tok.Span}, nil
	case lexer.INTERP_START:
		p.advance()
		ident, err := p.identifier("variable name")
		if err != nil {
			return nil, err
		}
		end, err := p.expect(lexer.RBRACE, "'}'")
		if err != nil {
			return nil, err
		}
		return &ast.VarRef{Name: ident.Value, Span: tok.Span.Join(end.Span)}, nil
	default:
		return nil, p.errUnexpected("value")
	}
}

// children := '{' component* '}'
func (p *parser) children() ([]*ast.Component, error) {
	p.enter("children")
	defer p.exit("children")

	p.advance() // '{'
	var out []*ast.Component
	for !p.at(lexer.RBRACE) {
		if p.at(lexer.EOF) {
			return nil, p.errUnexpected("'}'")
		}
		child, err := p.component()
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	p.advance() // '}'
	return out, nil
}

// text := '(' segment* ')'
func (p *parser) text() (*ast.Text, error) {
	p.enter("text")
	defer p.exit("text")

	segs, span, err := p.segments(lexer.TEXT_END)
	if err != nil {
		return nil, err
	}
	return &ast.Text{Segments: segs, Span: span}, nil
}

// segments consumes an opening literal token, the content and the closing
// token of type end.
func (p *parser) segments(end lexer.TokenType) ([]ast.Segment, ast.Span, error) {
	open := p.advance()
	var segs []ast.Segment
	for {
		tok := p.current()
		switch tok.Type {
		case end:
			p.advance()
			return segs, open.Span.Join(tok.Span), nil
		case lexer.LITERAL:
			p.advance()
			segs = append(segs, &ast.LiteralSegment{Text: tok.Value})
		case lexer.SPACE:
			p.advance()
			segs = append(segs, &ast.SpaceSegment{})
		case lexer.INTERP_START:
			p.advance()
			ident, err := p.identifier("variable name")
			if err != nil {
				return nil, ast.Span{}, err
			}
			closing, err := p.expect(lexer.RBRACE, "'}'")
			if err != nil {
				return nil, ast.Span{}, err
			}
			segs = append(segs, &ast.VarSegment{Name: ident.Value, Span: tok.Span.Join(closing.Span)})
		default:
			return nil, ast.Span{}, p.errUnexpected(end.String())
		}
	}
}

// component_definition := 'component' IDENTIFIER properties_definition? children?
func (p *parser) definition() (*ast.ComponentDefinition, error) {
	p.enter("component definition")
	defer p.exit("component definition")

	start := p.advance() // 'component'
	name, err := p.identifier("component name")
	if err != nil {
		return nil, err
	}
	def := &ast.ComponentDefinition{Name: name.Value, NameSpan: name.Span}
	p.definitions++

	if p.at(lexer.LSQUARE) {
		def.Params, err = p.propertyDefinitions()
		if err != nil {
			return nil, err
		}
	}
	if p.at(lexer.LBRACE) {
		def.Body, err = p.children()
		if err != nil {
			return nil, err
		}
	}
	if p.at(lexer.TEXT_START) {
		return nil, p.errAt(p.current(), "component definition '%s' cannot have a text block", def.Name)
	}

	def.Span = start.Span.Join(p.prevSpan())
	return def, nil
}

// properties_definition := '[' ( property_definition (',' property_definition)* ','? )? ']'
func (p *parser) propertyDefinitions() ([]ast.PropertyDefinition, error) {
	p.enter("parameter list")
	defer p.exit("parameter list")

	p.advance() // '['
	var defs []ast.PropertyDefinition
	for !p.at(lexer.RSQUARE) {
		def, err := p.propertyDefinition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)

		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		if !p.at(lexer.RSQUARE) {
			return nil, p.errUnexpected("',' or ']'")
		}
	}
	p.advance() // ']'
	return defs, nil
}

// property_definition := 'default' IDENTIFIER ':' type
//
//	| 'text' IDENTIFIER
//	| IDENTIFIER ':' type ('=' value)?
func (p *parser) propertyDefinition() (ast.PropertyDefinition, error) {
	tok := p.current()

	switch {
	case tok.Type == lexer.DEFAULT && isIdentLike(p.peek(1).Type):
		p.advance()
		name := p.advance()
		if _, err := p.expect(lexer.COLON, "':'"); err != nil {
			return nil, err
		}
		typ, err := p.typeName()
		if err != nil {
			return nil, err
		}
		return &ast.DefaultDef{Name: name.Value, Type: typ, Span: tok.Span.Join(p.prevSpan())}, nil

	case tok.Type == lexer.TEXT && isIdentLike(p.peek(1).Type):
		p.advance()
		name := p.advance()
		return &ast.TextDef{Name: name.Value, Span: tok.Span.Join(name.Span)}, nil

	case isIdentLike(tok.Type):
		p.advance()
		if _, err := p.expect(lexer.COLON, "':'"); err != nil {
			return nil, err
		}
		typ, err := p.typeName()
		if err != nil {
			return nil, err
		}
		def := &ast.NamedDef{Name: tok.Value, Type: typ}
		if p.at(lexer.EQUALS) {
			p.advance()
			def.Default, err = p.value()
			if err != nil {
				return nil, err
			}
		}
		def.Span = tok.Span.Join(p.prevSpan())
		return def, nil

	default:
		return nil, p.errUnexpected("parameter definition")
	}
}

// type := 'string' | 'int' | 'bool' | 'slot' | 'slot' '[' ']'
func (p *parser) typeName() (ast.Type, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.STRING:
		p.advance()
		return ast.TypeString, nil
	case lexer.INT:
		p.advance()
		return ast.TypeInt, nil
	case lexer.BOOL:
		p.advance()
		return ast.TypeBool, nil
	case lexer.SLOT:
		p.advance()
		if !p.at(lexer.LSQUARE) {
			return ast.TypeSlot, nil
		}
		p.advance()
		if _, err := p.expect(lexer.RSQUARE, "']'"); err != nil {
			return 0, err
		}
		return ast.TypeSlotList, nil
	default:
		return 0, p.errUnexpected("type (string, int, bool, slot or slot[])")
	}
}

func (p *parser) identifier(what string) (lexer.Token, error) {
	if !isIdentLike(p.current().Type) {
		return lexer.Token{}, p.errUnexpected(what)
	}
	return p.advance(), nil
}

func (p *parser) expect(tt lexer.TokenType, what string) (lexer.Token, error) {
	if !p.at(tt) {
		return lexer.Token{}, p.errUnexpected(what)
	}
	return p.advance(), nil
}

func (p *parser) current() lexer.Token {
	return p.peek(0)
}

func (p *parser) peek(n int) lexer.Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) at(tt lexer.TokenType) bool {
	return p.current().Type == tt
}

// advance consumes and returns the current token. EOF is never consumed.
func (p *parser) advance() lexer.Token {
	tok := p.current()
	if tok.Type != lexer.EOF {
		p.pos++
	}
	if p.config.debug >= DebugDetailed {
		p.recordDebugEvent("consume", tok.String())
	}
	return tok
}

func (p *parser) prevSpan() ast.Span {
	if p.pos == 0 {
		return p.current().Span
	}
	return p.tokens[p.pos-1].Span
}

// isIdentLike reports whether tt can serve as a name. Keywords are
// contextual and double as identifiers.
func isIdentLike(tt lexer.TokenType) bool {
	return tt == lexer.IDENTIFIER || tt.IsKeyword()
}

func isValueStart(tt lexer.TokenType) bool {
	switch tt {
	case lexer.STRING_START, lexer.INTEGER, lexer.BOOLEAN, lexer.INTERP_START:
		return true
	}
	return false
}
