// Package compiler runs the whole pipeline: source text in, IR page out.
//
//	source -> lexer -> parser -> registry -> resolver -> *ir.Page
//
// Every error returned is either a *parser.ParseError or a *diag.Error
// (aliased as resolver.Error) and carries the span of the offending
// construct. Use Diagnostic for a uniform view of either.
package compiler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/ir"
	"github.com/aledsdavies/markerml/runtime/parser"
	"github.com/aledsdavies/markerml/runtime/registry"
	"github.com/aledsdavies/markerml/runtime/resolver"
)

// Option configures a compilation.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	maxDepth   int
	lazyCycles bool
	parserOpts []parser.ParserOpt
}

// WithLogger traces every stage to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMaxDepth bounds nested user-component expansion. Values < 1 keep the
// default.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// WithLazyCycleCheck accepts recursive definitions that are never
// instantiated. Recursion is still reported when an expansion reaches it.
func WithLazyCycleCheck() Option {
	return func(c *config) {
		c.lazyCycles = true
	}
}

// WithParserOptions forwards options to the parser.
func WithParserOptions(opts ...parser.ParserOpt) Option {
	return func(c *config) {
		c.parserOpts = append(c.parserOpts, opts...)
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{maxDepth: resolver.DefaultMaxDepth}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.maxDepth < 1 {
		cfg.maxDepth = resolver.DefaultMaxDepth
	}
	return cfg
}

// Stats describes one compilation.
type Stats struct {
	Parse   parser.ParseTelemetry
	Resolve resolver.Telemetry
	Total   time.Duration
}

// Result is the output of CompileWithStats.
type Result struct {
	Page   *ir.Page
	Module *ast.Module
	Stats  Stats
}

// Compile compiles source to its IR page.
func Compile(source string, opts ...Option) (*ir.Page, error) {
	res, err := compile(source, newConfig(opts), false)
	if err != nil {
		return nil, err
	}
	return res.Page, nil
}

// CompileWithStats is Compile plus timing and counters for every stage.
func CompileWithStats(source string, opts ...Option) (*Result, error) {
	return compile(source, newConfig(opts), true)
}

// CompileModule resolves an already parsed module. Errors carry no source
// snippet since the text is not known here.
func CompileModule(mod *ast.Module, opts ...Option) (*ir.Page, error) {
	invariant.NotNil(mod, "module")
	cfg := newConfig(opts)
	return resolve(mod, cfg, nil)
}

func compile(source string, cfg *config, withStats bool) (*Result, error) {
	start := time.Now()

	popts := append([]parser.ParserOpt{parser.WithLogger(cfg.logger)}, cfg.parserOpts...)
	if withStats {
		popts = append(popts, parser.WithTelemetryTiming())
	}
	parsed, err := parser.Parse(source, popts...)
	if err != nil {
		cfg.logger.Debug("parse failed", "error", err)
		return nil, err
	}

	res := &Result{Module: parsed.Module}
	var tel *resolver.Telemetry
	if withStats {
		tel = &res.Stats.Resolve
		if parsed.Telemetry != nil {
			res.Stats.Parse = *parsed.Telemetry
		}
	}

	page, err := resolve(parsed.Module, cfg, tel)
	if err != nil {
		var de *diag.Error
		if errors.As(err, &de) {
			de.WithInput(source)
		}
		return nil, err
	}

	res.Page = page
	res.Stats.Total = time.Since(start)
	cfg.logger.Debug("compiled",
		"components", len(parsed.Module.Components()),
		"definitions", len(parsed.Module.Definitions()),
		"nodes", ir.Count(page),
		"duration", res.Stats.Total)
	return res, nil
}

func resolve(mod *ast.Module, cfg *config, tel *resolver.Telemetry) (*ir.Page, error) {
	ropts := []registry.Option{registry.WithLogger(cfg.logger)}
	if cfg.lazyCycles {
		ropts = append(ropts, registry.LazyCycles())
	}
	reg, err := registry.New(mod, ropts...)
	if err != nil {
		cfg.logger.Debug("definition check failed", "error", err)
		return nil, err
	}

	opts := []resolver.Option{
		resolver.WithLogger(cfg.logger),
		resolver.WithMaxDepth(cfg.maxDepth),
	}
	if tel != nil {
		opts = append(opts, resolver.WithTelemetry(tel))
	}
	return resolver.Resolve(mod, reg, opts...)
}

// Diagnostic returns the uniform view of a compile error. ok is false for
// errors that did not come from the compiler.
func Diagnostic(err error) (d diag.Diagnostic, ok bool) {
	var spanned diag.Spanned
	if errors.As(err, &spanned) {
		return spanned.Diagnostic(), true
	}
	return diag.Diagnostic{}, false
}
