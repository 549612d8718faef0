// Package registry answers "what is this component name?" for a module:
// a builtin, a definition from the module, or unknown.
//
// New runs the definition pre-pass. It collects every component definition,
// checks parameter lists and rejects duplicate names and reference cycles.
// A Registry is immutable afterwards and safe for concurrent use.
package registry

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/types"
	"github.com/aledsdavies/markerml/runtime/validation"
)

// LookupKind is the outcome of a name lookup.
type LookupKind int

const (
	Unknown LookupKind = iota
	Builtin
	UserDefined
)

func (k LookupKind) String() string {
	switch k {
	case Builtin:
		return "builtin"
	case UserDefined:
		return "user-defined"
	default:
		return "unknown"
	}
}

// Entry is a resolvable component.
type Entry struct {
	Name       string
	Kind       LookupKind
	Schema     *types.ComponentSchema
	Definition *ast.ComponentDefinition // nil for builtins
}

// Registry maps component names to entries.
type Registry struct {
	defs   map[string]*Entry
	order  []string
	logger *slog.Logger
}

// Option configures New.
type Option func(*config)

type config struct {
	lazyCycles bool
	logger     *slog.Logger
}

// LazyCycles skips the static cycle check. Recursive definitions are then
// only reported when an instantiation actually expands one.
func LazyCycles() Option {
	return func(c *config) { c.lazyCycles = true }
}

// WithLogger sets the logger for pre-pass tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New builds the registry for mod.
func New(mod *ast.Module, opts ...Option) (*Registry, error) {
	invariant.NotNil(mod, "module")
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	r := &Registry{
		defs:   make(map[string]*Entry),
		logger: cfg.logger,
	}

	defs := mod.Definitions()
	for _, def := range defs {
		if err := r.define(def); err != nil {
			return nil, err
		}
	}

	if !cfg.lazyCycles {
		if err := validation.ValidateNoRecursion(defs); err != nil {
			var rerr *validation.RecursionError
			if errors.As(err, &rerr) {
				return nil, &diag.Error{
					Kind:    diag.RecursiveDefinition,
					Message: rerr.Message,
					Span:    rerr.Span,
					Cycle:   rerr.Cycle,
				}
			}
			return nil, err
		}
	}

	r.logger.Debug("registry built", "definitions", len(r.order))
	return r, nil
}

func (r *Registry) define(def *ast.ComponentDefinition) error {
	if _, ok := types.LookupBuiltin(def.Name); ok {
		return diag.Newf(diag.DuplicateComponentDefinition, def.NameSpan,
			"component '%s' is a builtin and cannot be redefined", def.Name)
	}
	if prev, ok := r.defs[def.Name]; ok {
		err := diag.Newf(diag.DuplicateComponentDefinition, def.NameSpan,
			"component '%s' is already defined", def.Name)
		related := prev.Definition.NameSpan
		err.Related = &related
		return err
	}

	schema, err := schemaFor(def)
	if err != nil {
		return err
	}
	r.defs[def.Name] = &Entry{Name: def.Name, Kind: UserDefined, Schema: schema, Definition: def}
	r.order = append(r.order, def.Name)
	r.logger.Debug("defined component", "name", def.Name, "params", len(schema.ParameterOrder))
	return nil
}

// schemaFor converts a definition's parameter list to a schema, reporting
// problems at the offending parameter.
func schemaFor(def *ast.ComponentDefinition) (*types.ComponentSchema, error) {
	b := types.NewSchema(def.Name)
	seen := make(map[string]ast.Span)
	var defaultSeen, textSeen bool
	var slotAt *ast.Span

	for _, pd := range def.Params {
		name, span := pd.ParamName(), pd.DefinitionSpan()
		if first, dup := seen[name]; dup {
			err := diag.Newf(diag.DuplicateProperty, span,
				"parameter '%s' is declared more than once in '%s'", name, def.Name)
			err.Related = &first
			return nil, err
		}
		seen[name] = span

		if pd.ParamType().IsSlot() {
			if slotAt != nil {
				err := diag.Newf(diag.InvalidDefinition, span,
					"'%s' can have only one slot or slot[] parameter", def.Name)
				err.Related = slotAt
				return nil, err
			}
			slotAt = &span
		}

		var pb *types.ParamBuilder
		switch pd := pd.(type) {
		case *ast.DefaultDef:
			if defaultSeen {
				return nil, diag.Newf(diag.InvalidDefinition, span, "'%s' declares more than one default parameter", def.Name)
			}
			if pd.Type.IsSlot() {
				return nil, diag.Newf(diag.InvalidDefinition, span, "default parameter '%s' cannot be a %s", name, pd.Type)
			}
			defaultSeen = true
			pb = b.DefaultParam(name, pd.Type).Required()

		case *ast.TextDef:
			if textSeen {
				return nil, diag.Newf(diag.InvalidDefinition, span, "'%s' declares more than one text parameter", def.Name)
			}
			textSeen = true
			pb = b.TextParam(name).Required()

		case *ast.NamedDef:
			pb = b.Param(name, pd.Type)
			switch {
			case pd.Default != nil && pd.Type.IsSlot():
				return nil, diag.Newf(diag.InvalidDefinition, pd.Default.ValueSpan(),
					"slot parameter '%s' cannot have a default value", name)
			case pd.Default != nil:
				if typ, ok := types.LiteralType(pd.Default); ok && typ != pd.Type {
					err := diag.Newf(diag.TypeMismatch, pd.Default.ValueSpan(),
						"default for '%s' is %s, declared %s", name, typ, pd.Type)
					err.Expected, err.Found = pd.Type.String(), typ.String()
					return nil, err
				}
				pb.DefaultValue(pd.Default)
			case !pd.Type.IsSlot():
				pb.Required()
			}
		default:
			invariant.Unreachable("unknown property definition %T", pd)
		}
		pb.At(span).Done()
	}

	schema := b.Build()
	invariant.ExpectNoError(types.ValidateSchema(schema), "schema for "+def.Name)
	return &schema, nil
}

// Lookup resolves name. It never fails: unknown names yield Unknown and a
// nil entry.
func (r *Registry) Lookup(name string) (*Entry, LookupKind) {
	if s, ok := types.LookupBuiltin(name); ok {
		return &Entry{Name: name, Kind: Builtin, Schema: s}, Builtin
	}
	if e, ok := r.defs[name]; ok {
		return e, UserDefined
	}
	return nil, Unknown
}

// Names returns every resolvable name, builtins first then definitions in
// source order.
func (r *Registry) Names() []string {
	names := types.BuiltinNames()
	slices.Sort(names)
	return append(names, r.order...)
}

