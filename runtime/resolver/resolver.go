// Package resolver expands a parsed module into an IR tree.
//
// Every instantiation is looked up in the registry, its properties are
// bound and type-checked against the target's schema and its children are
// resolved. Builtins become IR nodes directly. User-defined components are
// expanded macro-style: their body is resolved in a fresh environment that
// holds only the call's bindings, and the resulting nodes replace the call
// site.
package resolver

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/ir"
	"github.com/aledsdavies/markerml/core/types"
	"github.com/aledsdavies/markerml/runtime/registry"
)

// Error is the resolution error type.
type Error = diag.Error

// Resolve expands every top-level component of mod.
//
// The root is always a page. A module whose only top-level result is a
// page returns that page; otherwise the top-level nodes are wrapped in an
// untitled page.
func Resolve(mod *ast.Module, reg *registry.Registry, opts ...Option) (*ir.Page, error) {
	invariant.NotNil(mod, "module")
	invariant.NotNil(reg, "registry")

	cfg := &config{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	start := time.Now()
	s := &state{reg: reg, cfg: cfg}

	var nodes []ir.Node
	var pageAt *ast.Span
	for _, c := range mod.Components() {
		out, err := s.component(c, EmptyEnv(), true)
		if err != nil {
			return nil, err
		}
		for _, n := range out {
			if _, ok := n.(*ir.Page); ok && pageAt == nil {
				span := c.Span
				pageAt = &span
			}
		}
		nodes = append(nodes, out...)
	}

	root, err := wrapRoot(nodes, pageAt)
	if err != nil {
		return nil, err
	}

	if cfg.telemetry != nil {
		*cfg.telemetry = s.stats
		cfg.telemetry.Nodes = ir.Count(root)
		cfg.telemetry.Duration = time.Since(start)
	}
	cfg.logger.Debug("resolved module",
		"instantiations", s.stats.Instantiations,
		"expansions", s.stats.Expansions,
		"nodes", ir.Count(root))
	return root, nil
}

func wrapRoot(nodes []ir.Node, pageAt *ast.Span) (*ir.Page, error) {
	if pageAt == nil {
		return &ir.Page{Title: "", Children: nodes}, nil
	}
	if len(nodes) == 1 {
		return nodes[0].(*ir.Page), nil
	}
	return nil, diag.Newf(diag.MisplacedPage, *pageAt,
		"a page must be the only top-level component, found %d top-level nodes", len(nodes))
}

// state is the per-call resolution state.
type state struct {
	reg   *registry.Registry
	cfg   *config
	stats Telemetry

	// expanding is the stack of user components currently being expanded.
	expanding []string
}

// component resolves one instantiation to zero or more IR nodes.
// topLevel is true for module items and for the bodies they expand to.
func (s *state) component(c *ast.Component, env Env, topLevel bool) ([]ir.Node, error) {
	if c.Name.Kind == ast.NameSlot {
		return s.slotPlacement(c, env)
	}
	s.stats.Instantiations++

	entry, kind := s.reg.Lookup(c.Name.Value)
	if kind == registry.Unknown {
		err := diag.Newf(diag.UnknownComponent, c.Name.Span, "no component named '%s'", c.Name.Value)
		err.Suggestions = suggest(c.Name.Value, s.reg.Names())
		return nil, err
	}

	bound, err := s.bind(c, entry.Schema, env)
	if err != nil {
		return nil, err
	}

	if kind == registry.Builtin {
		return s.builtin(c, entry.Schema, bound, env, topLevel)
	}
	return s.expand(c, entry, bound, env, topLevel)
}

// slotPlacement splices a copy of a slot's nodes in place of ${name}, so
// placing a slot twice still yields a tree.
func (s *state) slotPlacement(c *ast.Component, env Env) ([]ir.Node, error) {
	b, ok := env.Lookup(c.Name.Value)
	if !ok {
		return nil, s.unknownVariable(c.Name.Value, c.Name.Span, env)
	}
	if !b.Type.IsSlot() {
		err := diag.Newf(diag.TypeMismatch, c.Name.Span,
			"'%s' is a %s and cannot be placed as a component", c.Name.Value, b.Type)
		err.Expected, err.Found = "slot", b.Type.String()
		return nil, err
	}
	return ir.CloneAll(b.Nodes), nil
}

func (s *state) children(c *ast.Component, env Env) ([]ir.Node, error) {
	var out []ir.Node
	for _, child := range c.Children {
		nodes, err := s.component(child, env, false)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (s *state) builtin(c *ast.Component, schema *types.ComponentSchema, bound map[string]Binding, env Env, topLevel bool) ([]ir.Node, error) {
	if schema.TopLevelOnly && !topLevel {
		return nil, diag.Newf(diag.MisplacedPage, c.Name.Span, "'%s' is only allowed at the top level", schema.Name)
	}
	if schema.Children == types.ChildrenForbidden && len(c.Children) > 0 {
		return nil, diag.Newf(diag.UnexpectedChildren, c.Children[0].Span,
			"'%s' does not accept children", c.Name.Value)
	}

	kids, err := s.children(c, env)
	if err != nil {
		return nil, err
	}
	return []ir.Node{buildBuiltin(schema.Name, bound, kids)}, nil
}

// expand resolves a user-defined component's body in a fresh environment.
func (s *state) expand(c *ast.Component, entry *registry.Entry, bound map[string]Binding, env Env, topLevel bool) ([]ir.Node, error) {
	name := entry.Name
	if i := slices.Index(s.expanding, name); i >= 0 {
		cycle := append(slices.Clone(s.expanding[i:]), name)
		err := diag.Newf(diag.RecursiveDefinition, c.Name.Span,
			"component '%s' expands itself: %s", name, strings.Join(cycle, " -> "))
		err.Cycle = cycle
		return nil, err
	}
	if len(s.expanding) >= s.cfg.maxDepth {
		err := diag.Newf(diag.RecursiveDefinition, c.Name.Span,
			"component expansion deeper than %d levels at '%s'", s.cfg.maxDepth, name)
		err.Cycle = append(slices.Clone(s.expanding), name)
		return nil, err
	}

	kids, err := s.children(c, env)
	if err != nil {
		return nil, err
	}
	if err := bindSlots(c, entry.Schema, kids, bound); err != nil {
		return nil, err
	}

	s.expanding = append(s.expanding, name)
	defer func() { s.expanding = s.expanding[:len(s.expanding)-1] }()
	s.stats.Expansions++
	s.stats.MaxDepth = max(s.stats.MaxDepth, len(s.expanding))
	s.cfg.logger.Debug("expanding component", "name", name, "depth", len(s.expanding))

	inner := EmptyEnv()
	for _, param := range entry.Schema.ParameterOrder {
		if b, ok := bound[param]; ok {
			inner = inner.With(param, b)
		}
	}
	var out []ir.Node
	for _, b := range entry.Definition.Body {
		nodes, err := s.component(b, inner, topLevel)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// bindSlots distributes resolved children over the definition's slot
// parameter: a slot takes exactly one node, a slot[] takes all of them and
// no slot parameter means no children.
func bindSlots(c *ast.Component, schema *types.ComponentSchema, kids []ir.Node, bound map[string]Binding) error {
	slots := schema.SlotParameters()
	invariant.Invariant(len(slots) <= 1, "definition %s has %d slot parameters", schema.Name, len(slots))

	at := c.Name.Span
	if len(c.Children) > 0 {
		at = c.Children[0].Span.Join(c.Children[len(c.Children)-1].Span)
	}

	if len(slots) == 0 {
		if len(kids) > 0 {
			return diag.Newf(diag.BadSlotArity, at,
				"'%s' has no slot parameter but was given %d child node(s)", schema.Name, len(kids))
		}
		return nil
	}

	slot := slots[0]
	if slot.Type == ast.TypeSlot && len(kids) != 1 {
		return diag.Newf(diag.BadSlotArity, at,
			"slot '%s' of '%s' takes exactly one child, got %d", slot.Name, schema.Name, len(kids))
	}
	bound[slot.Name] = Binding{Type: slot.Type, Nodes: kids}
	return nil
}
