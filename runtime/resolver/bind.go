package resolver

import (
	"strings"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/types"
)

// bind matches an instantiation's properties and text block against
// schema. Values are evaluated in env, the caller's scope. Missing
// parameters get their defaults, evaluated in an empty scope. Slot
// parameters are left for bindSlots.
func (s *state) bind(c *ast.Component, schema *types.ComponentSchema, env Env) (map[string]Binding, error) {
	bound := make(map[string]Binding, len(schema.Parameters))
	boundAt := make(map[string]ast.Span, len(schema.Parameters))

	set := func(param types.ParamSchema, b Binding, span ast.Span) error {
		if first, dup := boundAt[param.Name]; dup {
			err := diag.Newf(diag.DuplicateProperty, span,
				"property '%s' of '%s' is set more than once", param.Name, c.Name.Value)
			err.Related = &first
			return err
		}
		if param.Type.IsSlot() {
			err := diag.Newf(diag.TypeMismatch, span,
				"'%s' is a %s parameter of '%s' and is filled from children", param.Name, param.Type, c.Name.Value)
			err.Expected, err.Found = param.Type.String(), b.Type.String()
			return err
		}
		if b.Type != param.Type {
			err := diag.Newf(diag.TypeMismatch, span,
				"property '%s' of '%s' expects %s, found %s", param.Name, c.Name.Value, param.Type, b.Type)
			err.Expected, err.Found = param.Type.String(), b.Type.String()
			return err
		}
		bound[param.Name] = b
		boundAt[param.Name] = span
		return nil
	}

	for _, prop := range c.Properties {
		switch prop := prop.(type) {
		case *ast.DefaultProperty:
			if schema.DefaultParameter == "" {
				return nil, diag.Newf(diag.UnknownProperty, prop.Span,
					"'%s' has no default property", c.Name.Value)
			}
			b, err := s.value(prop.Value, env)
			if err != nil {
				return nil, err
			}
			if err := set(schema.Parameters[schema.DefaultParameter], b, prop.Span); err != nil {
				return nil, err
			}

		case *ast.NamedProperty:
			param, err := s.param(c, schema, prop.Name, prop.Span)
			if err != nil {
				return nil, err
			}
			b, err := s.value(prop.Value, env)
			if err != nil {
				return nil, err
			}
			if err := set(param, b, prop.Span); err != nil {
				return nil, err
			}

		case *ast.FlagProperty:
			param, err := s.param(c, schema, prop.Name, prop.Span)
			if err != nil {
				return nil, err
			}
			if err := set(param, boolBinding(true), prop.Span); err != nil {
				return nil, err
			}

		default:
			invariant.Unreachable("unknown property %T", prop)
		}
	}

	if c.Text != nil {
		if schema.TextParameter == "" {
			return nil, diag.Newf(diag.UnknownProperty, c.Text.Span,
				"'%s' does not accept text", c.Name.Value)
		}
		text, err := s.interpolate(c.Text.Segments, env)
		if err != nil {
			return nil, err
		}
		if err := set(schema.Parameters[schema.TextParameter], stringBinding(text), c.Text.Span); err != nil {
			return nil, err
		}
	}

	if err := checkGroups(c, schema, bound, boundAt); err != nil {
		return nil, err
	}

	for _, param := range schema.GetOrderedParameters() {
		if _, ok := bound[param.Name]; ok || param.Type.IsSlot() {
			continue
		}
		if param.Default != nil {
			b, err := s.value(param.Default, EmptyEnv())
			if err != nil {
				return nil, err
			}
			bound[param.Name] = b
			continue
		}
		if param.Required {
			return nil, diag.Newf(diag.MissingRequiredProperty, c.Name.Span,
				"'%s' requires %s property '%s'", c.Name.Value, requiredHow(param), param.Name)
		}
	}

	for _, param := range schema.GetOrderedParameters() {
		b, ok := bound[param.Name]
		if !ok || b.Type != ast.TypeString {
			continue
		}
		if err := param.ValidateEnum(b.Str); err != nil {
			span, explicit := boundAt[param.Name]
			if !explicit {
				span = c.Name.Span
			}
			return nil, diag.Newf(diag.InvalidPropertyValue, span,
				"invalid value for '%s' of '%s': %s", param.Name, c.Name.Value, err)
		}
	}
	return bound, nil
}

func requiredHow(p types.ParamSchema) string {
	switch p.Kind {
	case types.ParamDefault:
		return "default"
	case types.ParamText:
		return "text"
	default:
		return "the"
	}
}

// param looks up a parameter by name for a named or flag property.
func (s *state) param(c *ast.Component, schema *types.ComponentSchema, name string, span ast.Span) (types.ParamSchema, error) {
	param, ok := schema.Parameters[name]
	if !ok {
		err := diag.Newf(diag.UnknownProperty, span, "'%s' has no property '%s'", c.Name.Value, name)
		err.Suggestions = suggest(name, schema.ParameterNames())
		return types.ParamSchema{}, err
	}
	return param, nil
}

// checkGroups rejects two flags of the same exclusive group both set.
func checkGroups(c *ast.Component, schema *types.ComponentSchema, bound map[string]Binding, boundAt map[string]ast.Span) error {
	checked := make(map[string]bool)
	for _, param := range schema.GetOrderedParameters() {
		if param.Group == "" || checked[param.Group] {
			continue
		}
		checked[param.Group] = true

		var set []string
		for _, name := range schema.Group(param.Group) {
			if b, ok := bound[name]; ok && b.Bool {
				set = append(set, name)
			}
		}
		if len(set) > 1 {
			return diag.Newf(diag.ConflictingProperties, boundAt[set[1]],
				"'%s' cannot be both %s", c.Name.Value, strings.Join(set, " and "))
		}
	}
	return nil
}

// value evaluates a property value in env.
func (s *state) value(v ast.Value, env Env) (Binding, error) {
	switch v := v.(type) {
	case *ast.BoolValue:
		return boolBinding(v.Value), nil
	case *ast.IntValue:
		return intBinding(v.Value), nil
	case *ast.StringValue:
		text, err := s.interpolate(v.Segments, env)
		if err != nil {
			return Binding{}, err
		}
		return stringBinding(text), nil
	case *ast.VarRef:
		b, ok := env.Lookup(v.Name)
		if !ok {
			return Binding{}, s.unknownVariable(v.Name, v.Span, env)
		}
		return b, nil
	default:
		invariant.Unreachable("unknown value %T", v)
		return Binding{}, nil
	}
}

// interpolate builds the text of a string or text block. Scalars are
// stringified; slots cannot be interpolated.
func (s *state) interpolate(segs []ast.Segment, env Env) (string, error) {
	var b strings.Builder
	for _, seg := range segs {
		switch seg := seg.(type) {
		case *ast.LiteralSegment:
			b.WriteString(seg.Text)
		case *ast.SpaceSegment:
			b.WriteByte(' ')
		case *ast.VarSegment:
			v, ok := env.Lookup(seg.Name)
			if !ok {
				return "", s.unknownVariable(seg.Name, seg.Span, env)
			}
			if v.Type.IsSlot() {
				err := diag.Newf(diag.TypeMismatch, seg.Span,
					"slot '%s' cannot be interpolated into text; place it as ${%s} in a children block", seg.Name, seg.Name)
				err.Expected, err.Found = "string, int or bool", v.Type.String()
				return "", err
			}
			b.WriteString(v.String())
		default:
			invariant.Unreachable("unknown segment %T", seg)
		}
	}
	return b.String(), nil
}

func (s *state) unknownVariable(name string, span ast.Span, env Env) error {
	err := diag.Newf(diag.UnknownVariable, span, "variable '%s' is not in scope", name)
	err.Suggestions = suggest(name, env.Names())
	return err
}
