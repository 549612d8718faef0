package resolver

import (
	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/ir"
	"github.com/aledsdavies/markerml/core/types"
)

// buildBuiltin turns bound properties and resolved children into the IR
// node for a builtin. Binding has already validated presence, types,
// exclusive flags and enum values.
func buildBuiltin(name string, bound map[string]Binding, kids []ir.Node) ir.Node {
	switch name {
	case types.BuiltinBox:
		orientation := ir.Vertical
		if bound["horizontal"].Bool {
			orientation = ir.Horizontal
		}
		x, okX := ir.ParseAlign(bound["x_align"].Str)
		y, okY := ir.ParseAlign(bound["y_align"].Str)
		invariant.Postcondition(okX && okY, "box alignment validated by schema")
		return &ir.Box{Orientation: orientation, XAlign: x, YAlign: y, Children: kids}

	case types.BuiltinText:
		return &ir.Text{Content: bound["content"].Str}

	case types.BuiltinImage:
		return &ir.Image{URL: bound["url"].Str}

	case types.BuiltinLink:
		return &ir.Link{URL: bound["url"].Str, Name: bound["name"].Str}

	case types.BuiltinList:
		return &ir.List{Ordered: bound["ordered"].Bool, Items: kids}

	case types.BuiltinHeader:
		return &ir.Header{Level: bound["level"].Int, Content: bound["content"].Str}

	case types.BuiltinParagraph:
		return &ir.Paragraph{Content: bound["content"].Str}

	case types.BuiltinPage:
		return &ir.Page{Title: bound["title"].Str, Children: kids}

	default:
		invariant.Unreachable("no IR builder for builtin %q", name)
		return nil
	}
}
