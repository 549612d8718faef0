package types

import (
	"sync"

	"github.com/aledsdavies/markerml/core/ast"
	"github.com/aledsdavies/markerml/core/invariant"
)

// Builtin component names.
const (
	BuiltinBox       = "box"
	BuiltinText      = "@"
	BuiltinImage     = "image"
	BuiltinLink      = "#"
	BuiltinList      = "list"
	BuiltinHeader    = "header"
	BuiltinParagraph = "paragraph"
	BuiltinPage      = "page"
)

var alignments = []string{"start", "center", "end"}

func builtinSchemas() []ComponentSchema {
	return []ComponentSchema{
		NewSchema(BuiltinBox).
			Description("Flex container laying children out in a column or row").
			Flag("vertical").Exclusive("orientation").Done().
			Flag("horizontal").Exclusive("orientation").Done().
			Param("x_align", ast.TypeString).Default("start").Enum(alignments...).Done().
			Param("y_align", ast.TypeString).Default("start").Enum(alignments...).Done().
			AcceptsChildren().
			Build(),

		NewSchema(BuiltinText).
			Description("Inline text").
			TextParam("content").Required().Done().
			Build(),

		NewSchema(BuiltinImage).
			Description("Image from a URL").
			DefaultParam("url", ast.TypeString).Required().Done().
			Build(),

		NewSchema(BuiltinLink).
			Description("Hyperlink").
			Alias("link").
			DefaultParam("url", ast.TypeString).Required().Done().
			TextParam("name").Required().Done().
			Build(),

		NewSchema(BuiltinList).
			Description("Bulleted or numbered list; each child is one item").
			Flag("ordered").Exclusive("ordering").Done().
			Flag("unordered").Exclusive("ordering").Done().
			AcceptsChildren().
			Build(),

		NewSchema(BuiltinHeader).
			Description("Section heading").
			DefaultParam("level", ast.TypeInt).Default(1).Done().
			TextParam("content").Required().Done().
			Build(),

		NewSchema(BuiltinParagraph).
			Description("Paragraph of text").
			TextParam("content").Required().Done().
			Build(),

		NewSchema(BuiltinPage).
			Description("Document root").
			Param("title", ast.TypeString).Default("").Done().
			AcceptsChildren().
			TopLevelOnly().
			Build(),
	}
}

var builtins = sync.OnceValue(func() map[string]*ComponentSchema {
	out := make(map[string]*ComponentSchema)
	for _, s := range builtinSchemas() {
		invariant.ExpectNoError(ValidateSchema(s), "builtin schema "+s.Name)
		schema := s
		out[s.Name] = &schema
		for _, alias := range s.Aliases {
			out[alias] = &schema
		}
	}
	return out
})

// LookupBuiltin returns the schema for a builtin name or alias. The
// returned schema is shared and must not be modified.
func LookupBuiltin(name string) (*ComponentSchema, bool) {
	s, ok := builtins()[name]
	return s, ok
}

// BuiltinNames returns every builtin name and alias.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins()))
	for name := range builtins() {
		names = append(names, name)
	}
	return names
}
