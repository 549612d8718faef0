package compiler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/core/ir"
	"github.com/aledsdavies/markerml/runtime/parser"
)

const blogPost = `
// A small page built from user components.
component card[default title: string, body: slot[]] {
    box[vertical, x_align="center"] {
        header[2](${title})
        ${body}
    }
}

component entry[default url: string, text label] {
    #[${url}](${label})
}

page[title="Blog"] {
    header(Posts)
    card["First"] {
        paragraph(
            Hello
            world
        )
        entry["/first"](Read more)
    }
    list[ordered] { @(one) @(two) }
    image["cat.png"]
}
`

func TestCompileEndToEnd(t *testing.T) {
	got, err := Compile(blogPost)
	require.NoError(t, err)

	want := &ir.Page{
		Title: "Blog",
		Children: []ir.Node{
			&ir.Header{Level: 1, Content: "Posts"},
			&ir.Box{
				Orientation: ir.Vertical,
				XAlign:      ir.AlignCenter,
				YAlign:      ir.AlignStart,
				Children: []ir.Node{
					&ir.Header{Level: 2, Content: "First"},
					&ir.Paragraph{Content: " Hello world"},
					&ir.Link{URL: "/first", Name: "Read more"},
				},
			},
			&ir.List{Ordered: true, Items: []ir.Node{
				&ir.Text{Content: "one"},
				&ir.Text{Content: "two"},
			}},
			&ir.Image{URL: "cat.png"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    diag.Kind
		line    int
		column  int
		snippet string
	}{
		{
			name:    "syntax",
			input:   "box {\n  @(a\n",
			kind:    diag.ParseError,
			line:    2,
			column:  4,
			snippet: " 2 |   @(a",
		},
		{
			name:    "unknown component",
			input:   "box {\n  bogus\n}",
			kind:    diag.UnknownComponent,
			line:    2,
			column:  3,
			snippet: " 2 |   bogus",
		},
		{
			name:    "column counts characters after non-ascii text",
			input:   "@(żółw) bogus",
			kind:    diag.UnknownComponent,
			line:    1,
			column:  9,
			snippet: " 1 | @(żółw) bogus\n   |         ^^^^^",
		},
		{
			name:    "duplicate definition",
			input:   "component a\ncomponent a",
			kind:    diag.DuplicateComponentDefinition,
			line:    2,
			column:  11,
			snippet: " 2 | component a",
		},
		{
			name:    "static recursion",
			input:   "component a { b }\ncomponent b { a }",
			kind:    diag.RecursiveDefinition,
			line:    2,
			column:  15,
			snippet: " 2 | component b { a }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.input)
			require.Error(t, err)

			d, ok := Diagnostic(err)
			require.True(t, ok, "compile errors must carry a diagnostic: %v", err)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.line, d.Span.Start.Line)
			assert.Equal(t, tt.column, d.Span.Start.Column)
			assert.Contains(t, err.Error(), tt.snippet)
		})
	}
}

func TestParseErrorType(t *testing.T) {
	_, err := Compile("box[")
	var perr *parser.ParseError
	require.ErrorAs(t, err, &perr)

	_, err = Compile("nope")
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "nope", derr.Input)
}

func TestDiagnosticForeignError(t *testing.T) {
	_, ok := Diagnostic(errors.New("boom"))
	assert.False(t, ok)

	d, ok := Diagnostic(fmt.Errorf("compiling page.mml: %w", &diag.Error{Kind: diag.BadSlotArity, Message: "m"}))
	require.True(t, ok)
	assert.Equal(t, diag.BadSlotArity, d.Kind)
}

func TestLazyCycleCheck(t *testing.T) {
	input := "component r { r }\n@(fine)"

	_, err := Compile(input)
	kind, _ := diag.KindOf(err)
	assert.Equal(t, diag.RecursiveDefinition, kind)

	page, err := Compile(input, WithLazyCycleCheck())
	require.NoError(t, err)
	assert.Equal(t, 2, ir.Count(page))

	_, err = Compile("component r { r }\nr", WithLazyCycleCheck())
	kind, _ = diag.KindOf(err)
	assert.Equal(t, diag.RecursiveDefinition, kind)
}

func TestMaxDepthOption(t *testing.T) {
	var b strings.Builder
	for i := range 10 {
		fmt.Fprintf(&b, "component c%d { c%d }\n", i, i+1)
	}
	b.WriteString("component c10 { @(bottom) }\nc0")

	_, err := Compile(b.String())
	require.NoError(t, err)

	_, err = Compile(b.String(), WithMaxDepth(5))
	kind, ok := diag.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.RecursiveDefinition, kind)
}

func TestCompileWithStats(t *testing.T) {
	res, err := CompileWithStats(blogPost)
	require.NoError(t, err)

	assert.NotNil(t, res.Page)
	assert.Len(t, res.Module.Definitions(), 2)
	assert.Greater(t, res.Stats.Parse.TokenCount, 0)
	assert.Equal(t, 2, res.Stats.Parse.DefinitionCount)
	assert.Equal(t, 2, res.Stats.Resolve.Expansions)
	assert.Equal(t, ir.Count(res.Page), res.Stats.Resolve.Nodes)
	assert.GreaterOrEqual(t, res.Stats.Total, res.Stats.Resolve.Duration)
}

func TestCompileModule(t *testing.T) {
	mod, err := parser.ParseModule("header[3](x)")
	require.NoError(t, err)

	page, err := CompileModule(mod)
	require.NoError(t, err)
	assert.Equal(t, &ir.Page{Children: []ir.Node{&ir.Header{Level: 3, Content: "x"}}}, page)
}

func TestCompileIsIdempotent(t *testing.T) {
	first, err := Compile(blogPost)
	require.NoError(t, err)
	second, err := Compile(blogPost)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("compile not idempotent (-first +second):\n%s", diff)
	}
}

func TestConcurrentCompile(t *testing.T) {
	want, err := Compile(blogPost)
	require.NoError(t, err)

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Compile(blogPost)
			if err != nil {
				errs <- err
				return
			}
			if diff := cmp.Diff(want, got); diff != "" {
				errs <- fmt.Errorf("IR mismatch (-want +got):\n%s", diff)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
