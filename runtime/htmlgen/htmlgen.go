// Package htmlgen renders an IR page as HTML.
//
//	box       -> <div style="display: flex; ...">
//	text      -> <span>
//	image     -> <img src>
//	link      -> <a href>
//	list      -> <ul>/<ol>, every item wrapped in <li>
//	header    -> <h1>..<h6>
//	paragraph -> <p>
//	page      -> HTML5 document with <title> and <main>
//
// All text and attribute values are escaped.
package htmlgen

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/ir"
)

// Error reports an IR node the backend cannot express.
type Error struct {
	Kind    ir.Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("html: cannot render %s: %s", e.Kind, e.Message)
}

// Option configures rendering.
type Option func(*config)

type config struct {
	fragment bool
	title    string
	lang     string
	logger   *slog.Logger
}

// WithFragment renders only the <main> element instead of a full document.
func WithFragment() Option {
	return func(c *config) {
		c.fragment = true
	}
}

// WithTitle sets the document title used when the page has none.
func WithTitle(title string) Option {
	return func(c *config) {
		c.title = title
	}
}

// WithLang sets the lang attribute of the <html> element. Default "en".
func WithLang(lang string) Option {
	return func(c *config) {
		c.lang = lang
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Render writes page to w.
func Render(w io.Writer, page *ir.Page, opts ...Option) error {
	invariant.NotNil(page, "page")
	cfg := &config{lang: "en"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	body, err := nodes(page.Children)
	if err != nil {
		return err
	}
	main := h.Main(body...)

	var doc g.Node = main
	if !cfg.fragment {
		title := page.Title
		if title == "" {
			title = cfg.title
		}
		doc = h.Doctype(
			h.HTML(h.Lang(cfg.lang),
				h.Head(
					h.Meta(h.Charset("utf-8")),
					h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
					h.TitleEl(g.Text(title)),
				),
				h.Body(main),
			),
		)
	}

	cfg.logger.Debug("rendering html", "fragment", cfg.fragment, "nodes", ir.Count(page))
	if err := doc.Render(w); err != nil {
		return fmt.Errorf("writing html: %w", err)
	}
	return nil
}

// RenderString renders page into a string.
func RenderString(page *ir.Page, opts ...Option) (string, error) {
	var b strings.Builder
	if err := Render(&b, page, opts...); err != nil {
		return "", err
	}
	return b.String(), nil
}

func nodes(in []ir.Node) ([]g.Node, error) {
	out := make([]g.Node, 0, len(in))
	for _, n := range in {
		el, err := node(n)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func node(n ir.Node) (g.Node, error) {
	switch n := n.(type) {
	case *ir.Box:
		kids, err := nodes(n.Children)
		if err != nil {
			return nil, err
		}
		return h.Div(append([]g.Node{h.Style(boxStyle(n))}, kids...)...), nil

	case *ir.Text:
		return h.Span(g.Text(n.Content)), nil

	case *ir.Image:
		return h.Img(h.Src(n.URL)), nil

	case *ir.Link:
		return h.A(h.Href(n.URL), g.Text(n.Name)), nil

	case *ir.List:
		items := make([]g.Node, 0, len(n.Items))
		for _, item := range n.Items {
			el, err := node(item)
			if err != nil {
				return nil, err
			}
			items = append(items, h.Li(el))
		}
		if n.Ordered {
			return h.Ol(items...), nil
		}
		return h.Ul(items...), nil

	case *ir.Header:
		heading, ok := headings[n.Level]
		if !ok {
			return nil, &Error{Kind: ir.KindHeader, Message: fmt.Sprintf("level %d is outside 1-6", n.Level)}
		}
		return heading(g.Text(n.Content)), nil

	case *ir.Paragraph:
		return h.P(g.Text(n.Content)), nil

	case *ir.Page:
		return nil, &Error{Kind: ir.KindPage, Message: "a page cannot be nested"}

	default:
		invariant.Unreachable("unknown IR node %T", n)
		return nil, nil
	}
}

var headings = map[int64]func(...g.Node) g.Node{
	1: h.H1, 2: h.H2, 3: h.H3, 4: h.H4, 5: h.H5, 6: h.H6,
}

var flexAlign = map[ir.Align]string{
	ir.AlignStart:  "flex-start",
	ir.AlignCenter: "center",
	ir.AlignEnd:    "flex-end",
}

// boxStyle maps a box to flexbox. The main axis follows the orientation, so
// a vertical box justifies by y_align and aligns items by x_align.
func boxStyle(b *ir.Box) string {
	direction, justify, align := "column", b.YAlign, b.XAlign
	if b.Orientation == ir.Horizontal {
		direction, justify, align = "row", b.XAlign, b.YAlign
	}
	return fmt.Sprintf("display: flex; flex-direction: %s; justify-content: %s; align-items: %s",
		direction, flexAlign[justify], flexAlign[align])
}
