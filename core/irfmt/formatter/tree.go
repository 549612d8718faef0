// Package formatter renders IR trees for humans.
package formatter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/ir"
)

var (
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	attrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	treeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Colorize renders text with style if color is enabled.
func Colorize(text string, style lipgloss.Style, useColor bool) string {
	if !useColor {
		return text
	}
	return style.Render(text)
}

// FormatTree renders n and its descendants, one node per line:
//
//	page "Home"
//	├─ header 1 "Welcome"
//	└─ box vertical x=start y=start
//	   └─ text "hi"
func FormatTree(w io.Writer, n ir.Node, useColor bool) {
	invariant.NotNil(n, "node")
	_, _ = fmt.Fprintln(w, renderNode(n, useColor))
	renderChildren(w, ir.Children(n), "", useColor)
}

func renderChildren(w io.Writer, kids []ir.Node, indent string, useColor bool) {
	for i, kid := range kids {
		branch, next := "├─ ", "│  "
		if i == len(kids)-1 {
			branch, next = "└─ ", "   "
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize(indent+branch, treeStyle, useColor), renderNode(kid, useColor))
		renderChildren(w, ir.Children(kid), indent+next, useColor)
	}
}

// renderNode renders the one-line summary of a node
func renderNode(n ir.Node, useColor bool) string {
	kind := Colorize(string(n.Kind()), kindStyle, useColor)
	quote := func(s string) string {
		return Colorize(strconv.Quote(s), valueStyle, useColor)
	}
	attr := func(k, v string) string {
		return Colorize(k+"=", attrStyle, useColor) + Colorize(v, valueStyle, useColor)
	}

	switch n := n.(type) {
	case *ir.Page:
		if n.Title == "" {
			return kind
		}
		return kind + " " + quote(n.Title)
	case *ir.Box:
		return fmt.Sprintf("%s %s %s %s", kind, Colorize(string(n.Orientation), attrStyle, useColor),
			attr("x", string(n.XAlign)), attr("y", string(n.YAlign)))
	case *ir.List:
		if n.Ordered {
			return kind + " " + Colorize("ordered", attrStyle, useColor)
		}
		return kind + " " + Colorize("unordered", attrStyle, useColor)
	case *ir.Header:
		return fmt.Sprintf("%s %s %s", kind, attr("level", strconv.FormatInt(n.Level, 10)), quote(n.Content))
	case *ir.Text:
		return kind + " " + quote(n.Content)
	case *ir.Paragraph:
		return kind + " " + quote(n.Content)
	case *ir.Image:
		return kind + " " + attr("src", n.URL)
	case *ir.Link:
		return fmt.Sprintf("%s %s %s", kind, attr("href", n.URL), quote(n.Name))
	default:
		invariant.Unreachable("unknown IR node %T", n)
		return ""
	}
}
