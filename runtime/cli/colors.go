package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/aledsdavies/markerml/core/irfmt/formatter"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
)

// Colorize renders text with style if color is enabled
// This is a convenience wrapper around formatter.Colorize
func Colorize(text string, style lipgloss.Style, useColor bool) string {
	return formatter.Colorize(text, style, useColor)
}

// ShouldUseColor determines if color output should be used on w.
// Respects --no-color flag and NO_COLOR environment variable
func ShouldUseColor(noColorFlag bool, w io.Writer) bool {
	if noColorFlag {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
