package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/runtime/config"
	"github.com/aledsdavies/markerml/runtime/htmlgen"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitUsage   = 1
	ExitIO      = 2
	ExitCompile = 3
	ExitRender  = 4
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "usage", "io", "config"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
	Code    int    // Exit code, ExitUsage when zero
	Err     error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// compileError ties a compile error to the file it came from.
type compileError struct {
	File string
	Err  diag.Spanned
}

func (e *compileError) Error() string {
	return e.Err.Error()
}

func (e *compileError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Code != 0 {
		return cliErr.Code
	}
	var spanned diag.Spanned
	if errors.As(err, &spanned) {
		return ExitCompile
	}
	var renderErr *htmlgen.Error
	if errors.As(err, &renderErr) {
		return ExitRender
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return ExitIO
	}
	return ExitUsage
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var cerr *compileError
	var cliErr *CLIError
	var cfgErr *config.Error
	switch {
	case errors.As(err, &cerr):
		formatCompileError(w, cerr, useColor)
	case errors.As(err, &cliErr):
		formatCLIError(w, cliErr, useColor)
	case errors.As(err, &cfgErr):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", errorStyle, useColor), cfgErr.Error())
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", hintStyle, useColor),
			"check the keys and values against the documented config schema")
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", errorStyle, useColor), err.Error())
	}
}

// formatCompileError prints the headline, the source snippet with the file
// name in its location line, then the diagnostic notes.
func formatCompileError(w io.Writer, err *compileError, useColor bool) {
	headline, snippet, _ := strings.Cut(err.Err.Error(), "\n")
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", errorStyle, useColor), headline)

	if snippet != "" {
		if err.File != "" {
			snippet = strings.Replace(snippet, "  --> ", "  --> "+err.File+":", 1)
		}
		for _, line := range strings.Split(snippet, "\n") {
			_, _ = fmt.Fprintln(w, Colorize(line, snippetStyle, useColor))
		}
	}

	d := err.Err.Diagnostic()
	for _, note := range d.Notes {
		_, _ = fmt.Fprintf(w, "   %s%s\n", Colorize("= note: ", noteStyle, useColor), note)
	}
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", errorStyle, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", hintStyle, useColor), err.Hint)
	}
}
