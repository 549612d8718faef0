package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/markerml/core/diag"
	"github.com/aledsdavies/markerml/core/ir"
	"github.com/aledsdavies/markerml/core/irfmt"
	"github.com/aledsdavies/markerml/core/irfmt/formatter"
	"github.com/aledsdavies/markerml/runtime/compiler"
	"github.com/aledsdavies/markerml/runtime/htmlgen"
	"github.com/aledsdavies/markerml/runtime/watch"
)

func (h *Harness) convertCommand() *cobra.Command {
	var (
		input, output, title string
		fragment             bool
	)
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a MarkerML file to HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input = h.inputOr(input)
			page, err := h.compileFile(input)
			if err != nil {
				return err
			}

			opts := []htmlgen.Option{htmlgen.WithLogger(h.logger), htmlgen.WithLang(h.cfg.HTML.Lang)}
			if title = firstNonEmpty(title, h.cfg.HTML.Title); title != "" {
				opts = append(opts, htmlgen.WithTitle(title))
			}
			if fragment || h.cfg.HTML.Fragment {
				opts = append(opts, htmlgen.WithFragment())
			}

			html, err := htmlgen.RenderString(page, opts...)
			if err != nil {
				return err
			}

			w, closeFunc, err := h.getOutputWriter(firstNonEmpty(output, h.cfg.Output))
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, html); err != nil {
				_ = closeFunc()
				return &CLIError{Type: "io", Message: "couldn't write output", Code: ExitIO, Err: err}
			}
			return closeFunc()
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, stdout when empty or -")
	cmd.Flags().StringVar(&title, "title", "", "Document title when the page has none")
	cmd.Flags().BoolVar(&fragment, "fragment", false, "Emit only the <main> element")
	return cmd
}

func (h *Harness) checkCommand() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile a file and report errors without writing output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input = h.inputOr(input)
			page, err := h.compileFile(input)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d nodes\n",
				Colorize("ok", okStyle, ShouldUseColor(h.noColor, cmd.OutOrStdout())), displayName(input), ir.Count(page))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file, - for stdin")
	return cmd
}

func (h *Harness) irCommand() *cobra.Command {
	var (
		input, format string
		digest        bool
	)
	cmd := &cobra.Command{
		Use:   "ir",
		Short: "Print the resolved IR tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input = h.inputOr(input)
			page, err := h.compileFile(input)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if digest {
				d, err := irfmt.Digest(page)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, d)
				return nil
			}

			switch format {
			case "tree":
				formatter.FormatTree(out, page, ShouldUseColor(h.noColor, out))
			case "json":
				data, err := irfmt.MarshalJSON(page)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "%s\n", data)
			case "cbor":
				data, err := irfmt.Marshal(page)
				if err != nil {
					return err
				}
				_, _ = out.Write(data)
			default:
				return &CLIError{
					Type:    "usage",
					Message: fmt.Sprintf("unknown format %q", format),
					Hint:    "use --format tree, json or cbor",
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file, - for stdin")
	cmd.Flags().StringVarP(&format, "format", "f", "tree", "Output format: tree, json or cbor")
	cmd.Flags().BoolVar(&digest, "digest", false, "Print only the IR digest")
	return cmd
}

func (h *Harness) watchCommand() *cobra.Command {
	var (
		input, host string
		port        int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Serve a live-reloading preview of a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input = h.inputOr(input)
			if input == "" || input == "-" {
				return &CLIError{
					Type:    "usage",
					Message: "watch needs an input file",
					Hint:    "pass -i <file> or set 'input' in the project file",
					Err:     errNoInput,
				}
			}
			if _, err := os.Stat(input); err != nil {
				return &CLIError{Type: "io", Message: fmt.Sprintf("couldn't open file %s", input), Code: ExitIO, Err: err}
			}

			wc := h.cfg.Watch
			if cmd.Flags().Changed("port") {
				wc.Port = port
			}
			if cmd.Flags().Changed("host") {
				wc.Host = host
			}
			if wc.Port < 1 || wc.Port > 65535 {
				return &CLIError{Type: "usage", Message: fmt.Sprintf("port %d is out of range", wc.Port)}
			}

			srv := watch.New(input,
				watch.WithDebounce(wc.Debounce()),
				watch.WithLogger(h.logger),
				watch.WithCompileOptions(h.compileOptions()...),
				watch.WithRenderOptions(htmlgen.WithLang(h.cfg.HTML.Lang)),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, wc.Addr())
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config, 3000)")
	cmd.Flags().StringVar(&host, "host", "", "Address to bind (default 127.0.0.1)")
	return cmd
}

func (h *Harness) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", h.rootCmd.Name(), h.version)
			return nil
		},
	}
}

func (h *Harness) inputOr(flag string) string {
	return firstNonEmpty(flag, h.cfg.Input)
}

func (h *Harness) compileOptions() []compiler.Option {
	opts := []compiler.Option{
		compiler.WithLogger(h.logger),
		compiler.WithMaxDepth(h.cfg.Compile.MaxDepth),
	}
	if h.cfg.Compile.LazyCycles {
		opts = append(opts, compiler.WithLazyCycleCheck())
	}
	return opts
}

// compileFile reads and compiles input.
func (h *Harness) compileFile(input string) (*ir.Page, error) {
	if input == "" {
		return nil, &CLIError{
			Type:    "usage",
			Message: "no input file",
			Hint:    "pass -i <file>, -i - for stdin, or set 'input' in the project file",
			Err:     errNoInput,
		}
	}

	r, closeFunc, err := h.getInputReader(input)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	_ = closeFunc()
	if err != nil {
		return nil, &CLIError{Type: "io", Message: fmt.Sprintf("couldn't read %s", displayName(input)), Code: ExitIO, Err: err}
	}

	page, err := compiler.Compile(string(data), h.compileOptions()...)
	if err != nil {
		var spanned diag.Spanned
		if errors.As(err, &spanned) {
			return nil, &compileError{File: displayName(input), Err: spanned}
		}
		return nil, err
	}
	return page, nil
}

// getInputReader handles the 2 modes of input:
// 1. Explicit stdin with -i -
// 2. File input
func (h *Harness) getInputReader(file string) (io.Reader, func() error, error) {
	if file == "-" {
		return h.streams.In, func() error { return nil }, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, nil, &CLIError{Type: "io", Message: fmt.Sprintf("couldn't open file %s", file), Code: ExitIO, Err: err}
	}
	return f, f.Close, nil
}

// getOutputWriter returns stdout for "" and "-", otherwise creates file.
func (h *Harness) getOutputWriter(file string) (io.Writer, func() error, error) {
	if file == "" || file == "-" {
		return h.streams.Out, func() error { return nil }, nil
	}

	f, err := os.Create(file)
	if err != nil {
		return nil, nil, &CLIError{Type: "io", Message: fmt.Sprintf("couldn't create file %s", file), Code: ExitIO, Err: err}
	}
	return f, f.Close, nil
}

func displayName(input string) string {
	if input == "-" {
		return "<stdin>"
	}
	return input
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
