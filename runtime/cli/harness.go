// Package cli is the markerml command line: a thin cobra harness over the
// compiler, the HTML backend and the live-reload server.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/markerml/runtime/config"
)

// Streams are the harness's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Harness owns the root command and the global flags.
type Harness struct {
	rootCmd *cobra.Command
	version string
	streams Streams
	dir     string

	configPath string
	debug      bool
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger
}

// HarnessOpt configures a Harness.
type HarnessOpt func(*Harness)

// WithDir sets the directory searched for a project file. Default ".".
func WithDir(dir string) HarnessOpt {
	return func(h *Harness) {
		h.dir = dir
	}
}

// NewHarness builds the command tree.
func NewHarness(name, version string, streams Streams, opts ...HarnessOpt) *Harness {
	h := &Harness{version: version, streams: streams, dir: "."}
	for _, opt := range opts {
		opt(h)
	}

	h.rootCmd = &cobra.Command{
		Use:           name,
		Short:         "Compile MarkerML documents to HTML",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return h.setup()
		},
	}
	h.rootCmd.SetIn(streams.In)
	h.rootCmd.SetOut(streams.Out)
	h.rootCmd.SetErr(streams.Err)

	flags := h.rootCmd.PersistentFlags()
	flags.StringVarP(&h.configPath, "config", "c", "", "Project file (default: markerml.toml or markerml.yaml in the working directory)")
	flags.BoolVar(&h.debug, "debug", false, "Enable debug output")
	flags.BoolVar(&h.noColor, "no-color", false, "Disable colored output")

	h.rootCmd.AddCommand(
		h.convertCommand(),
		h.checkCommand(),
		h.irCommand(),
		h.watchCommand(),
		h.versionCommand(),
	)
	return h
}

// RootCommand returns the root cobra command for customization.
func (h *Harness) RootCommand() *cobra.Command {
	return h.rootCmd
}

// Execute runs the command line and returns the process exit code.
func (h *Harness) Execute(ctx context.Context, args []string) int {
	h.rootCmd.SetArgs(args)
	err := h.rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	FormatError(h.streams.Err, err, h.useColor())
	return ExitCode(err)
}

func (h *Harness) setup() error {
	h.logger = newLogger(h.streams.Err, h.debug || os.Getenv("MARKERML_DEBUG") != "")

	path := h.configPath
	if path == "" {
		if found, ok := config.Find(h.dir); ok {
			path = found
		}
	}
	if path == "" {
		h.cfg = config.Default()
		return nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.CheckVersion(h.version); err != nil {
		return &CLIError{
			Type:    "config",
			Message: err.Error(),
			Hint:    "upgrade markerml or lower 'version' in " + path,
			Code:    ExitUsage,
		}
	}
	h.logger.Debug("loaded config", "path", path)
	h.cfg = cfg
	return nil
}

func (h *Harness) useColor() bool {
	return ShouldUseColor(h.noColor, h.streams.Err)
}

// newLogger writes text records without timestamps to w.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

var errNoInput = errors.New("no input file")
