// Package cli implements the ndb command line: dataset import, event
// queries and the cached statistics summary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JacobsonMT/ndb/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// TraceIDs allows overriding the trace id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TraceIDs TraceIDGenerator

	// Resolved in PersistentPreRunE.
	Config  config.Config
	TraceID string
	Logger  *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ndb CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ndb",
		Short: "ndb - neurodevelopmental variant database",
		Long: `Query de novo variants reported across publications.

Variants sharing an event id are grouped into events; an event is complex
when its variants span several chromosomes, a wide locus, or carry a
structural effect. Database-wide statistics are cached for one hour; per
paper breakdowns are available through the papers command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("invalid flags", err)
	})

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewPapersCommand(opts))

	return cmd
}

// setup validates global flags, loads configuration and installs logging.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.TraceIDs == nil {
		o.TraceIDs = UUIDv7Generator{}
	}
	if o.TraceID == "" {
		o.TraceID = o.TraceIDs.Generate()
	}

	if !isValidFormat(o.Format) {
		return usageError(fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats), nil)
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return usageError("failed to load configuration", err)
	}
	o.Config = cfg

	level := cfg.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})
	o.Logger = slog.New(handler).With("trace_id", o.TraceID)
	slog.SetDefault(o.Logger)

	return nil
}

// formatter returns the output formatter for a command run.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		TraceID:   o.TraceID,
	}
}

// databasePath prefers the --db flag over the configured database.
func (o *RootOptions) databasePath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if o.Config.Database != "" {
		return o.Config.Database, nil
	}
	return "", usageError("database path required: pass --db or set database in the config", nil)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are reported through the output formatter, as a JSON envelope when
// --format json is in effect.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, &RootOptions{}, args, stdout, stderr)
}

func execute(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	// Commands always return ExitError; anything else came from cobra's
	// own command lookup.
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		err = usageError("invalid command", err)
	}

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    stdout,
		ErrWriter: stderr,
		Verbose:   opts.Verbose,
		TraceID:   opts.TraceID,
	}
	if !isValidFormat(out.Format) {
		out.Format = "text"
	}
	_ = out.Error(GetErrCode(err), err.Error(), errorDetails(err))

	return GetExitCode(err)
}
