package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/thunderluca/mementofx-sqlite/internal/config"
	"github.com/thunderluca/mementofx-sqlite/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string
	Database string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mementofx-sqlite CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mementofx-sqlite",
		Short: "Inspect a SQLite domain event store",
		Long:  "Inspect the tables, columns and stored rows of an embedded SQLite event store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))

	return cmd
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes to stderr so JSON on stdout stays parseable.
func (o *RootOptions) logger(w io.Writer, cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// openStore resolves configuration and opens an existing database.
// Failures are reported through f.
func (o *RootOptions) openStore(cmd *cobra.Command, f *OutputFormatter) (*store.Store, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, outputError(f, ErrCodeConfig, WrapExitError(ExitCommandError, "failed to load config", err))
	}
	if o.Database != "" {
		cfg.DB = o.Database
	}

	if _, err := os.Stat(cfg.DB); err != nil {
		return nil, outputError(f, ErrCodeDatabaseNotFound, WrapExitError(ExitCommandError, "database not found", err))
	}

	logger, err := o.logger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, outputError(f, ErrCodeConfig, WrapExitError(ExitCommandError, "invalid log level", err))
	}
	logger.Debug("opening store", "db", cfg.DB, "datetime_as_ticks", cfg.DateTimeAsTicks)

	st, err := store.Open(cfg.DB, cfg.StoreOptions(logger)...)
	if err != nil {
		return nil, outputError(f, ErrCodeOpen, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	return st, nil
}
