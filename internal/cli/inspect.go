package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thunderluca/mementofx-sqlite/internal/schema"
)

// ColumnInfo is the output shape of one stored column.
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	NotNull bool   `json:"not_null"`
	Primary bool   `json:"primary_key"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List event tables",
		Long: `List every event table in the database, one per event kind.

Examples:
  mementofx-sqlite tables --db ./events.db
  mementofx-sqlite tables --config store.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runTables(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer st.Close()

	tables, err := st.Tables(ctx)
	if err != nil {
		return outputError(f, ErrCodeQuery, WrapExitError(ExitCommandError, "failed to list tables", err))
	}

	return f.Render(tables, func(w io.Writer) error {
		if len(tables) == 0 {
			_, err := fmt.Fprintln(w, "No event tables found.")
			return err
		}
		for _, name := range tables {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
		}
		return nil
	})
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <kind>",
		Short: "Show the stored columns of an event kind",
		Long: `Show the columns of one event table with their declared type and storage kind.

Exit codes:
  0 - Table found
  1 - No such table
  2 - Command error (database not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd.Context(), rootOpts, cmd, args[0])
		},
	}
}

func runSchema(ctx context.Context, opts *RootOptions, cmd *cobra.Command, table string) error {
	f := opts.formatter(cmd)
	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer st.Close()

	cols, err := st.Columns(ctx, table)
	if err != nil {
		return outputError(f, ErrCodeQuery, WrapExitError(ExitCommandError, "failed to read columns", err))
	}
	if len(cols) == 0 {
		return outputError(f, ErrCodeTableNotFound, NewExitError(ExitFailure, fmt.Sprintf("table %q not found", table)))
	}

	infos := columnInfos(cols)
	return f.Render(infos, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTYPE\tKIND\tNULL\tPK")
		for _, c := range infos {
			null := "yes"
			if c.NotNull {
				null = "no"
			}
			pk := ""
			if c.Primary {
				pk = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Type, c.Kind, null, pk)
		}
		return tw.Flush()
	})
}

func columnInfos(cols []schema.Column) []ColumnInfo {
	out := make([]ColumnInfo, len(cols))
	for i, c := range cols {
		out[i] = ColumnInfo{
			Name:    c.Name,
			Type:    c.Type,
			Kind:    c.Kind().String(),
			NotNull: c.NotNull,
			Primary: c.PK > 0,
		}
	}
	return out
}

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Limit int
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <kind>",
		Short: "Print the stored rows of an event kind",
		Long: `Print the raw stored rows of one event table in insertion order.

Values are shown as stored: timestamps as ticks or ISO-8601 text depending on
how the store was configured, composite fields as JSON text.

Examples:
  mementofx-sqlite dump MovieCreated --db ./events.db --limit 10
  mementofx-sqlite dump MovieCreated --db ./events.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), opts, cmd, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum rows to print (0 for all)")

	return cmd
}

func runDump(ctx context.Context, opts *DumpOptions, cmd *cobra.Command, table string) error {
	f := opts.formatter(cmd)
	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer st.Close()

	cols, err := st.Columns(ctx, table)
	if err != nil {
		return outputError(f, ErrCodeQuery, WrapExitError(ExitCommandError, "failed to read columns", err))
	}
	if len(cols) == 0 {
		return outputError(f, ErrCodeTableNotFound, NewExitError(ExitFailure, fmt.Sprintf("table %q not found", table)))
	}

	rows, err := st.RawRows(ctx, table, opts.Limit)
	if err != nil {
		return outputError(f, ErrCodeQuery, WrapExitError(ExitCommandError, "failed to read rows", err))
	}

	f.VerboseLog("%d row(s) from %s", len(rows), table)

	return f.Render(rows, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		fmt.Fprintln(tw, strings.Join(names, "\t"))

		cells := make([]string, len(cols))
		for _, row := range rows {
			for i, name := range names {
				cells[i] = formatCell(row[name])
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		return tw.Flush()
	})
}

// formatCell renders a driver value for text output.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "x'" + hex.EncodeToString(x) + "'"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
