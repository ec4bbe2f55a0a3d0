package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
	"github.com/mesh-intelligence/notepad/pkg/types"
)

// withBackend attaches a backend for the duration of fn.
func (a *app) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *sqlite.Backend) error) error {
	cfg, err := a.providerConfig()
	if err != nil {
		return err
	}
	backend := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	if err := backend.Attach(cfg); err != nil {
		return fmt.Errorf("attach backend: %w", err)
	}
	defer backend.Detach()

	return fn(cmd.Context(), backend)
}

// filterFlags are shared by commands that accept a caller filter.
type filterFlags struct {
	where string
	args  []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.where, "where", "", "SQL predicate with ? placeholders")
	cmd.Flags().StringArrayVar(&f.args, "arg", nil, "value bound to the next ? in --where (repeatable)")
}

func (f *filterFlags) bound() []any {
	if len(f.args) == 0 {
		return nil
	}
	out := make([]any, len(f.args))
	for i, v := range f.args {
		out[i] = v
	}
	return out
}

// parseAssignments turns column=value pairs into a field map. Timestamp
// columns must be integers.
func parseAssignments(pairs []string) (types.Values, error) {
	values := make(types.Values, len(pairs))
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		if !ok || col == "" {
			return nil, userError("bad assignment %q: want column=value", p)
		}
		switch col {
		case types.ColumnCreatedAt, types.ColumnModifiedAt, types.ColumnID:
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, userError("bad assignment %q: %s must be an integer", p, col)
			}
			values[col] = n
		default:
			values[col] = val
		}
	}
	return values, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// writeRecords prints records as JSON or as tab-separated rows with a
// header line.
func writeRecords(w io.Writer, jsonMode bool, cols []string, records []types.Record) error {
	if jsonMode {
		if records == nil {
			records = []types.Record{}
		}
		return writeJSON(w, records)
	}
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, r := range records {
		fields := make([]string, len(cols))
		for i, c := range cols {
			fields[i] = fmt.Sprint(r[c])
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
	return nil
}

// drain reads every record from cur, keeping its columns.
func drain(cur types.Cursor) ([]string, []types.Record, error) {
	cols := cur.Columns()
	records, err := types.ReadAll(cur)
	return cols, records, err
}
