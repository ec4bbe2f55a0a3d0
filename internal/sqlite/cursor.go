package sqlite

import (
	"database/sql"
	"errors"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

var errCursorClosed = errors.New("cursor is closed")

// cursor wraps *sql.Rows as a types.Cursor. It holds a read connection
// until closed.
type cursor struct {
	rows   *sql.Rows
	cols   []string
	closed bool
}

var _ types.Cursor = (*cursor)(nil)

func newCursor(rows *sql.Rows, cols []string) *cursor {
	return &cursor{rows: rows, cols: cols}
}

func (c *cursor) Next() bool {
	if c.closed {
		return false
	}
	return c.rows.Next()
}

func (c *cursor) Record() (types.Record, error) {
	if c.closed {
		return nil, errCursorClosed
	}
	vals := make([]any, len(c.cols))
	ptrs := make([]any, len(c.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, types.StorageFailure(err)
	}
	rec := make(types.Record, len(c.cols))
	for i, col := range c.cols {
		rec[col] = vals[i]
	}
	return rec, nil
}

func (c *cursor) Scan(dest ...any) error {
	if c.closed {
		return errCursorClosed
	}
	if err := c.rows.Scan(dest...); err != nil {
		return types.StorageFailure(err)
	}
	return nil
}

func (c *cursor) Columns() []string {
	return append([]string(nil), c.cols...)
}

func (c *cursor) Err() error {
	if err := c.rows.Err(); err != nil {
		return types.StorageFailure(err)
	}
	return nil
}

// Close releases the read connection. Safe to call more than once.
func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
