package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/notepad/internal/notify"
	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Query returns a cursor over the notes addressed by locator. An item
// locator narrows the filter to that id; the live view always projects id
// and title. An empty sort orders by modified_at descending.
func (b *Backend) Query(ctx context.Context, locator string, fields []string, filter string, args []any, sortOrder string) (types.Cursor, error) {
	start := time.Now()
	res, err := b.resolveFor(locator, types.OpQuery)
	if err != nil {
		return nil, b.fail(types.OpQuery, locator, res.Kind, start, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, b.fail(types.OpQuery, locator, res.Kind, start, types.ErrDetached)
	}

	cols, err := projection(res.Kind, fields)
	if err != nil {
		return nil, b.fail(types.OpQuery, locator, res.Kind, start, err)
	}
	where, whereArgs, err := narrow(res, filter, args)
	if err != nil {
		return nil, b.fail(types.OpQuery, locator, res.Kind, start, err)
	}
	if sortOrder == "" {
		sortOrder = types.DefaultSortOrder
	}

	q := "SELECT " + strings.Join(cols, ", ") + " FROM " + types.TableNotes + where + " ORDER BY " + sortOrder
	rows, err := b.reader.QueryContext(ctx, q, whereArgs...)
	if err != nil {
		return nil, b.fail(types.OpQuery, locator, res.Kind, start, types.StorageFailure(err))
	}

	b.metrics.observe(types.OpQuery, res.Kind, start, nil)
	return newCursor(rows, cols), nil
}

// Insert creates a note in the collection and returns its id. Absent
// timestamps are both set to a single observed instant; absent title, body
// and category take their defaults.
func (b *Backend) Insert(ctx context.Context, locator string, values types.Values) (int64, error) {
	start := time.Now()
	res, err := b.resolveFor(locator, types.OpInsert)
	if err != nil {
		return 0, b.fail(types.OpInsert, locator, res.Kind, start, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, b.fail(types.OpInsert, locator, res.Kind, start, types.ErrDetached)
	}

	row, err := b.insertValues(values)
	if err != nil {
		return 0, b.fail(types.OpInsert, locator, res.Kind, start, err)
	}

	cols := sortedKeys(row)
	params := make([]any, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		params[i] = row[c]
		marks[i] = "?"
	}
	q := "INSERT INTO " + types.TableNotes + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

	result, err := b.writer.ExecContext(ctx, q, params...)
	if err != nil {
		return 0, b.fail(types.OpInsert, locator, res.Kind, start, types.StorageFailure(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, b.fail(types.OpInsert, locator, res.Kind, start, types.StorageFailure(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, b.fail(types.OpInsert, locator, res.Kind, start, types.StorageFailure(err))
	}
	if n <= 0 || id <= 0 {
		return 0, b.fail(types.OpInsert, locator, res.Kind, start,
			types.StorageFailure(fmt.Errorf("insert reported %d rows, id %d", n, id)))
	}

	b.metrics.observe(types.OpInsert, res.Kind, start, nil)
	b.logger.Debug("note inserted", "id", id)
	b.publish(types.ItemLocator(id), types.OpInsert)
	return id, nil
}

// Update applies values to the addressed notes and returns the number of
// rows changed. modified_at is always set to the time of the call; id and
// created_at cannot be changed.
func (b *Backend) Update(ctx context.Context, locator string, values types.Values, filter string, args []any) (int64, error) {
	start := time.Now()
	res, err := b.resolveFor(locator, types.OpUpdate)
	if err != nil {
		return 0, b.fail(types.OpUpdate, locator, res.Kind, start, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, b.fail(types.OpUpdate, locator, res.Kind, start, types.ErrDetached)
	}

	row, err := b.updateValues(values)
	if err != nil {
		return 0, b.fail(types.OpUpdate, locator, res.Kind, start, err)
	}
	where, whereArgs, err := narrow(res, filter, args)
	if err != nil {
		return 0, b.fail(types.OpUpdate, locator, res.Kind, start, err)
	}

	cols := sortedKeys(row)
	sets := make([]string, len(cols))
	params := make([]any, 0, len(cols)+len(whereArgs))
	for i, c := range cols {
		sets[i] = c + " = ?"
		params = append(params, row[c])
	}
	params = append(params, whereArgs...)
	q := "UPDATE " + types.TableNotes + " SET " + strings.Join(sets, ", ") + where

	n, err := b.exec(ctx, q, params)
	if err != nil {
		return 0, b.fail(types.OpUpdate, locator, res.Kind, start, err)
	}

	b.metrics.observe(types.OpUpdate, res.Kind, start, nil)
	if n > 0 {
		b.logger.Debug("notes updated", "locator", res.Locator, "count", n)
		b.publish(res.Locator, types.OpUpdate)
	}
	return n, nil
}

// Delete removes the addressed notes and returns the number removed. An
// empty filter on the collection removes every note.
func (b *Backend) Delete(ctx context.Context, locator string, filter string, args []any) (int64, error) {
	start := time.Now()
	res, err := b.resolveFor(locator, types.OpDelete)
	if err != nil {
		return 0, b.fail(types.OpDelete, locator, res.Kind, start, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, b.fail(types.OpDelete, locator, res.Kind, start, types.ErrDetached)
	}

	where, whereArgs, err := narrow(res, filter, args)
	if err != nil {
		return 0, b.fail(types.OpDelete, locator, res.Kind, start, err)
	}

	n, err := b.exec(ctx, "DELETE FROM "+types.TableNotes+where, whereArgs)
	if err != nil {
		return 0, b.fail(types.OpDelete, locator, res.Kind, start, err)
	}

	b.metrics.observe(types.OpDelete, res.Kind, start, nil)
	if n > 0 {
		b.logger.Debug("notes deleted", "locator", res.Locator, "count", n)
		b.publish(res.Locator, types.OpDelete)
	}
	return n, nil
}

func (b *Backend) exec(ctx context.Context, q string, params []any) (int64, error) {
	result, err := b.writer.ExecContext(ctx, q, params...)
	if err != nil {
		return 0, types.StorageFailure(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, types.StorageFailure(err)
	}
	return n, nil
}

// resolveFor classifies locator and checks that op is legal for its kind.
func (b *Backend) resolveFor(locator, op string) (types.Resource, error) {
	res, err := b.router.Classify(locator)
	if err != nil {
		return res, err
	}
	if err := b.router.Allows(res.Kind, op); err != nil {
		return res, err
	}
	return res, nil
}

// fail records the failed operation and wraps err with its context.
func (b *Backend) fail(op, locator string, kind types.Kind, start time.Time, err error) error {
	b.metrics.observe(op, kind, start, err)
	if errors.Is(err, types.ErrDetached) {
		return err
	}
	return &types.OpError{Op: op, Locator: locator, Err: err}
}

func (b *Backend) publish(locator, op string) {
	b.metrics.notifications.WithLabelValues(op).Inc()
	b.notifier.Publish(notify.Event{Locator: locator, Op: op, At: b.now()})
}

// insertValues validates values and fills the insert defaults. Supplied
// timestamps must satisfy created_at <= modified_at <= now.
func (b *Backend) insertValues(values types.Values) (types.Values, error) {
	row, err := checkColumns(values)
	if err != nil {
		return nil, err
	}
	if row.Has(types.ColumnID) {
		return nil, fmt.Errorf("%w: id is assigned by the store", types.ErrInvalidArgument)
	}

	now := b.now().UnixMilli()
	setDefault(row, types.ColumnCreatedAt, now)
	setDefault(row, types.ColumnModifiedAt, now)
	setDefault(row, types.ColumnTitle, b.config.PlaceholderTitle)
	setDefault(row, types.ColumnBody, "")
	setDefault(row, types.ColumnCategory, types.DefaultCategory)

	created, ok := toInt64(row[types.ColumnCreatedAt])
	if !ok {
		return nil, fmt.Errorf("%w: created_at must be an integer", types.ErrInvalidArgument)
	}
	modified, ok := toInt64(row[types.ColumnModifiedAt])
	if !ok {
		return nil, fmt.Errorf("%w: modified_at must be an integer", types.ErrInvalidArgument)
	}
	if modified < created {
		return nil, fmt.Errorf("%w: modified_at %d precedes created_at %d", types.ErrInvalidArgument, modified, created)
	}
	// A later update stamps modified_at with now, so a stored timestamp
	// ahead of the clock would let modified_at fall below created_at.
	if modified > now {
		return nil, fmt.Errorf("%w: modified_at %d is after the current time %d", types.ErrInvalidArgument, modified, now)
	}
	row[types.ColumnCreatedAt] = created
	row[types.ColumnModifiedAt] = modified
	return row, nil
}

// updateValues validates values and forces modified_at to now.
func (b *Backend) updateValues(values types.Values) (types.Values, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty field map", types.ErrInvalidArgument)
	}
	row, err := checkColumns(values)
	if err != nil {
		return nil, err
	}
	for _, c := range []string{types.ColumnID, types.ColumnCreatedAt} {
		if row.Has(c) {
			return nil, fmt.Errorf("%w: %s is immutable", types.ErrInvalidArgument, c)
		}
	}
	if row.Has(types.ColumnCategory) && row[types.ColumnCategory] == nil {
		row[types.ColumnCategory] = types.DefaultCategory
	}
	row[types.ColumnModifiedAt] = b.now().UnixMilli()
	return row, nil
}

// checkColumns copies values, rejecting unknown column names. Column names
// are interpolated into SQL, so only known names may pass.
func checkColumns(values types.Values) (types.Values, error) {
	for k := range values {
		if !types.IsColumn(k) {
			return nil, fmt.Errorf("%w: unknown column %q", types.ErrInvalidArgument, k)
		}
	}
	return values.Clone(), nil
}

// setDefault sets column when it is absent or nil.
func setDefault(row types.Values, column string, value any) {
	if v, ok := row[column]; !ok || v == nil {
		row[column] = value
	}
}

// projection resolves the column list for a query.
func projection(kind types.Kind, fields []string) ([]string, error) {
	if kind == types.KindLiveView {
		return append([]string(nil), types.LiveColumns...), nil
	}
	if len(fields) == 0 {
		return append([]string(nil), types.AllColumns...), nil
	}
	seen := make(map[string]bool, len(fields))
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if !types.IsColumn(f) {
			return nil, fmt.Errorf("%w: unknown column %q", types.ErrInvalidArgument, f)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		cols = append(cols, f)
	}
	return cols, nil
}

// narrow builds the WHERE clause for res. An item locator contributes
// "id = ?" with the id bound first, conjoined with the caller filter.
func narrow(res types.Resource, filter string, args []any) (string, []any, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" && len(args) > 0 {
		return "", nil, fmt.Errorf("%w: filter arguments without a filter", types.ErrInvalidArgument)
	}

	if res.Kind == types.KindItem {
		params := make([]any, 0, len(args)+1)
		params = append(params, res.ID)
		if filter == "" {
			return " WHERE " + types.ColumnID + " = ?", params, nil
		}
		params = append(params, args...)
		return " WHERE " + types.ColumnID + " = ? AND (" + filter + ")", params, nil
	}

	if filter == "" {
		return "", nil, nil
	}
	return " WHERE " + filter, args, nil
}

func sortedKeys(v types.Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	default:
		return 0, false
	}
}
