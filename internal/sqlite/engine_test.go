package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

func TestInsert_QueryItemReturnsInput(t *testing.T) {
	clock := newFakeClock()
	b := setupBackend(t, WithClock(clock.Now))

	id := insertNote(t, b, types.Values{
		types.ColumnTitle:    "groceries",
		types.ColumnBody:     "eggs",
		types.ColumnCategory: "errands",
	})

	records := readItem(t, b, id)
	require.Len(t, records, 1)
	n := types.NoteFromRecord(records[0])

	now := clock.Now().UnixMilli()
	assert.Equal(t, types.Note{
		ID:         id,
		Title:      "groceries",
		Body:       "eggs",
		Category:   "errands",
		CreatedAt:  now,
		ModifiedAt: now,
	}, n)
}

func TestInsert_Defaults(t *testing.T) {
	b := setupBackend(t)

	id := insertNote(t, b, types.Values{})

	n := types.NoteFromRecord(readItem(t, b, id)[0])
	assert.Equal(t, types.DefaultTitle, n.Title)
	assert.Equal(t, "", n.Body)
	assert.Equal(t, types.DefaultCategory, n.Category)
	assert.Equal(t, n.CreatedAt, n.ModifiedAt)
}

func TestInsert_NilCategoryTakesDefault(t *testing.T) {
	b := setupBackend(t)

	id := insertNote(t, b, types.Values{types.ColumnCategory: nil})

	n := types.NoteFromRecord(readItem(t, b, id)[0])
	assert.Equal(t, types.DefaultCategory, n.Category)
}

func TestInsert_ConfiguredPlaceholderTitle(t *testing.T) {
	config := testConfig(t.TempDir())
	config.PlaceholderTitle = "Sans titre"
	b := setupBackendWithConfig(t, config)

	id := insertNote(t, b, types.Values{types.ColumnBody: "x"})

	assert.Equal(t, "Sans titre", readItem(t, b, id)[0].String(types.ColumnTitle))
}

func TestInsert_KeepsSuppliedTimestamps(t *testing.T) {
	b := setupBackend(t)

	id := insertNote(t, b, types.Values{
		types.ColumnCreatedAt:  int64(1000),
		types.ColumnModifiedAt: 2000,
	})

	n := types.NoteFromRecord(readItem(t, b, id)[0])
	assert.Equal(t, int64(1000), n.CreatedAt)
	assert.Equal(t, int64(2000), n.ModifiedAt)
}

func TestInsert_Rejections(t *testing.T) {
	b := setupBackend(t)

	tests := []struct {
		name    string
		locator string
		values  types.Values
		want    error
	}{
		{"item locator", "notes/1", types.Values{}, types.ErrUnsupportedOperation},
		{"live locator", "notes/live", types.Values{}, types.ErrUnsupportedOperation},
		{"invalid locator", "notes/abc", types.Values{}, types.ErrInvalidLocator},
		{"unknown column", "notes", types.Values{"color": "blue"}, types.ErrInvalidArgument},
		{"explicit id", "notes", types.Values{types.ColumnID: 5}, types.ErrInvalidArgument},
		{"text timestamp", "notes", types.Values{types.ColumnCreatedAt: "yesterday"}, types.ErrInvalidArgument},
		{"modified before created", "notes", types.Values{
			types.ColumnCreatedAt:  int64(2000),
			types.ColumnModifiedAt: int64(1000),
		}, types.ErrInvalidArgument},
		{"created in the future", "notes", types.Values{
			types.ColumnCreatedAt: time.Now().Add(time.Hour).UnixMilli(),
		}, types.ErrInvalidArgument},
		{"modified in the future", "notes", types.Values{
			types.ColumnCreatedAt:  int64(1000),
			types.ColumnModifiedAt: time.Now().Add(time.Hour).UnixMilli(),
		}, types.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Insert(t.Context(), tt.locator, tt.values)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var opErr *types.OpError
			require.True(t, errors.As(err, &opErr))
			assert.Equal(t, types.OpInsert, opErr.Op)
			assert.Equal(t, tt.locator, opErr.Locator)
		})
	}

	assert.Empty(t, readNotes(t, b, types.CollectionLocator))
}

func TestUpdate_NullBodyIsStorageError(t *testing.T) {
	b := setupBackend(t)

	id := insertNote(t, b, types.Values{types.ColumnTitle: "a"})
	_, err := b.Update(t.Context(), types.ItemLocator(id), types.Values{types.ColumnBody: nil}, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.False(t, types.IsUserError(err))
}

func TestInsert_IDsAreNotReused(t *testing.T) {
	b := setupBackend(t)

	first := insertNote(t, b, types.Values{})
	_, err := b.Delete(t.Context(), types.ItemLocator(first), "", nil)
	require.NoError(t, err)

	second := insertNote(t, b, types.Values{})
	assert.Greater(t, second, first)
}

func TestUpdate_AdvancesModifiedAtKeepsCreatedAt(t *testing.T) {
	clock := newFakeClock()
	b := setupBackend(t, WithClock(clock.Now))

	id := insertNote(t, b, types.Values{types.ColumnTitle: "draft"})
	before := types.NoteFromRecord(readItem(t, b, id)[0])

	clock.Advance(1500 * time.Millisecond)
	n, err := b.Update(t.Context(), types.ItemLocator(id), types.Values{
		types.ColumnTitle:      "final",
		types.ColumnModifiedAt: int64(1),
	}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	after := types.NoteFromRecord(readItem(t, b, id)[0])
	assert.Equal(t, "final", after.Title)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, clock.Now().UnixMilli(), after.ModifiedAt, "caller modified_at is overridden")
	assert.Greater(t, after.ModifiedAt, before.ModifiedAt)
}

func TestInsert_FutureTimestampsKeepUpdateOrdering(t *testing.T) {
	clock := newFakeClock()
	b := setupBackend(t, WithClock(clock.Now))
	ahead := clock.Now().Add(time.Hour).UnixMilli()

	_, err := b.Insert(t.Context(), types.CollectionLocator, types.Values{
		types.ColumnCreatedAt:  ahead,
		types.ColumnModifiedAt: ahead,
	})
	require.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.Empty(t, readNotes(t, b, types.CollectionLocator))

	now := clock.Now().UnixMilli()
	id := insertNote(t, b, types.Values{
		types.ColumnCreatedAt:  now,
		types.ColumnModifiedAt: now,
	})
	before := types.NoteFromRecord(readItem(t, b, id)[0])

	_, err = b.Update(t.Context(), types.ItemLocator(id), types.Values{types.ColumnTitle: "renamed"}, "", nil)
	require.NoError(t, err)

	after := types.NoteFromRecord(readItem(t, b, id)[0])
	assert.LessOrEqual(t, after.CreatedAt, after.ModifiedAt)
	assert.GreaterOrEqual(t, after.ModifiedAt, before.ModifiedAt)
}

func TestUpdate_Rejections(t *testing.T) {
	b := setupBackend(t)
	id := insertNote(t, b, types.Values{})
	item := types.ItemLocator(id)

	tests := []struct {
		name    string
		locator string
		values  types.Values
		filter  string
		args    []any
		want    error
	}{
		{"nil values", item, nil, "", nil, types.ErrInvalidArgument},
		{"empty values", item, types.Values{}, "", nil, types.ErrInvalidArgument},
		{"id", item, types.Values{types.ColumnID: int64(9)}, "", nil, types.ErrInvalidArgument},
		{"created_at", item, types.Values{types.ColumnCreatedAt: int64(9)}, "", nil, types.ErrInvalidArgument},
		{"unknown column", item, types.Values{"x": 1}, "", nil, types.ErrInvalidArgument},
		{"args without filter", item, types.Values{types.ColumnTitle: "t"}, "", []any{1}, types.ErrInvalidArgument},
		{"live view", types.LiveLocator, types.Values{types.ColumnTitle: "t"}, "", nil, types.ErrUnsupportedOperation},
		{"invalid locator", "notes/1/2", types.Values{types.ColumnTitle: "t"}, "", nil, types.ErrInvalidLocator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Update(t.Context(), tt.locator, tt.values, tt.filter, tt.args)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdate_NilCategoryTakesDefault(t *testing.T) {
	b := setupBackend(t)
	id := insertNote(t, b, types.Values{types.ColumnCategory: "work"})

	_, err := b.Update(t.Context(), types.ItemLocator(id), types.Values{types.ColumnCategory: nil}, "", nil)
	require.NoError(t, err)

	assert.Equal(t, types.DefaultCategory, readItem(t, b, id)[0].String(types.ColumnCategory))
}

func TestUpdate_CollectionWithFilter(t *testing.T) {
	b := setupBackend(t)
	insertNote(t, b, types.Values{types.ColumnCategory: "work"})
	insertNote(t, b, types.Values{types.ColumnCategory: "work"})
	insertNote(t, b, types.Values{types.ColumnCategory: "home"})

	n, err := b.Update(t.Context(), types.CollectionLocator,
		types.Values{types.ColumnCategory: "office"}, "category = ?", []any{"work"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	cats, err := b.Categories(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "office"}, cats)
}

func TestUpdate_ItemFilterIsConjoined(t *testing.T) {
	b := setupBackend(t)
	id := insertNote(t, b, types.Values{types.ColumnCategory: "work"})
	insertNote(t, b, types.Values{types.ColumnCategory: "home"})

	n, err := b.Update(t.Context(), types.ItemLocator(id),
		types.Values{types.ColumnTitle: "x"}, "category = ?", []any{"home"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "item narrowing must not reach other notes")

	n, err = b.Update(t.Context(), types.ItemLocator(id),
		types.Values{types.ColumnTitle: "x"}, "category = ?", []any{"work"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDelete_ItemThenQueryIsEmpty(t *testing.T) {
	b := setupBackend(t)
	id := insertNote(t, b, types.Values{})
	other := insertNote(t, b, types.Values{})

	n, err := b.Delete(t.Context(), types.ItemLocator(id), "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Empty(t, readItem(t, b, id))
	assert.Len(t, readItem(t, b, other), 1)

	n, err = b.Delete(t.Context(), types.ItemLocator(id), "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDelete_Collection(t *testing.T) {
	b := setupBackend(t)
	insertNote(t, b, types.Values{types.ColumnCategory: "a"})
	insertNote(t, b, types.Values{types.ColumnCategory: "b"})
	insertNote(t, b, types.Values{types.ColumnCategory: "b"})

	n, err := b.Delete(t.Context(), types.CollectionLocator, "category = ?", []any{"b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = b.Delete(t.Context(), types.CollectionLocator, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, readNotes(t, b, types.CollectionLocator))
}

func TestDelete_LiveViewUnsupported(t *testing.T) {
	b := setupBackend(t)

	_, err := b.Delete(t.Context(), types.LiveLocator, "", nil)
	assert.ErrorIs(t, err, types.ErrUnsupportedOperation)
}

func TestQuery_LiveViewProjection(t *testing.T) {
	b := setupBackend(t)
	insertNote(t, b, types.Values{types.ColumnTitle: "a", types.ColumnBody: "secret"})
	insertNote(t, b, types.Values{types.ColumnTitle: "b", types.ColumnBody: "hidden"})

	for _, fields := range [][]string{nil, {types.ColumnBody}, types.AllColumns} {
		cur, err := b.Query(t.Context(), types.LiveLocator, fields, "", nil, "")
		require.NoError(t, err)
		assert.Equal(t, []string{types.ColumnID, types.ColumnTitle}, cur.Columns())

		records, err := types.ReadAll(cur)
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, r := range records {
			assert.Len(t, r, 2)
			assert.Contains(t, r, types.ColumnID)
			assert.Contains(t, r, types.ColumnTitle)
		}
	}
}

func TestQuery_Projection(t *testing.T) {
	b := setupBackend(t)
	insertNote(t, b, types.Values{types.ColumnTitle: "a"})

	cur, err := b.Query(t.Context(), types.CollectionLocator,
		[]string{types.ColumnTitle, types.ColumnTitle, types.ColumnCategory}, "", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{types.ColumnTitle, types.ColumnCategory}, cur.Columns())
	require.NoError(t, cur.Close())

	_, err = b.Query(t.Context(), types.CollectionLocator, []string{"title; DROP TABLE notes"}, "", nil, "")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestQuery_DefaultSortIsModifiedDescending(t *testing.T) {
	clock := newFakeClock()
	b := setupBackend(t, WithClock(clock.Now))

	first := insertNote(t, b, types.Values{types.ColumnTitle: "first"})
	clock.Advance(time.Second)
	second := insertNote(t, b, types.Values{types.ColumnTitle: "second"})
	clock.Advance(time.Second)
	_, err := b.Update(t.Context(), types.ItemLocator(first), types.Values{types.ColumnBody: "touched"}, "", nil)
	require.NoError(t, err)

	notes := readNotes(t, b, types.CollectionLocator)
	require.Len(t, notes, 2)
	assert.Equal(t, first, notes[0].ID)
	assert.Equal(t, second, notes[1].ID)

	cur, err := b.Query(t.Context(), types.CollectionLocator, nil, "", nil, "id ASC")
	require.NoError(t, err)
	notes, err = types.ReadNotes(cur)
	require.NoError(t, err)
	assert.Equal(t, first, notes[0].ID)
}

func TestQuery_ItemFilterBindsIDFirst(t *testing.T) {
	b := setupBackend(t)
	id := insertNote(t, b, types.Values{types.ColumnCategory: "work"})

	cur, err := b.Query(t.Context(), types.ItemLocator(id), nil, "category = ?", []any{"work"}, "")
	require.NoError(t, err)
	records, err := types.ReadAll(cur)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	cur, err = b.Query(t.Context(), types.ItemLocator(id), nil, "category = ?", []any{"home"}, "")
	require.NoError(t, err)
	records, err = types.ReadAll(cur)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQuery_BadFilterIsStorageError(t *testing.T) {
	b := setupBackend(t)

	_, err := b.Query(t.Context(), types.CollectionLocator, nil, "no_such_column = ?", []any{1}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestCursor_ScanAndClose(t *testing.T) {
	b := setupBackend(t)
	insertNote(t, b, types.Values{types.ColumnTitle: "scanned"})

	cur, err := b.Query(t.Context(), types.CollectionLocator, []string{types.ColumnID, types.ColumnTitle}, "", nil, "")
	require.NoError(t, err)

	require.True(t, cur.Next())
	var (
		id    int64
		title string
	)
	require.NoError(t, cur.Scan(&id, &title))
	assert.Equal(t, "scanned", title)
	assert.False(t, cur.Next())
	assert.NoError(t, cur.Err())

	require.NoError(t, cur.Close())
	assert.NoError(t, cur.Close(), "Close is idempotent")
	assert.False(t, cur.Next())
	_, err = cur.Record()
	assert.Error(t, err)
}

func TestInvalidLocatorAllOperations(t *testing.T) {
	b := setupBackend(t)
	ctx := t.Context()

	_, err := b.Query(ctx, "notes/abc", nil, "", nil, "")
	assert.ErrorIs(t, err, types.ErrInvalidLocator)
	_, err = b.Update(ctx, "notes/abc", types.Values{types.ColumnTitle: "x"}, "", nil)
	assert.ErrorIs(t, err, types.ErrInvalidLocator)
	_, err = b.Delete(ctx, "notesx", "", nil)
	assert.ErrorIs(t, err, types.ErrInvalidLocator)
}

func TestScenario_InsertUpdateDelete(t *testing.T) {
	clock := newFakeClock()
	b := setupBackend(t, WithClock(clock.Now))
	ctx := t.Context()

	id, err := b.Insert(ctx, types.CollectionLocator, types.Values{types.ColumnBody: "buy milk"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	created := types.NoteFromRecord(readItem(t, b, 1)[0])
	assert.Equal(t, types.DefaultTitle, created.Title)
	assert.Equal(t, types.DefaultCategory, created.Category)

	clock.Advance(time.Minute)
	n, err := b.Update(ctx, types.ItemLocator(1), types.Values{types.ColumnCategory: "errands"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	updated := types.NoteFromRecord(readItem(t, b, 1)[0])
	assert.Equal(t, "errands", updated.Category)
	assert.Greater(t, updated.ModifiedAt, created.ModifiedAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	n, err = b.Delete(ctx, types.ItemLocator(1), "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, note := range readNotes(t, b, types.CollectionLocator) {
		assert.NotEqual(t, int64(1), note.ID)
	}

	_, err = b.Insert(ctx, types.ItemLocator(1), types.Values{types.ColumnBody: "again"})
	assert.ErrorIs(t, err, types.ErrUnsupportedOperation)
}

func TestNotifications(t *testing.T) {
	clock := newFakeClock()
	b := setupBackend(t, WithClock(clock.Now))
	ctx := t.Context()

	changes := make(chan types.Change, 16)
	sub, err := b.Subscribe(types.CollectionLocator, func(c types.Change) { changes <- c })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	id := insertNote(t, b, types.Values{types.ColumnTitle: "a"})
	c := recvChange(t, changes)
	assert.Equal(t, types.ItemLocator(id), c.Locator)
	assert.Equal(t, types.OpInsert, c.Op)
	assert.Equal(t, clock.Now().UnixMilli(), c.At)
	assert.NotEmpty(t, c.ID)

	// Nothing changed, so nothing is published.
	_, err = b.Update(ctx, types.ItemLocator(id+100), types.Values{types.ColumnTitle: "b"}, "", nil)
	require.NoError(t, err)
	_, err = b.Delete(ctx, types.ItemLocator(id+100), "", nil)
	require.NoError(t, err)

	_, err = b.Update(ctx, types.ItemLocator(id), types.Values{types.ColumnTitle: "b"}, "", nil)
	require.NoError(t, err)
	c = recvChange(t, changes)
	assert.Equal(t, types.ItemLocator(id), c.Locator)
	assert.Equal(t, types.OpUpdate, c.Op)

	_, err = b.Delete(ctx, types.CollectionLocator, "", nil)
	require.NoError(t, err)
	c = recvChange(t, changes)
	assert.Equal(t, types.CollectionLocator, c.Locator)
	assert.Equal(t, types.OpDelete, c.Op)
}

func TestNotifications_GlobPattern(t *testing.T) {
	b := setupBackend(t)

	changes := make(chan types.Change, 16)
	_, err := b.Subscribe("notes/*", func(c types.Change) { changes <- c })
	require.NoError(t, err)

	// Collection-wide changes do not match notes/*.
	insertNote(t, b, types.Values{})
	_, err = b.Delete(t.Context(), types.CollectionLocator, "", nil)
	require.NoError(t, err)
	id := insertNote(t, b, types.Values{})

	require.NoError(t, b.Detach())
	close(changes)

	var got []string
	for c := range changes {
		got = append(got, c.Locator)
	}
	assert.Equal(t, []string{types.ItemLocator(id - 1), types.ItemLocator(id)}, got)
}

func TestNotifications_CanonicalItemLocator(t *testing.T) {
	b := setupBackend(t)
	id := insertNote(t, b, types.Values{})
	require.Equal(t, int64(1), id)

	changes := make(chan types.Change, 16)
	_, err := b.Subscribe(types.ItemLocator(id), func(c types.Change) { changes <- c })
	require.NoError(t, err)

	n, err := b.Update(t.Context(), "notes/001", types.Values{types.ColumnTitle: "padded"}, "", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = b.Delete(t.Context(), "notes/01", "", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, b.Detach())
	close(changes)

	var got []types.Change
	for c := range changes {
		got = append(got, c)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "notes/1", got[0].Locator)
	assert.Equal(t, types.OpUpdate, got[0].Op)
	assert.Equal(t, "notes/1", got[1].Locator)
	assert.Equal(t, types.OpDelete, got[1].Op)
}

func TestMetrics_CountOperations(t *testing.T) {
	b := setupBackend(t)
	ctx := t.Context()

	id := insertNote(t, b, types.Values{})
	_, err := b.Insert(ctx, types.ItemLocator(id), types.Values{})
	require.Error(t, err)
	_, err = b.Query(ctx, types.CollectionLocator, nil, "bogus(", nil, "")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.operations.WithLabelValues(types.OpInsert, "collection", outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.operations.WithLabelValues(types.OpInsert, "item", outcomeUserError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.operations.WithLabelValues(types.OpQuery, "collection", outcomeStorage)))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.notifications.WithLabelValues(types.OpInsert)))

	n, err := testutil.GatherAndCount(b.Registry(), "notepad_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "insert and query histograms")
}

func TestBackendsDoNotShareState(t *testing.T) {
	a := setupBackend(t)
	b := setupBackend(t)

	insertNote(t, a, types.Values{})

	assert.Len(t, readNotes(t, a, types.CollectionLocator), 1)
	assert.Empty(t, readNotes(t, b, types.CollectionLocator))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.metrics.operations.WithLabelValues(types.OpInsert, "collection", outcomeOK)))
}
