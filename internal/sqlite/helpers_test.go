package sqlite

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

// fakeClock is a settable clock for deterministic timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(dir string) types.Config {
	return types.Config{
		Backend: types.BackendSQLite,
		DataDir: dir,
	}
}

// setupBackend returns an attached backend on a fresh temp dir.
func setupBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	return setupBackendWithConfig(t, testConfig(t.TempDir()), opts...)
}

func setupBackendWithConfig(t *testing.T, config types.Config, opts ...Option) *Backend {
	t.Helper()
	b := NewBackend(append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { b.Detach() })
	return b
}

// readItem returns every record addressed by the item locator for id.
func readItem(t *testing.T, b *Backend, id int64) []types.Record {
	t.Helper()
	cur, err := b.Query(t.Context(), types.ItemLocator(id), nil, "", nil, "")
	require.NoError(t, err)
	records, err := types.ReadAll(cur)
	require.NoError(t, err)
	return records
}

func readNotes(t *testing.T, b *Backend, locator string) []types.Note {
	t.Helper()
	cur, err := b.Query(t.Context(), locator, nil, "", nil, "")
	require.NoError(t, err)
	notes, err := types.ReadNotes(cur)
	require.NoError(t, err)
	return notes
}

func insertNote(t *testing.T, b *Backend, values types.Values) int64 {
	t.Helper()
	id, err := b.Insert(t.Context(), types.CollectionLocator, values)
	require.NoError(t, err)
	return id
}

// recvChange waits for the next change on ch.
func recvChange(t *testing.T, ch <-chan types.Change) types.Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return types.Change{}
	}
}
