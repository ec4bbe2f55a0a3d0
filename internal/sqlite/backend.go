// Package sqlite implements the notes provider on SQLite: the backend
// lifecycle, the CRUD engine, cursors, metrics and JSONL export/import.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/notepad/internal/notify"
	"github.com/mesh-intelligence/notepad/internal/router"
	"github.com/mesh-intelligence/notepad/internal/schema"
	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Backend implements types.Provider on a SQLite file. Writes go through a
// single-connection handle so the store sees one writer at a time; reads use
// a separate query-only pool.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	writer   *sql.DB
	reader   *sql.DB
	notifier *notify.Notifier

	router     *router.Router
	registry   *prometheus.Registry
	metrics    *metrics
	logger     *slog.Logger
	now        func() time.Time
	schemaOpts []schema.Option
}

var _ types.Provider = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger for the backend and the components it owns.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock replaces time.Now as the source of note timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithSchemaOptions passes options to the schema manager run on Attach.
func WithSchemaOptions(opts ...schema.Option) Option {
	return func(b *Backend) {
		b.schemaOpts = append(b.schemaOpts, opts...)
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		router:   router.New(),
		registry: prometheus.NewRegistry(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.metrics = newMetrics(b.registry)
	return b
}

// Attach opens the store in config.DataDir, creating the directory if
// needed, and brings the schema to the declared version.
// Returns ErrAlreadyAttached if already attached. A migration failure is
// returned as is and leaves the backend detached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	config = config.WithDefaults()

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	dbPath := filepath.Join(config.DataDir, config.DBFile)

	ctx := context.Background()

	writer, err := sql.Open("sqlite", writerDSN(dbPath, config.BusyTimeoutMS))
	if err != nil {
		return types.StorageFailure(err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(ctx); err != nil {
		writer.Close()
		return types.StorageFailure(err)
	}

	opts := append([]schema.Option{schema.WithLogger(b.logger)}, b.schemaOpts...)
	if err := schema.NewManager(writer, opts...).EnsureSchema(ctx); err != nil {
		writer.Close()
		return err
	}

	reader, err := sql.Open("sqlite", readerDSN(dbPath, config.BusyTimeoutMS))
	if err != nil {
		writer.Close()
		return types.StorageFailure(err)
	}
	if err := reader.PingContext(ctx); err != nil {
		reader.Close()
		writer.Close()
		return types.StorageFailure(err)
	}

	b.writer = writer
	b.reader = reader
	b.config = config
	b.notifier = notify.New(
		notify.WithBuffer(config.NotifyBuffer),
		notify.WithLogger(b.logger),
		notify.WithDropHook(b.metrics.dropped.Inc),
	)
	b.attached = true

	b.logger.Debug("store attached", "path", dbPath)
	return nil
}

// Detach releases all resources held by the backend. Queued change events
// are delivered before Detach returns; handlers that call back into the
// backend see ErrDetached. After Detach, all operations return ErrDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return nil
	}
	notifier, reader, writer := b.notifier, b.reader, b.writer
	b.notifier, b.reader, b.writer = nil, nil, nil
	b.attached = false
	b.mu.Unlock()

	notifier.Close()

	var firstErr error
	if err := reader.Close(); err != nil {
		firstErr = err
	}
	if err := writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	b.logger.Debug("store detached")
	return firstErr
}

// Resolve classifies a locator. It does not require an attached store.
func (b *Backend) Resolve(locator string) (types.Resource, error) {
	return b.router.Classify(locator)
}

// TypeTag returns the content type tag for a locator.
func (b *Backend) TypeTag(locator string) (string, error) {
	return b.router.TypeTag(locator)
}

// Subscribe registers handler for changes to locators matching pattern.
// Subscriptions end when the backend detaches.
func (b *Backend) Subscribe(pattern string, handler func(types.Change)) (types.Unsubscriber, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler", types.ErrInvalidArgument)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	sub, err := b.notifier.Subscribe(pattern, func(ev notify.Event) {
		handler(ev.Change())
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Registry returns the metrics registry of this backend.
func (b *Backend) Registry() *prometheus.Registry {
	return b.registry
}

// SchemaVersion returns the stored and declared schema versions.
func (b *Backend) SchemaVersion(ctx context.Context) (stored, declared int, err error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return 0, 0, types.ErrDetached
	}
	m := schema.NewManager(b.writer, b.schemaOpts...)
	stored, err = m.StoredVersion(ctx)
	if err != nil {
		return 0, 0, types.StorageFailure(err)
	}
	return stored, m.Target(), nil
}

// writerDSN enables WAL so readers do not block the writer, and takes the
// write lock at BEGIN.
func writerDSN(path string, busyTimeoutMS int) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
		path, busyTimeoutMS)
}

func readerDSN(path string, busyTimeoutMS int) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=query_only(1)", path, busyTimeoutMS)
}
