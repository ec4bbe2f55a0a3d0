// Package schema keeps the physical notes table in step with the declared
// schema version. The stored version lives in the SQLite header
// (PRAGMA user_version), outside the notes table.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Column describes one column as reported by PRAGMA table_info.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	Default string
	PK      bool
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Manager creates and migrates the notes table on a write handle.
type Manager struct {
	db     *sql.DB
	target int
	steps  []Migration
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTargetVersion overrides the declared version. Tests use it to stop the
// ladder at an intermediate version.
func WithTargetVersion(v int) Option {
	return func(m *Manager) {
		m.target = v
	}
}

// WithLogger sets the logger used to report applied steps.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager returns a Manager for db targeting CurrentVersion.
func NewManager(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{
		db:     db,
		target: CurrentVersion,
		steps:  Ladder(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	sort.Slice(m.steps, func(i, j int) bool { return m.steps[i].Version < m.steps[j].Version })
	return m
}

// Target returns the version EnsureSchema brings the store to.
func (m *Manager) Target() int {
	return m.target
}

// EnsureSchema guarantees the notes table matches the target version.
//
// A missing table is created with every column in one transaction. An older
// store is migrated one step per transaction; a failing step aborts and
// leaves the store at the last applied version. A newer store is handled by
// replaying the forward steps above the target, skipping columns that already
// exist, and then recording the target version. That replay is not a real
// downgrade: columns added by later versions stay in place.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	exists, err := tableExists(ctx, m.db)
	if err != nil {
		return &types.MigrationError{To: m.target, Err: err}
	}
	if !exists {
		return m.create(ctx)
	}

	stored, err := m.StoredVersion(ctx)
	if err != nil {
		return &types.MigrationError{To: m.target, Err: err}
	}
	// A table without a recorded version predates version tracking.
	if stored == 0 {
		stored = 1
	}

	switch {
	case stored == m.target:
		return nil
	case stored < m.target:
		return m.migrate(ctx, stored)
	default:
		return m.replay(ctx, stored)
	}
}

// StoredVersion returns the version recorded in the store header.
func (m *Manager) StoredVersion(ctx context.Context) (int, error) {
	var v int
	if err := m.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// Columns returns the physical columns of the notes table in order.
func (m *Manager) Columns(ctx context.Context) ([]Column, error) {
	return tableColumns(ctx, m.db)
}

func (m *Manager) create(ctx context.Context) error {
	base, ddl, indexes := 1, createNotesV1, []string(nil)
	if m.target >= CurrentVersion {
		base, ddl, indexes = CurrentVersion, createNotes, createIndexes
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.MigrationError{To: m.target, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return &types.MigrationError{To: base, Err: fmt.Errorf("create notes: %w", err)}
	}
	for _, idx := range indexes {
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return &types.MigrationError{To: base, Err: fmt.Errorf("create index: %w", err)}
		}
	}
	for _, step := range m.steps {
		if step.Version <= base || step.Version > m.target {
			continue
		}
		if err := applyStep(ctx, tx, step); err != nil {
			return &types.MigrationError{From: base, To: step.Version, Err: err}
		}
	}
	if err := setVersion(ctx, tx, m.target); err != nil {
		return &types.MigrationError{To: m.target, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &types.MigrationError{To: m.target, Err: err}
	}

	m.logger.Info("schema created", "version", m.target)
	return nil
}

func (m *Manager) migrate(ctx context.Context, stored int) error {
	current := stored
	for _, step := range m.steps {
		if step.Version <= stored || step.Version > m.target {
			continue
		}
		if err := m.applyInTx(ctx, step, step.Version); err != nil {
			return &types.MigrationError{From: current, To: step.Version, Err: err}
		}
		m.logger.Info("schema migrated", "from", current, "to", step.Version, "column", step.Column)
		current = step.Version
	}
	if current != m.target {
		// No step reaches the target; record it so the next open is a no-op.
		if err := m.recordVersion(ctx, m.target); err != nil {
			return &types.MigrationError{From: current, To: m.target, Err: err}
		}
	}
	return nil
}

func (m *Manager) replay(ctx context.Context, stored int) error {
	m.logger.Warn("stored schema is newer than this build; replaying forward steps",
		"stored", stored, "declared", m.target)
	for _, step := range m.steps {
		if step.Version <= m.target || step.Version > stored {
			continue
		}
		if err := m.applyInTx(ctx, step, stored); err != nil {
			return &types.MigrationError{From: stored, To: m.target, Err: err}
		}
	}
	if err := m.recordVersion(ctx, m.target); err != nil {
		return &types.MigrationError{From: stored, To: m.target, Err: err}
	}
	return nil
}

// applyInTx runs one step and records version in the same transaction.
func (m *Manager) applyInTx(ctx context.Context, step Migration, version int) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyStep(ctx, tx, step); err != nil {
		return err
	}
	if err := setVersion(ctx, tx, version); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) recordVersion(ctx context.Context, version int) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := setVersion(ctx, tx, version); err != nil {
		return err
	}
	return tx.Commit()
}

// applyStep adds the step's column unless it already exists, then runs the
// backfill and index statements.
func applyStep(ctx context.Context, q querier, step Migration) error {
	cols, err := tableColumns(ctx, q)
	if err != nil {
		return err
	}
	present := false
	for _, c := range cols {
		if c.Name == step.Column {
			present = true
			break
		}
	}
	if !present {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", types.TableNotes, step.Column, step.Definition)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", step.Column, err)
		}
	}
	if step.Backfill != "" {
		if _, err := q.ExecContext(ctx, step.Backfill); err != nil {
			return fmt.Errorf("backfill %s: %w", step.Column, err)
		}
	}
	if step.Index != "" {
		if _, err := q.ExecContext(ctx, step.Index); err != nil {
			return fmt.Errorf("index %s: %w", step.Column, err)
		}
	}
	return nil
}

// setVersion writes user_version. PRAGMA takes no bound parameters; version
// is an int so formatting it is safe.
func setVersion(ctx context.Context, q querier, version int) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

func tableExists(ctx context.Context, q querier) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", types.TableNotes).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check notes table: %w", err)
	}
	return n > 0, nil
}

func tableColumns(ctx context.Context, q querier) ([]Column, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+types.TableNotes+")")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			c       Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		c.NotNull = notNull != 0
		c.Default = dflt.String
		c.PK = pk != 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}
