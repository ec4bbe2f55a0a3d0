// Package sqlite provides the public API for the SQLite notes provider.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"log/slog"
	"time"

	"github.com/mesh-intelligence/notepad/internal/sqlite"
	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Option configures a backend created by NewBackend.
type Option = sqlite.Option

// WithLogger sets the logger used by the backend.
func WithLogger(logger *slog.Logger) Option {
	return sqlite.WithLogger(logger)
}

// WithClock replaces time.Now as the source of note timestamps.
func WithClock(now func() time.Time) Option {
	return sqlite.WithClock(now)
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".notepad",
//	})
//	defer backend.Detach()
func NewBackend(opts ...Option) types.Provider {
	return sqlite.NewBackend(opts...)
}
