package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds backend selection and parameters for Provider.Attach.
type Config struct {
	Backend          string `json:"backend" yaml:"backend" validate:"required"`
	DataDir          string `json:"data_dir" yaml:"data_dir"`
	DBFile           string `json:"db_file,omitempty" yaml:"db_file,omitempty" validate:"omitempty,excludesall=/\\"`
	PlaceholderTitle string `json:"placeholder_title,omitempty" yaml:"placeholder_title,omitempty"`
	NotifyBuffer     int    `json:"notify_buffer,omitempty" yaml:"notify_buffer,omitempty" validate:"gte=0"`
	BusyTimeoutMS    int    `json:"busy_timeout_ms,omitempty" yaml:"busy_timeout_ms,omitempty" validate:"gte=0"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Defaults for optional Config fields.
const (
	DefaultDBFile        = "notepad.db"
	DefaultNotifyBuffer  = 64
	DefaultBusyTimeoutMS = 5000
)

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrDBFileInvalid       = errors.New("db file must be a bare file name")
	ErrNotifyBufferInvalid = errors.New("notify buffer must not be negative")
	ErrBusyTimeoutInvalid  = errors.New("busy timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldErrors maps struct fields to the sentinel returned when their tag
// check fails.
var fieldErrors = map[string]error{
	"Backend":       ErrBackendEmpty,
	"DBFile":        ErrDBFileInvalid,
	"NotifyBuffer":  ErrNotifyBufferInvalid,
	"BusyTimeoutMS": ErrBusyTimeoutInvalid,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if sentinel, ok := fieldErrors[verrs[0].Field()]; ok {
				return sentinel
			}
		}
		return fmt.Errorf("validate config: %w", err)
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// WithDefaults returns a copy of c with empty optional fields filled in.
func (c Config) WithDefaults() Config {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.DBFile == "" {
		c.DBFile = DefaultDBFile
	}
	if c.PlaceholderTitle == "" {
		c.PlaceholderTitle = DefaultTitle
	}
	if c.NotifyBuffer == 0 {
		c.NotifyBuffer = DefaultNotifyBuffer
	}
	if c.BusyTimeoutMS == 0 {
		c.BusyTimeoutMS = DefaultBusyTimeoutMS
	}
	return c
}
