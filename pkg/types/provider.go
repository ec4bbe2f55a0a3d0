package types

import "context"

// Provider is the data-access layer of the notes store. Callers attach it to
// a data directory, address notes through locators, and detach when done.
type Provider interface {
	// Attach opens the store described by config and brings its schema up to
	// the declared version. Returns ErrAlreadyAttached if already attached.
	// A migration failure leaves the provider detached.
	Attach(config Config) error

	// Detach releases the store. Idempotent. After Detach every operation
	// returns ErrDetached.
	Detach() error

	// Resolve classifies a locator.
	Resolve(locator string) (Resource, error)

	// TypeTag returns the content type tag for a locator.
	TypeTag(locator string) (string, error)

	// Query returns a lazy cursor over the notes addressed by locator. The
	// caller must Close the cursor on every path.
	Query(ctx context.Context, locator string, fields []string, filter string, args []any, sort string) (Cursor, error)

	// Insert creates a note in the collection and returns its id.
	Insert(ctx context.Context, locator string, values Values) (int64, error)

	// Update applies values to the addressed notes and returns the number of
	// rows changed. modified_at is always set to the time of the call.
	Update(ctx context.Context, locator string, values Values, filter string, args []any) (int64, error)

	// Delete removes the addressed notes and returns the number of rows
	// removed.
	Delete(ctx context.Context, locator string, filter string, args []any) (int64, error)

	// Subscribe registers handler for changes to locators matching pattern.
	Subscribe(pattern string, handler func(Change)) (Unsubscriber, error)
}

// Cursor is a forward-only, non-restartable sequence of records.
type Cursor interface {
	// Next advances to the next record. It returns false at the end of the
	// sequence or on error; check Err afterwards.
	Next() bool

	// Record returns the current row keyed by column.
	Record() (Record, error)

	// Scan copies the current row into dest, one pointer per column.
	Scan(dest ...any) error

	// Columns returns the projected column names.
	Columns() []string

	// Err returns the error, if any, that ended iteration.
	Err() error

	// Close releases the underlying resources. Safe to call more than once.
	Close() error
}

// ReadAll drains c into records and closes it.
func ReadAll(c Cursor) ([]Record, error) {
	defer c.Close()

	var out []Record
	for c.Next() {
		r, err := c.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadNotes drains c into notes and closes it.
func ReadNotes(c Cursor) ([]Note, error) {
	records, err := ReadAll(c)
	if err != nil {
		return nil, err
	}
	notes := make([]Note, 0, len(records))
	for _, r := range records {
		notes = append(notes, NoteFromRecord(r))
	}
	return notes, nil
}

// Change describes a mutation delivered to subscribers.
type Change struct {
	ID      string
	Locator string
	Op      string
	At      int64
}

// Unsubscriber cancels a subscription.
type Unsubscriber interface {
	Unsubscribe()
}
