package types

// Note is the sole entity of the store. Timestamps are epoch milliseconds.
type Note struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Category   string `json:"category"`
	CreatedAt  int64  `json:"created_at"`
	ModifiedAt int64  `json:"modified_at"`
}

// Values is a write field-map keyed by column name.
type Values map[string]any

// Clone returns a shallow copy of v. A nil map clones to an empty one.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Has reports whether the column key is present, even with a nil value.
func (v Values) Has(column string) bool {
	_, ok := v[column]
	return ok
}

// Values returns the note as a field-map without its id. Used when
// re-inserting exported notes.
func (n Note) Values() Values {
	return Values{
		ColumnTitle:      n.Title,
		ColumnBody:       n.Body,
		ColumnCategory:   n.Category,
		ColumnCreatedAt:  n.CreatedAt,
		ColumnModifiedAt: n.ModifiedAt,
	}
}

// Record is one row produced by a Cursor, keyed by projected column.
type Record map[string]any

// Int returns the integer value of column, or 0 when absent or not integral.
func (r Record) Int(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// String returns the text value of column, or "" when absent.
func (r Record) String(column string) string {
	switch v := r[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// NoteFromRecord converts a record into a Note. Columns missing from the
// projection are left at their zero value.
func NoteFromRecord(r Record) Note {
	return Note{
		ID:         r.Int(ColumnID),
		Title:      r.String(ColumnTitle),
		Body:       r.String(ColumnBody),
		Category:   r.String(ColumnCategory),
		CreatedAt:  r.Int(ColumnCreatedAt),
		ModifiedAt: r.Int(ColumnModifiedAt),
	}
}
