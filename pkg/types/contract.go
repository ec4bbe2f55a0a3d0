package types

import "strconv"

// Table and column names of the notes store.
const (
	TableNotes = "notes"

	ColumnID         = "id"
	ColumnTitle      = "title"
	ColumnBody       = "body"
	ColumnCategory   = "category"
	ColumnCreatedAt  = "created_at"
	ColumnModifiedAt = "modified_at"
)

// AllColumns lists every column in table order. Queries with an empty
// projection return these columns.
var AllColumns = []string{
	ColumnID,
	ColumnTitle,
	ColumnBody,
	ColumnCategory,
	ColumnCreatedAt,
	ColumnModifiedAt,
}

// LiveColumns is the fixed projection of the live view.
var LiveColumns = []string{ColumnID, ColumnTitle}

// knownColumns is the set form of AllColumns.
var knownColumns = map[string]bool{
	ColumnID:         true,
	ColumnTitle:      true,
	ColumnBody:       true,
	ColumnCategory:   true,
	ColumnCreatedAt:  true,
	ColumnModifiedAt: true,
}

// IsColumn reports whether name is a column of the notes table.
func IsColumn(name string) bool {
	return knownColumns[name]
}

// Type tags reported for each resource kind.
const (
	ContentTypeDir  = "vnd.notepad.dir/vnd.example.note"
	ContentTypeItem = "vnd.notepad.item/vnd.example.note"
)

// Defaults applied by the engine.
const (
	DefaultSortOrder = ColumnModifiedAt + " DESC"
	DefaultCategory  = "default"
	DefaultTitle     = "Untitled note"
)

// Locator segments. The grammar is "notes", "notes/<decimal-id>" or
// "notes/live".
const (
	CollectionSegment = "notes"
	LiveSegment       = "live"
	LocatorSeparator  = "/"
)

// CollectionLocator addresses every note.
const CollectionLocator = CollectionSegment

// LiveLocator addresses the id+title projection of every note.
const LiveLocator = CollectionSegment + LocatorSeparator + LiveSegment

// ItemLocator returns the locator of the note with the given id.
func ItemLocator(id int64) string {
	return CollectionSegment + LocatorSeparator + strconv.FormatInt(id, 10)
}
