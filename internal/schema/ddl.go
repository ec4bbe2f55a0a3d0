package schema

import "github.com/mesh-intelligence/notepad/pkg/types"

// CurrentVersion is the declared schema version compiled into this build.
const CurrentVersion = 3

// createNotesV1 is the first released table shape. Stores are never created
// at this shape in production; it anchors the migration ladder.
const createNotesV1 = `CREATE TABLE notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);`

// createNotes builds the current table in one step. Column order and
// definitions match what the ladder produces from v1.
const createNotes = `CREATE TABLE notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    modified_at INTEGER NOT NULL DEFAULT 0,
    category TEXT NOT NULL DEFAULT 'default'
);`

const (
	idxNotesModified = `CREATE INDEX IF NOT EXISTS idx_notes_modified ON notes(modified_at);`
	idxNotesCategory = `CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category);`
)

// createIndexes lists the indexes of the current shape.
var createIndexes = []string{
	idxNotesModified,
	idxNotesCategory,
}

// Migration adds exactly one column. Steps never drop or rename columns and
// only touch existing rows through Backfill.
type Migration struct {
	Version    int
	Column     string
	Definition string // column definition after the name; must carry a non-null default
	Backfill   string // optional UPDATE run after the column is added
	Index      string // optional CREATE INDEX IF NOT EXISTS
}

// ladder is the ordered list of incremental alterations.
var ladder = []Migration{
	{
		Version:    2,
		Column:     types.ColumnModifiedAt,
		Definition: "INTEGER NOT NULL DEFAULT 0",
		// Rows from v1 have no modification time; created_at keeps
		// created_at <= modified_at.
		Backfill: `UPDATE notes SET modified_at = created_at WHERE modified_at < created_at;`,
		Index:    idxNotesModified,
	},
	{
		Version:    3,
		Column:     types.ColumnCategory,
		Definition: "TEXT NOT NULL DEFAULT '" + types.DefaultCategory + "'",
		Index:      idxNotesCategory,
	},
}

// Ladder returns a copy of the migration ladder.
func Ladder() []Migration {
	out := make([]Migration, len(ladder))
	copy(out, ladder)
	return out
}
