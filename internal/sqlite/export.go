package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Export writes every note to path as JSON lines ordered by id and returns
// the number written. Notes are streamed from the cursor to the file.
func (b *Backend) Export(ctx context.Context, path string) (int, error) {
	cur, err := b.Query(ctx, types.CollectionLocator, nil, "", nil, types.ColumnID+" ASC")
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	count := 0
	err = writeJSONL(path, func(enc *json.Encoder) error {
		for cur.Next() {
			r, err := cur.Record()
			if err != nil {
				return fmt.Errorf("reading notes: %w", err)
			}
			n := types.NoteFromRecord(r)
			if err := enc.Encode(n); err != nil {
				return fmt.Errorf("encoding note %d: %w", n.ID, err)
			}
			count++
		}
		if err := cur.Err(); err != nil {
			return fmt.Errorf("reading notes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	b.logger.Debug("notes exported", "path", path, "count", count)
	return count, nil
}

// Import inserts every note found in the JSONL file at path and returns the
// number inserted. Ids are reassigned by the store; timestamps and category
// are kept when present. Lines that do not decode as a note are skipped.
func (b *Backend) Import(ctx context.Context, path string) (int, error) {
	count := 0
	skipped, err := readJSONL(path, func(raw json.RawMessage) error {
		var n types.Note
		if err := json.Unmarshal(raw, &n); err != nil {
			b.logger.Debug("skipping malformed note", "path", path, "error", err)
			return nil
		}
		if _, err := b.Insert(ctx, types.CollectionLocator, importValues(n)); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	b.logger.Debug("notes imported", "path", path, "count", count, "skipped", skipped)
	return count, nil
}

// importValues drops zero fields so insert defaults apply to them.
func importValues(n types.Note) types.Values {
	v := n.Values()
	if n.CreatedAt == 0 {
		delete(v, types.ColumnCreatedAt)
	}
	if n.ModifiedAt == 0 {
		delete(v, types.ColumnModifiedAt)
	}
	if n.Category == "" {
		delete(v, types.ColumnCategory)
	}
	return v
}
