package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Categories returns the distinct categories in use, in ascending order.
func (b *Backend) Categories(ctx context.Context) ([]string, error) {
	start := time.Now()
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, b.fail(types.OpQuery, types.CollectionLocator, types.KindCollection, start, types.ErrDetached)
	}

	q := "SELECT DISTINCT " + types.ColumnCategory + " FROM " + types.TableNotes + " ORDER BY " + types.ColumnCategory
	rows, err := b.reader.QueryContext(ctx, q)
	if err != nil {
		return nil, b.fail(types.OpQuery, types.CollectionLocator, types.KindCollection, start, types.StorageFailure(err))
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, b.fail(types.OpQuery, types.CollectionLocator, types.KindCollection, start, types.StorageFailure(err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, b.fail(types.OpQuery, types.CollectionLocator, types.KindCollection, start, types.StorageFailure(err))
	}
	b.metrics.observe(types.OpQuery, types.KindCollection, start, nil)
	return out, nil
}

// Search returns notes whose title or body contains keyword, limited to
// category when it is not empty. Both arguments empty match every note.
func (b *Backend) Search(ctx context.Context, keyword, category string) (types.Cursor, error) {
	var (
		clauses []string
		args    []any
	)
	if category != "" {
		clauses = append(clauses, types.ColumnCategory+" = ?")
		args = append(args, category)
	}
	if keyword != "" {
		pattern := "%" + escapeLike(keyword) + "%"
		clauses = append(clauses, "("+types.ColumnTitle+` LIKE ? ESCAPE '\' OR `+types.ColumnBody+` LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	return b.Query(ctx, types.CollectionLocator, nil, strings.Join(clauses, " AND "), args, "")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
