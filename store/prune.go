package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gridsight/gridsight/dbopen"
)

// Prune deletes scan artifacts and dumps older than maxAge, always keeping
// the keepLast most recent of each regardless of age. Returns the number of
// rows deleted.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration, keepLast int) (int, error) {
	if keepLast < 0 {
		keepLast = 0
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	total := 0
	for _, table := range []string{"scans", "dumps"} {
		// The keepLast newest rows are exempt from the age cutoff.
		res, err := dbopen.Exec(ctx, s.DB, fmt.Sprintf(`
			DELETE FROM %[1]s
			WHERE created_at < ?
			  AND id NOT IN (
			      SELECT id FROM %[1]s ORDER BY created_at DESC, id DESC LIMIT ?
			  )`, table),
			cutoff, keepLast,
		)
		if err != nil {
			return total, fmt.Errorf("store: prune %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("store: prune %s: %w", table, err)
		}
		total += int(n)
	}
	return total, nil
}
