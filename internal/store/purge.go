package store

import (
	"context"
	"fmt"
	"time"
)

// Purge deletes log rows whose updated_on is strictly older than
// now − retention days, inside one transaction, and returns the count
// removed. Settings rows are never touched.
//
// Purge is a maintenance operation invoked on an operator-triggered cadence,
// not part of the steady-state write path. It serializes against Flush so a
// sweep never races a flush that is inserting rows.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := s.now().Add(-time.Duration(s.retention) * 24 * time.Hour)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("purge: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var count int64
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM logs WHERE updated_on < ?", threshold,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("purge: count: %w", err)
	}

	if count == 0 {
		return 0, nil
	}

	s.log.WithField("threshold", threshold.Format("2006-01-02 15:04:05")).Debug("purging logs")

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM logs WHERE updated_on < ?", threshold,
	); err != nil {
		return 0, fmt.Errorf("purge: delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("purge: commit: %w", err)
	}

	s.log.WithField("count", count).Debug("purge done")
	return count, nil
}
