package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// EnqueueInsert appends a log record to the pending-insert queue. It never
// blocks on disk I/O and never fails; duplicate rows are legitimate. The
// record stays in memory until the next successful flush.
func (s *Store) EnqueueInsert(rec LogRecord) {
	s.qmu.Lock()
	s.inserts = append(s.inserts, rec)
	s.qmu.Unlock()
}

// EnqueueUpdate appends a setting record to the pending-update queue under
// the same non-blocking contract as EnqueueInsert. Multiple queued updates
// for the same key are deduplicated at flush time, last write wins.
func (s *Store) EnqueueUpdate(rec SettingRecord) {
	s.qmu.Lock()
	s.updates = append(s.updates, rec)
	s.qmu.Unlock()
}

// snapshot takes the current queue contents and resets both queues, so new
// entries enqueued during the flush land in the next cycle. Drained entries
// are never re-queued, even if the transaction fails (at-most-once for
// observability data).
func (s *Store) snapshot() ([]LogRecord, []SettingRecord) {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	inserts, updates := s.inserts, s.updates
	s.inserts, s.updates = nil, nil
	return inserts, updates
}

// Flush drains a snapshot of both queues into a single transaction, commits,
// and checkpoint-truncates the WAL to bound its growth. It is a no-op when
// both queues are empty at snapshot time.
//
// At most one flush executes at a time: the periodic cycle, out-of-band
// calls, and Purge all serialize on the same lock. On any failure inside
// the transaction the whole cycle rolls back; the failure is logged and
// returned, and the snapshot is dropped.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tic := time.Now()
	inserts, updates := s.snapshot()
	if len(inserts) == 0 && len(updates) == 0 {
		return nil
	}

	if err := s.flushLocked(ctx, inserts, updates); err != nil {
		s.log.WithField("err", err).Error("flush failed")
		return err
	}

	s.log.WithFields(logrus.Fields{
		"inserts": len(inserts),
		"updates": len(updates),
		"took":    time.Since(tic).Round(time.Millisecond).String(),
	}).Debug("flushed")

	return nil
}

// flushLocked writes one snapshot inside one transaction. Caller holds s.mu.
func (s *Store) flushLocked(ctx context.Context, inserts []LogRecord, updates []SettingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Inserts commit in enqueue order relative to each other.
	for _, rec := range inserts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO logs (module, key, value, created_on, updated_on)
			VALUES (?, ?, ?, ?, ?)
		`, rec.Module, rec.Key, rec.Value, rec.CreatedOn, rec.UpdatedOn); err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
	}

	// Updates deduplicate by key in enqueue order, so the last queued write
	// for a key is the one that lands.
	for _, rec := range dedupeByKey(updates) {
		if err := upsertSetting(ctx, tx, rec, s.now()); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}

	return nil
}

// dedupeByKey collapses queued setting updates to the last entry per key,
// preserving the enqueue order of each key's final write.
func dedupeByKey(updates []SettingRecord) []SettingRecord {
	if len(updates) < 2 {
		return updates
	}

	last := make(map[string]int, len(updates))
	for i, rec := range updates {
		last[rec.Key] = i
	}

	deduped := make([]SettingRecord, 0, len(last))
	for i, rec := range updates {
		if last[rec.Key] == i {
			deduped = append(deduped, rec)
		}
	}
	return deduped
}

// execer lets upsertSetting run against either the shared connection or a
// transaction, keeping a single mutation path for settings rows.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertSetting is the only code path that mutates a settings row. The
// UNIQUE index on key enforces the at-most-one-row-per-key invariant; an
// existing row keeps its created_on and gets a fresh value and updated_on.
func upsertSetting(ctx context.Context, ex execer, rec SettingRecord, now time.Time) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO settings (key, value, created_on, updated_on)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_on = excluded.updated_on
	`, rec.Key, rec.Value, now, now)
	if err != nil {
		return fmt.Errorf("upsert setting %q: %w", rec.Key, err)
	}
	return nil
}
