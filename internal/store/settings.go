package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReadSetting returns the settings row for key, or found=false if no row
// exists. Single-statement read on the shared connection; safe to call
// concurrently with the flush cycle.
func (s *Store) ReadSetting(ctx context.Context, key string) (rec SettingRecord, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id, key, value, created_on, updated_on
		FROM settings
		WHERE key = ?
	`, key).Scan(&rec.ID, &rec.Key, &rec.Value, &rec.CreatedOn, &rec.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return SettingRecord{}, false, nil
	}
	if err != nil {
		return SettingRecord{}, false, fmt.Errorf("read setting %q: %w", key, err)
	}
	return rec, true, nil
}

// PutSetting upserts a settings row synchronously, bypassing the buffered
// queue. Used when the write must be observable before the caller proceeds,
// such as persisting the config fingerprint. Single statement through the
// same upsert path the flush cycle uses.
func (s *Store) PutSetting(ctx context.Context, rec SettingRecord, now time.Time) error {
	return upsertSetting(ctx, s.db, rec, now)
}

// CountLogs returns the number of rows in the logs table. Used by tests and
// the purge command's reporting.
func (s *Store) CountLogs(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return count, nil
}

// ReadLogs returns all log rows in insertion order. Returns an empty slice
// (not nil) when the table is empty.
func (s *Store) ReadLogs(ctx context.Context) ([]LogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, module, key, value, created_on, updated_on
		FROM logs
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var logs []LogRecord
	for rows.Next() {
		var rec LogRecord
		if err := rows.Scan(&rec.ID, &rec.Module, &rec.Key, &rec.Value, &rec.CreatedOn, &rec.UpdatedOn); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}

	if logs == nil {
		logs = []LogRecord{}
	}
	return logs, nil
}
