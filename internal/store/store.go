package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// ConfigHashKey is the reserved settings key holding the SHA-256 fingerprint
// of the last-seen configuration file.
const ConfigHashKey = "config-sha256"

// flushInterval is the period of the background flush cycle.
const flushInterval = 60 * time.Second

// LogRecord is one append-only row in the logs table. Rows are created by
// the logging hook, never updated, and destroyed only by Purge.
type LogRecord struct {
	ID        int64
	Module    string // origin module name
	Key       string // severity level, lower-cased
	Value     string // formatted message
	CreatedOn time.Time
	UpdatedOn time.Time
}

// SettingRecord is one upsertable key/value row in the settings table.
// At most one row per Key exists at any time (UNIQUE index); every write
// after the first mutates the existing row in place.
type SettingRecord struct {
	ID        int64
	Key       string
	Value     string
	CreatedOn time.Time
	UpdatedOn time.Time
}

// Store buffers log and setting records in memory and flushes them
// periodically into a single SQLite file.
//
// Producers call EnqueueInsert/EnqueueUpdate, which never block and never
// fail. The flush cycle (and out-of-band Flush calls, and Purge) serialize
// on one mutex so at most one multi-step mutation holds the single writable
// connection at a time.
type Store struct {
	db        *sql.DB
	retention int // days
	log       *logrus.Entry

	// mu serializes Flush and Purge against each other.
	mu sync.Mutex

	// qmu guards the pending queues; held only for appends and snapshots.
	qmu     sync.Mutex
	inserts []LogRecord
	updates []SettingRecord

	interval time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Open creates or opens the SQLite cache at the given path and tunes it for
// concurrent, durable, low-latency writes.
//
// Applied at open, once:
//   - WAL journal mode (concurrent readers during writes)
//   - NORMAL synchronous mode (balance durability/performance)
//   - 16 MB page cache (negative-KB convention)
//   - in-memory temp storage
//   - NORMAL (non-exclusive) locking mode
//   - a one-time VACUUM pass
//
// Both tables are then created if missing; existing columns are never
// altered. Any open error is fatal to the invoking command and is surfaced,
// not retried.
//
// retention is the log retention window in days, consumed only by Purge.
// log receives flush and purge diagnostics; it must not be nil.
func Open(path string, retention int, log *logrus.Entry) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:        db,
		retention: retention,
		log:       log,
		interval:  flushInterval,
		now:       func() time.Time { return time.Now().UTC() },
		stopCh:    make(chan struct{}),
	}, nil
}

// Start launches the periodic flush cycle in a background goroutine.
// The cycle runs until Close is called.
func (s *Store) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.listen()
	}()
	s.log.Debug("listener is up and running")
}

// listen flushes on a fixed period until the stop channel closes.
func (s *Store) listen() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.Flush(context.Background()); err != nil {
				s.log.WithField("err", err).Error("periodic flush failed")
			}
		}
	}
}

// Close stops the periodic flush cycle, performs one final synchronous
// flush so records enqueued before Close are not dropped, and releases the
// database. Callers must invoke Close before process exit; the store does
// not install its own exit hooks.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()

	if err := s.Flush(context.Background()); err != nil {
		s.log.WithField("err", err).Error("final flush failed")
	}
	s.log.Debug("listener is shutting down")

	return s.db.Close()
}

// applyPragmas sets the concurrency and durability tuning.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA locking_mode = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	// One-time space reclamation pass.
	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum: %w", err)
	}

	return nil
}

// applySchema creates both tables if they don't exist. Idempotent; the
// schema is fixed for the system's lifetime, so there are no migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
