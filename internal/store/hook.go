package store

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// Hook bridges logrus to the write-back buffer: every emitted entry becomes
// a pending log insert. Fire never touches disk, so logging stays cheap on
// the hot path; durability follows within one flush interval.
//
// The hook is attached to an explicit logger instance by the caller; there
// is no process-wide singleton.
type Hook struct {
	store *Store
}

// NewHook creates a logging hook backed by the given store.
func NewHook(s *Store) *Hook {
	return &Hook{store: s}
}

// Levels reports that the hook fires for every severity.
func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire enqueues the entry as a log record. The severity becomes the
// lower-cased key and the entry's own timestamp is preserved as created_on.
// A malformed entry is reported through the returned error, which logrus
// routes to its secondary error writer; Fire never logs through the hooked
// logger itself, to avoid recursing into the hook.
func (h *Hook) Fire(entry *logrus.Entry) error {
	if entry == nil {
		return errors.New("store hook: nil entry")
	}

	module := "main"
	if m, ok := entry.Data["module"].(string); ok && m != "" {
		module = m
	}

	h.store.EnqueueInsert(LogRecord{
		Module:    module,
		Key:       strings.ToLower(entry.Level.String()),
		Value:     entry.Message,
		CreatedOn: entry.Time.UTC(),
		UpdatedOn: entry.Time.UTC(),
	})
	return nil
}
