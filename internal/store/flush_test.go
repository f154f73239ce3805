package store

import (
	"context"
	"testing"
	"time"

	"github.com/oddjob-dev/oddjob/internal/testutil"
)

func TestFlush_InsertsInEnqueueOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s.EnqueueInsert(LogRecord{Module: "main", Key: "info", Value: "a", CreatedOn: now, UpdatedOn: now})
	s.EnqueueInsert(LogRecord{Module: "main", Key: "error", Value: "b", CreatedOn: now, UpdatedOn: now})

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	logs, err := s.ReadLogs(ctx)
	if err != nil {
		t.Fatalf("ReadLogs() failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d rows, want 2", len(logs))
	}
	if logs[0].Key != "info" || logs[0].Value != "a" {
		t.Errorf("first row = (%q, %q), want (info, a)", logs[0].Key, logs[0].Value)
	}
	if logs[1].Key != "error" || logs[1].Value != "b" {
		t.Errorf("second row = (%q, %q), want (error, b)", logs[1].Key, logs[1].Value)
	}
}

func TestFlush_EmptiesQueues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s.EnqueueInsert(LogRecord{Module: "main", Key: "info", Value: "a", CreatedOn: now, UpdatedOn: now})
	s.EnqueueUpdate(SettingRecord{Key: "foo", Value: "1"})

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	s.qmu.Lock()
	inserts, updates := len(s.inserts), len(s.updates)
	s.qmu.Unlock()
	if inserts != 0 || updates != 0 {
		t.Errorf("queues not empty after flush: %d inserts, %d updates", inserts, updates)
	}
}

func TestFlush_EmptyQueuesIsNoOp(t *testing.T) {
	s := newTestStore(t)

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() on empty queues failed: %v", err)
	}
}

func TestFlush_UpdatesDeduplicateLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.EnqueueUpdate(SettingRecord{Key: "foo", Value: "1"})
	s.EnqueueUpdate(SettingRecord{Key: "foo", Value: "2"})
	s.EnqueueUpdate(SettingRecord{Key: "bar", Value: "x"})

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	rec, found, err := s.ReadSetting(ctx, "foo")
	if err != nil || !found {
		t.Fatalf("ReadSetting(foo) = found=%v, err=%v", found, err)
	}
	if rec.Value != "2" {
		t.Errorf("foo = %q, want 2 (last write wins)", rec.Value)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM settings WHERE key = 'foo'").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d rows for key foo, want 1", count)
	}
}

func TestFlush_UpsertAcrossFlushes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	clock := testutil.NewFrozenClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	s.now = clock.Now

	s.EnqueueUpdate(SettingRecord{Key: "foo", Value: "1"})
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("first Flush() failed: %v", err)
	}

	first, _, err := s.ReadSetting(ctx, "foo")
	if err != nil {
		t.Fatalf("ReadSetting() failed: %v", err)
	}

	clock.Advance(time.Hour)
	s.EnqueueUpdate(SettingRecord{Key: "foo", Value: "2"})
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("second Flush() failed: %v", err)
	}

	second, found, err := s.ReadSetting(ctx, "foo")
	if err != nil || !found {
		t.Fatalf("ReadSetting(foo) = found=%v, err=%v", found, err)
	}
	if second.Value != "2" {
		t.Errorf("foo = %q, want 2", second.Value)
	}
	if !second.CreatedOn.Equal(first.CreatedOn) {
		t.Errorf("created_on changed on upsert: %v -> %v", first.CreatedOn, second.CreatedOn)
	}
	if second.UpdatedOn.Before(first.UpdatedOn) {
		t.Errorf("updated_on moved backwards: %v -> %v", first.UpdatedOn, second.UpdatedOn)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM settings WHERE key = 'foo'").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d rows for key foo, want 1", count)
	}
}

func TestSnapshot_EntriesEnqueuedAfterSnapshotStayPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s.EnqueueInsert(LogRecord{Module: "main", Key: "info", Value: "a", CreatedOn: now, UpdatedOn: now})

	inserts, updates := s.snapshot()
	if len(inserts) != 1 || len(updates) != 0 {
		t.Fatalf("snapshot = %d inserts, %d updates, want 1, 0", len(inserts), len(updates))
	}

	// Enqueued after the snapshot: must survive for the next cycle.
	s.EnqueueInsert(LogRecord{Module: "main", Key: "info", Value: "b", CreatedOn: now, UpdatedOn: now})

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	logs, err := s.ReadLogs(ctx)
	if err != nil {
		t.Fatalf("ReadLogs() failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Value != "b" {
		t.Fatalf("flush after snapshot wrote %v, want just the post-snapshot record", logs)
	}
}

func TestDedupeByKey(t *testing.T) {
	updates := []SettingRecord{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "1"},
		{Key: "a", Value: "2"},
		{Key: "a", Value: "3"},
	}

	deduped := dedupeByKey(updates)
	if len(deduped) != 2 {
		t.Fatalf("got %d records, want 2", len(deduped))
	}
	if deduped[0].Key != "b" || deduped[0].Value != "1" {
		t.Errorf("deduped[0] = %+v, want b=1", deduped[0])
	}
	if deduped[1].Key != "a" || deduped[1].Value != "3" {
		t.Errorf("deduped[1] = %+v, want a=3", deduped[1])
	}
}

func TestStart_PeriodicCycleDrainsQueues(t *testing.T) {
	s := newTestStore(t)
	s.interval = 10 * time.Millisecond
	ctx := context.Background()

	now := time.Now().UTC()
	s.EnqueueInsert(LogRecord{Module: "main", Key: "info", Value: "periodic", CreatedOn: now, UpdatedOn: now})
	s.Start()

	deadline := time.After(2 * time.Second)
	for {
		count, err := s.CountLogs(ctx)
		if err != nil {
			t.Fatalf("CountLogs() failed: %v", err)
		}
		if count == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("periodic flush never drained the queue")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClose_FlushesPendingRecords(t *testing.T) {
	path := t.TempDir() + "/cache.sqlite"
	s, err := Open(path, 7, discardEntry())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	now := time.Now().UTC()
	s.Start()
	s.EnqueueInsert(LogRecord{Module: "main", Key: "info", Value: "last words", CreatedOn: now, UpdatedOn: now})

	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := Open(path, 7, discardEntry())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	logs, err := reopened.ReadLogs(context.Background())
	if err != nil {
		t.Fatalf("ReadLogs() failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Value != "last words" {
		t.Fatalf("record enqueued before Close() not durable: %v", logs)
	}
}

func TestFlush_FailureDropsSnapshot(t *testing.T) {
	path := t.TempDir() + "/cache.sqlite"
	s, err := Open(path, 7, discardEntry())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	now := time.Now().UTC()
	s.EnqueueInsert(LogRecord{Module: "main", Key: "info", Value: "doomed", CreatedOn: now, UpdatedOn: now})

	// Force the transaction to fail.
	s.db.Close()

	if err := s.Flush(context.Background()); err == nil {
		t.Fatal("Flush() on a closed database should fail")
	}

	// The snapshot is dropped, not re-queued: at-most-once durability.
	s.qmu.Lock()
	pending := len(s.inserts)
	s.qmu.Unlock()
	if pending != 0 {
		t.Errorf("failed snapshot re-queued: %d pending inserts", pending)
	}
}

func TestFlush_ConcurrentEnqueueIsSafe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.EnqueueInsert(LogRecord{Module: "main", Key: "info", Value: "x", CreatedOn: now, UpdatedOn: now})
		}
	}()

	for i := 0; i < 10; i++ {
		if err := s.Flush(ctx); err != nil {
			t.Fatalf("Flush() failed: %v", err)
		}
	}
	<-done

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("final Flush() failed: %v", err)
	}

	count, err := s.CountLogs(ctx)
	if err != nil {
		t.Fatalf("CountLogs() failed: %v", err)
	}
	if count != 100 {
		t.Errorf("got %d rows, want 100 (no enqueued record lost)", count)
	}
}
