package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	"spool/internal/job"
	"spool/internal/logging"
	"spool/internal/store"
	"spool/internal/testsupport"
)

func TestPutGetDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	bucket := testsupport.MustBucket(t, db, store.BucketQueue)

	ctx := context.Background()
	j := testsupport.NewJob(t, "vid1", "First", "https://example.com/1")
	if err := bucket.Put(ctx, j.ID, j); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !bucket.Exists("vid1") {
		t.Fatal("expected key to exist after Put")
	}
	got := bucket.Get("vid1")
	if got == nil || got.Title != "First" {
		t.Fatalf("unexpected Get result: %+v", got)
	}
	if err := bucket.Delete(ctx, "vid1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if bucket.Exists("vid1") {
		t.Fatal("expected key to be gone after Delete")
	}
	if err := bucket.Delete(ctx, "vid1"); err != nil {
		t.Fatalf("Delete of missing key should be a no-op, got %v", err)
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	bucket := testsupport.MustBucket(t, db, store.BucketQueue)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("vid%d", i)
		j := testsupport.NewJob(t, id, id, "https://example.com/"+id)
		if err := bucket.Put(ctx, id, j); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	// Updating an existing key must not move it to the back.
	first := bucket.Get("vid0")
	first.Status = job.StatusDownloading
	if err := bucket.Put(ctx, "vid0", first); err != nil {
		t.Fatalf("re-Put: %v", err)
	}

	key, next := bucket.Next()
	if key != "vid0" || next == nil {
		t.Fatalf("Next returned %q, want vid0", key)
	}
	items := bucket.Items()
	for i, pair := range items {
		want := fmt.Sprintf("vid%d", i)
		if pair.Key != want {
			t.Fatalf("position %d holds %q, want %q", i, pair.Key, want)
		}
	}
}

func TestReloadAcrossReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	db, err := store.Open(cfg.StateDBPath(), logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	bucket, err := db.Bucket(ctx, store.BucketDone)
	if err != nil {
		t.Fatalf("Bucket: %v", err)
	}
	j := testsupport.NewJob(t, "persist1", "Persisted", "https://example.com/p")
	j.Status = job.StatusFinished
	j.Filename = "Persisted.m4a"
	if err := bucket.Put(ctx, j.ID, j); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := store.Open(cfg.StateDBPath(), logging.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	bucket2, err := reopened.Bucket(ctx, store.BucketDone)
	if err != nil {
		t.Fatalf("Bucket after reopen: %v", err)
	}
	got := bucket2.Get("persist1")
	if got == nil {
		t.Fatal("job not reloaded after reopen")
	}
	if got.Status != job.StatusFinished || got.Filename != "Persisted.m4a" {
		t.Fatalf("reloaded job lost fields: %+v", got)
	}
}

func TestBucketsAreIsolated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	queue := testsupport.MustBucket(t, db, store.BucketQueue)
	pending := testsupport.MustBucket(t, db, store.BucketPending)

	ctx := context.Background()
	j := testsupport.NewJob(t, "shared", "Shared", "https://example.com/s")
	if err := queue.Put(ctx, j.ID, j); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if pending.Exists("shared") {
		t.Fatal("key leaked across buckets")
	}
	if queue.Len() != 1 || pending.Len() != 0 {
		t.Fatalf("unexpected lengths: queue=%d pending=%d", queue.Len(), pending.Len())
	}
}

func TestLoadSkipsCorruptRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	db, err := store.Open(cfg.StateDBPath(), logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	bucket, err := db.Bucket(ctx, store.BucketQueue)
	if err != nil {
		t.Fatalf("Bucket: %v", err)
	}
	good := testsupport.NewJob(t, "good", "Good", "https://example.com/g")
	if err := bucket.Put(ctx, good.ID, good); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := sql.Open("sqlite", "file:"+cfg.StateDBPath()+"?mode=rw")
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := raw.ExecContext(ctx,
		`INSERT INTO store_items (bucket, id, data, position) VALUES (?, ?, ?, ?)`,
		store.BucketQueue, "bad", []byte("{not json"), 1); err != nil {
		t.Fatalf("insert corrupt row: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	reopened, err := store.Open(cfg.StateDBPath(), logging.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	bucket2, err := reopened.Bucket(ctx, store.BucketQueue)
	if err != nil {
		t.Fatalf("Bucket after reopen: %v", err)
	}
	if bucket2.Len() != 1 || !bucket2.Exists("good") {
		t.Fatalf("expected only the good record to survive, got %d items", bucket2.Len())
	}
}
