package testsupport

import (
	"context"
	"testing"

	"spool/internal/config"
	"spool/internal/job"
	"spool/internal/logging"
	"spool/internal/store"
)

// MustOpenDB opens the state database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *store.DB {
	t.Helper()

	db, err := store.Open(cfg.StateDBPath(), logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// MustBucket opens a named bucket on the test database.
func MustBucket(t testing.TB, db *store.DB, name string) *store.Store {
	t.Helper()

	s, err := db.Bucket(context.Background(), name)
	if err != nil {
		t.Fatalf("db.Bucket(%q): %v", name, err)
	}
	return s
}

// NewJob creates a minimal job descriptor for tests.
func NewJob(t testing.TB, id, title, url string) *job.Job {
	t.Helper()

	return job.New(job.Params{ID: id, Title: title, URL: url})
}
