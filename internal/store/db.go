package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"spool/internal/logging"
)

// Bucket names recognized by the orchestrator.
const (
	BucketQueue   = "queue"
	BucketPending = "pending"
	BucketDone    = "done"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS store_items (
    bucket   TEXT NOT NULL,
    id       TEXT NOT NULL,
    data     BLOB NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (bucket, id)
);
CREATE INDEX IF NOT EXISTS idx_store_items_order ON store_items (bucket, position);
`

// DB wraps the shared SQLite connection behind the per-bucket stores.
type DB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	bucketMu sync.Mutex
	buckets  map[string]*Store
}

// Open initializes or connects to the state database and ensures the schema.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}
	return open("file:"+path+"?mode=rwc", path, logger, true)
}

// OpenReadOnly connects to an existing state database without taking write
// locks. Used by CLI listing commands while the daemon owns the writer side.
func OpenReadOnly(path string, logger *slog.Logger) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat state database: %w", err)
	}
	return open("file:"+path+"?mode=ro", path, logger, false)
}

func open(dsn, path string, logger *slog.Logger, writable bool) (*DB, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if writable {
		if _, err := db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	return &DB{db: db, path: path, logger: logger}, nil
}

// Path returns the database file location.
func (d *DB) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Bucket opens one named store, loading its persisted rows into memory.
// Repeated calls for the same name return the same instance so every
// caller shares one in-memory view of the bucket.
func (d *DB) Bucket(ctx context.Context, name string) (*Store, error) {
	d.bucketMu.Lock()
	defer d.bucketMu.Unlock()
	if s, ok := d.buckets[name]; ok {
		return s, nil
	}

	s := &Store{
		db:     d.db,
		bucket: name,
		logger: d.logger.With(logging.String(logging.FieldStore, name)),
		items:  make(map[string]*entry),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if d.buckets == nil {
		d.buckets = make(map[string]*Store)
	}
	d.buckets[name] = s
	return s, nil
}
