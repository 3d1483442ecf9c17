package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spool/internal/job"
	"spool/internal/logging"
)

type entry struct {
	job      *job.Job
	position int64
}

// Store is one durable ordered bucket of jobs. Insertion order is
// preserved so Next always yields the oldest entry; re-putting an
// existing key keeps its original position.
type Store struct {
	db     *sql.DB
	bucket string
	logger *slog.Logger

	mu      sync.RWMutex
	order   []string
	items   map[string]*entry
	lastPos int64
}

// Pair couples a store key with its job, used by snapshot listings.
type Pair struct {
	Key string
	Job *job.Job
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, data, position FROM store_items WHERE bucket = ? ORDER BY position ASC`,
		s.bucket,
	)
	if err != nil {
		return fmt.Errorf("load bucket %s: %w", s.bucket, err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	clear(s.items)
	for rows.Next() {
		var (
			id       string
			data     []byte
			position int64
		)
		if err := rows.Scan(&id, &data, &position); err != nil {
			return fmt.Errorf("scan bucket %s row: %w", s.bucket, err)
		}
		decoded, err := job.UnmarshalJob(data)
		if err != nil {
			// Corrupt records are skipped, not fatal: the store must stay
			// loadable after an unclean shutdown.
			s.logger.Warn("skipping unreadable store record",
				logging.String(logging.FieldJobID, id),
				logging.Error(err),
			)
			continue
		}
		s.order = append(s.order, id)
		s.items[id] = &entry{job: decoded, position: position}
		if position > s.lastPos {
			s.lastPos = position
		}
	}
	return rows.Err()
}

// Exists reports whether a key is present.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// Get returns the job stored under key, or nil when absent.
func (s *Store) Get(key string) *job.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.items[key]; ok {
		return e.job
	}
	return nil
}

// Items returns the bucket contents in insertion order.
func (s *Store) Items() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pairs := make([]Pair, 0, len(s.order))
	for _, key := range s.order {
		pairs = append(pairs, Pair{Key: key, Job: s.items[key].job})
	}
	return pairs
}

// Next returns the oldest entry, or an empty key and nil job when the
// bucket is empty.
func (s *Store) Next() (string, *job.Job) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return "", nil
	}
	key := s.order[0]
	return key, s.items[key].job
}

// Empty reports whether the bucket holds no entries.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order) == 0
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Put upserts a job by key, persisting durably before the in-memory view
// changes. On persistence failure the mapping is untouched.
func (s *Store) Put(ctx context.Context, key string, j *job.Job) error {
	if j == nil {
		return fmt.Errorf("put %s: nil job", s.bucket)
	}
	data, err := job.MarshalJob(j)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	position := time.Now().UnixNano()
	if position <= s.lastPos {
		position = s.lastPos + 1
	}
	if existing, ok := s.items[key]; ok {
		position = existing.position
	} else {
		s.lastPos = position
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO store_items (bucket, id, data, position) VALUES (?, ?, ?, ?)
         ON CONFLICT (bucket, id) DO UPDATE SET data = excluded.data`,
		s.bucket, key, data, position,
	)
	if err != nil {
		return fmt.Errorf("persist job %s to %s: %w", key, s.bucket, err)
	}

	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = &entry{job: j, position: position}
	return nil
}

// Delete removes a key from durable storage and memory. A missing key is
// a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return nil
	}

	if _, err := s.db.ExecContext(
		ctx,
		`DELETE FROM store_items WHERE bucket = ? AND id = ?`,
		s.bucket, key,
	); err != nil {
		return fmt.Errorf("delete job %s from %s: %w", key, s.bucket, err)
	}

	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
