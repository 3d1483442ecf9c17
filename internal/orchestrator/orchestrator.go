package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/engine"
	"spool/internal/executor"
	"spool/internal/job"
	"spool/internal/logging"
	"spool/internal/notify"
	"spool/internal/store"
)

// Orchestrator coordinates the queue, pending, and done stores around a
// single-consumer scheduling loop.
type Orchestrator struct {
	cfg      *config.Config
	eng      engine.Engine
	notifier notify.Notifier
	logger   *slog.Logger

	queue   *store.Store
	pending *store.Store
	done    *store.Store

	// wake carries at most one signal; raising it while a signal is
	// already buffered is a no-op, so producers never block.
	wake chan struct{}

	mu        sync.Mutex
	current   *executor.Runner
	currentID string
}

// New opens the three buckets on db and re-imports jobs that were still
// queued when the previous process stopped: they return to pending so the
// operator decides whether to resume them.
func New(ctx context.Context, cfg *config.Config, db *store.DB, eng engine.Engine, notifier notify.Notifier, logger *slog.Logger) (*Orchestrator, error) {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	log := logging.NewComponentLogger(logger, "orchestrator")

	queue, err := db.Bucket(ctx, store.BucketQueue)
	if err != nil {
		return nil, err
	}
	pending, err := db.Bucket(ctx, store.BucketPending)
	if err != nil {
		return nil, err
	}
	done, err := db.Bucket(ctx, store.BucketDone)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		eng:      eng,
		notifier: notifier,
		logger:   log,
		queue:    queue,
		pending:  pending,
		done:     done,
		wake:     make(chan struct{}, 1),
	}
	if err := o.importQueued(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// importQueued moves jobs left in the queue bucket by a previous run into
// pending. Their progress fields are stale and the download never resumes
// on its own.
func (o *Orchestrator) importQueued(ctx context.Context) error {
	for _, pair := range o.queue.Items() {
		j := pair.Job
		j.Status = job.StatusPending
		j.Msg = ""
		j.Percent = 0
		j.Speed = 0
		j.ETA = 0
		if err := o.pending.Put(ctx, pair.Key, j); err != nil {
			return err
		}
		if err := o.queue.Delete(ctx, pair.Key); err != nil {
			return err
		}
		o.logger.Info("re-imported interrupted job",
			logging.String(logging.FieldJobID, pair.Key),
			logging.String(logging.FieldJobTitle, j.Title))
		o.notifier.Added(ctx, j.Clone())
	}
	return nil
}

// Snapshot returns clones of every stored job: active (queue then pending,
// oldest first) and done. The read is taken under the store mutex so a job
// moving between buckets never shows up twice.
func (o *Orchestrator) Snapshot() (active, done []store.Pair) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, pair := range append(o.queue.Items(), o.pending.Items()...) {
		active = append(active, store.Pair{Key: pair.Key, Job: pair.Job.Clone()})
	}
	for _, pair := range o.done.Items() {
		done = append(done, store.Pair{Key: pair.Key, Job: pair.Job.Clone()})
	}
	return active, done
}

// Get returns a clone of the job with the given id from whichever store
// holds it.
func (o *Orchestrator) Get(id string) (*job.Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range []*store.Store{o.queue, o.pending, o.done} {
		if j := s.Get(id); j != nil {
			return j.Clone(), true
		}
	}
	return nil, false
}

// StartPending moves jobs from pending into the queue and wakes the
// scheduler. Unknown ids are skipped with a log line, matching the
// tolerant semantics of Cancel and Clear.
func (o *Orchestrator) StartPending(ctx context.Context, ids []string) Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	moved := 0
	for _, id := range ids {
		j := o.pending.Get(id)
		if j == nil {
			o.logger.Warn("start requested for unknown pending job", logging.String(logging.FieldJobID, id))
			continue
		}
		if err := o.queue.Put(ctx, id, j); err != nil {
			return errorResult(err.Error())
		}
		if err := o.pending.Delete(ctx, id); err != nil {
			return errorResult(err.Error())
		}
		moved++
	}
	if moved > 0 {
		o.signal()
	}
	return okResult()
}

// Cancel stops the referenced jobs. A running job gets a cooperative
// cancel and leaves through the scheduler's terminal handling; a queued
// job is deleted immediately and fires exactly one canceled event.
func (o *Orchestrator) Cancel(ctx context.Context, ids []string) Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		if o.currentID == id && o.current != nil {
			o.current.Cancel()
			continue
		}
		if o.queue.Exists(id) {
			if err := o.queue.Delete(ctx, id); err != nil {
				return errorResult(err.Error())
			}
			o.notifier.Canceled(ctx, id)
			continue
		}
		o.logger.Warn("cancel requested for unknown job", logging.String(logging.FieldJobID, id))
	}
	return okResult()
}

// Clear removes finished jobs from the done store. When configured, the
// downloaded file is deleted alongside the record.
func (o *Orchestrator) Clear(ctx context.Context, ids []string) Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		j := o.done.Get(id)
		if j == nil {
			o.logger.Warn("clear requested for unknown job", logging.String(logging.FieldJobID, id))
			continue
		}
		if o.cfg.Downloads.DeleteFileOnClear && j.Filename != "" {
			o.removeDownload(j)
		}
		if err := o.done.Delete(ctx, id); err != nil {
			return errorResult(err.Error())
		}
		o.notifier.Cleared(ctx, id)
	}
	return okResult()
}

// removeDownload best-effort deletes the media file recorded on a cleared
// job. Filename is stored relative to the job's download directory.
func (o *Orchestrator) removeDownload(j *job.Job) {
	dir, err := o.downloadDir(j.Quality, j.Format, j.Folder)
	if err != nil {
		o.logger.Warn("clear could not resolve download dir",
			logging.String(logging.FieldJobID, j.ID), logging.Error(err))
		return
	}
	path := filepath.Join(dir, j.Filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.logger.Warn("clear could not delete file",
			logging.String(logging.FieldJobID, j.ID),
			logging.String("path", path), logging.Error(err))
	}
}

// signal raises the scheduler wakeup without blocking.
func (o *Orchestrator) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) pollInterval() time.Duration {
	return time.Duration(o.cfg.Scheduler.ProgressPollSeconds) * time.Second
}

func (o *Orchestrator) errorPause() time.Duration {
	return time.Duration(o.cfg.Scheduler.ErrorPauseSeconds) * time.Second
}
