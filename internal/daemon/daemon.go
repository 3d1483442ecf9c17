// Package daemon ties the orchestrator, state database, and fetch engine
// into a long-running background process with single-instance locking.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/orchestrator"
	"spool/internal/store"
)

// Daemon owns the orchestrator lifecycle and enforces single-instance
// execution through a file lock in the log directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *store.DB
	orch   *orchestrator.Orchestrator

	sessionID string
	lockPath  string
	lock      *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// New constructs a daemon around an already-initialized orchestrator.
func New(cfg *config.Config, db *store.DB, orch *orchestrator.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || db == nil || orch == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, orchestrator, and logger")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "spoold.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		db:        db,
		orch:      orch,
		sessionID: uuid.NewString(),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// SessionID identifies this daemon run in logs and notifications.
func (d *Daemon) SessionID() string { return d.sessionID }

// LockPath returns the single-instance lock file location.
func (d *Daemon) LockPath() string { return d.lockPath }

// Start acquires the instance lock and launches the scheduling loop in
// the background. It fails when another daemon already holds the lock.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another spool daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		if err := d.orch.Run(runCtx); err != nil {
			d.logger.Error("scheduler exited", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("spool daemon started",
		logging.String("session_id", d.sessionID),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels the scheduling loop, waits for it to drain, and releases
// the instance lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("spool daemon stopped")
}

// Running reports whether the scheduling loop is active.
func (d *Daemon) Running() bool { return d.running.Load() }

// Close stops the daemon and closes the state database.
func (d *Daemon) Close() error {
	d.Stop()
	return d.db.Close()
}
