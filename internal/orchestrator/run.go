package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spool/internal/executor"
	"spool/internal/job"
	"spool/internal/logging"
	"spool/internal/retry"
)

// Run is the scheduling loop, the queue's single consumer. It sleeps on
// the wakeup channel while the queue is empty, pops the oldest job, runs
// it to a terminal status, and files the outcome. It returns when ctx is
// canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("scheduler started", logging.Int("queued", o.queue.Len()))
	if !o.queue.Empty() {
		o.signal()
	}
	for {
		for o.queue.Empty() {
			select {
			case <-ctx.Done():
				o.logger.Info("scheduler stopped")
				return nil
			case <-o.wake:
			}
		}
		select {
		case <-ctx.Done():
			o.logger.Info("scheduler stopped")
			return nil
		default:
		}

		id, j := o.queue.Next()
		if id == "" {
			continue
		}
		if err := o.runOne(ctx, id, j); err != nil {
			o.logger.Error("job run failed outside the executor",
				logging.String(logging.FieldJobID, id),
				logging.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(o.errorPause()):
			}
		}

		// More work may have arrived while this job ran; the channel only
		// holds one signal, so re-raise it.
		if !o.queue.Empty() {
			o.signal()
		}
	}
}

// runOne drives a single job to its terminal status. A panic anywhere in
// the executor path is confined here: the job is marked failed and the
// loop survives.
func (o *Orchestrator) runOne(ctx context.Context, id string, j *job.Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
			j.SetFailed(fmt.Sprintf("internal error: %v", rec))
			o.finalize(ctx, id, j)
		}
	}()

	dir, derr := o.downloadDir(j.Quality, j.Format, j.Folder)
	if derr != nil {
		j.SetFailed(derr.Error())
		o.finalize(ctx, id, j)
		return nil
	}

	runner := executor.NewRunner(executor.Options{
		Engine:         o.eng,
		Job:            j,
		DownloadDir:    dir,
		TempDir:        o.cfg.Paths.TempDir,
		OutputTemplate: o.outputTemplate(j),
		SubtitleLang:   o.cfg.Downloads.SubtitleLanguage,
		Policy: retry.Policy{
			MaxAttempts: o.cfg.Retry.MaxAttempts,
			BaseDelay:   time.Duration(o.cfg.Retry.BaseDelaySeconds) * time.Second,
			Multiplier:  1,
		},
		PollInterval: o.pollInterval(),
		Logger:       o.logger,
	})

	o.mu.Lock()
	o.current = runner
	o.currentID = id
	o.mu.Unlock()

	runErr := runner.Start(ctx, o.notifier)

	o.mu.Lock()
	o.current = nil
	o.currentID = ""
	o.mu.Unlock()
	runner.Close()

	o.finalize(ctx, id, runner.Job())
	return runErr
}

// finalize files a terminal job: finished and failed jobs move to done
// and fire a completed event, canceled jobs are dropped. Partial temp
// files are removed on any non-finished outcome. The job stays in the
// queue for the whole run, so its absence here means Cancel removed it
// and already fired the canceled event; filing it again would produce a
// second terminal event for the same job.
func (o *Orchestrator) finalize(ctx context.Context, id string, j *job.Job) {
	if !j.Status.IsTerminal() {
		j.SetFailed("download ended without a terminal status")
	}
	if j.Status != job.StatusFinished {
		o.removeTemp(j)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.queue.Exists(id) {
		o.logger.Info("job was canceled before it could be filed",
			logging.String(logging.FieldJobID, id))
		return
	}
	if err := o.queue.Delete(ctx, id); err != nil {
		o.logger.Error("could not remove job from queue",
			logging.String(logging.FieldJobID, id), logging.Error(err))
	}
	if j.Status == job.StatusCanceled {
		o.logger.Info("job canceled",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldJobTitle, j.Title))
		o.notifier.Completed(ctx, j.Clone())
		return
	}
	if err := o.done.Put(ctx, id, j); err != nil {
		o.logger.Error("could not record finished job",
			logging.String(logging.FieldJobID, id), logging.Error(err))
	}
	o.notifier.Completed(ctx, j.Clone())
}

// removeTemp best-effort deletes the partial temp file a failed or
// canceled download left behind.
func (o *Orchestrator) removeTemp(j *job.Job) {
	if j.TmpFilename == "" {
		return
	}
	path := j.TmpFilename
	if !filepath.IsAbs(path) {
		path = filepath.Join(o.cfg.Paths.TempDir, path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.logger.Warn("could not remove temp file",
			logging.String("path", path), logging.Error(err))
	}
}
