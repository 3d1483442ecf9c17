package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"spool/internal/engine"
	"spool/internal/job"
	"spool/internal/logging"
	"spool/internal/notify"
	"spool/internal/retry"
)

// updateBuffer bounds the raw event channel between the fetch worker and
// the update pump.
const updateBuffer = 256

// event is one raw message from the fetch worker. A terminal event is the
// last one before the channel closes.
type event struct {
	progress       engine.Progress
	metadata       *job.Metadata
	metadataStatus job.MetadataStatus
	terminal       bool
	terminalStatus job.Status
}

// Options configures a Runner for one job.
type Options struct {
	Engine         engine.Engine
	Job            *job.Job
	DownloadDir    string
	TempDir        string
	OutputTemplate string
	SubtitleLang   string
	Policy         retry.Policy
	PollInterval   time.Duration
	Logger         *slog.Logger
}

// Runner executes one job.
type Runner struct {
	eng            engine.Engine
	job            *job.Job
	downloadDir    string
	tempDir        string
	outputTemplate string
	subtitleLang   string
	policy         retry.Policy
	pollInterval   time.Duration
	logger         *slog.Logger

	updates chan event

	// Worker-local metadata state, seeded before the fetch goroutine
	// starts so the worker never reads descriptor fields the pump owns.
	meta job.Metadata
	ms   job.MetadataStatus

	mu          sync.Mutex
	canceled    bool
	started     bool
	cancelFetch context.CancelFunc
}

// New constructs a runner. The job descriptor is owned by the runner's
// update pump for the duration of Start.
func NewRunner(opts Options) *Runner {
	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = retry.Default
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	subtitleLang := opts.SubtitleLang
	if subtitleLang == "" {
		subtitleLang = "en"
	}
	return &Runner{
		eng:            opts.Engine,
		job:            opts.Job,
		downloadDir:    opts.DownloadDir,
		tempDir:        opts.TempDir,
		outputTemplate: opts.OutputTemplate,
		subtitleLang:   subtitleLang,
		policy:         policy,
		pollInterval:   poll,
		logger: logging.NewComponentLogger(opts.Logger, "executor").With(
			logging.String(logging.FieldJobID, opts.Job.ID),
		),
		updates: make(chan event, updateBuffer),
		meta:    opts.Job.Metadata,
		ms:      opts.Job.MetadataStatus.Clone(),
	}
}

// Job returns the descriptor the runner mutates.
func (r *Runner) Job() *job.Job {
	return r.job
}

// Canceled reports whether cancellation was requested.
func (r *Runner) Canceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// Cancel requests cooperative cancellation. It never blocks; the terminal
// status surfaces through the update pump once the worker unwinds.
func (r *Runner) Cancel() {
	r.mu.Lock()
	r.canceled = true
	cancel := r.cancelFetch
	r.mu.Unlock()
	if cancel != nil {
		r.logger.Info("canceling running fetch")
		cancel()
	}
}

// Started reports whether Start has been invoked.
func (r *Runner) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Close releases the fetch context so a blocked worker can unwind.
func (r *Runner) Close() {
	r.mu.Lock()
	cancel := r.cancelFetch
	r.cancelFetch = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Start runs the job to completion, streaming normalized updates through
// the notifier. It returns once a terminal status is set on the job.
func (r *Runner) Start(ctx context.Context, notifier notify.Notifier) error {
	fetchCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.started = true
	r.cancelFetch = cancel
	r.mu.Unlock()

	r.job.Status = job.StatusPreparing
	notifier.Updated(ctx, r.job.Clone())
	r.logger.Info("starting fetch",
		logging.String(logging.FieldJobTitle, r.job.Title),
		logging.String(logging.FieldURL, r.job.URL),
	)

	go r.runFetch(fetchCtx)
	r.pump(ctx, notifier)
	return nil
}

// pump is the timeout-poll read loop: a read timeout is not an error, just
// another wait, so cancellation and stalls stay observable.
func (r *Runner) pump(ctx context.Context, notifier notify.Notifier) {
	for {
		select {
		case ev, ok := <-r.updates:
			if !ok {
				return
			}
			r.apply(ev)
			notifier.Updated(ctx, r.job.Clone())
			if ev.terminal {
				// Drain until close so the worker never blocks.
				for range r.updates {
				}
				return
			}
		case <-time.After(r.pollInterval):
			if r.Canceled() {
				continue
			}
		case <-ctx.Done():
			r.Close()
			for range r.updates {
			}
			if r.job.Status != job.StatusCanceled {
				r.job.SetFailed(ctx.Err().Error())
			}
			return
		}
	}
}

func (r *Runner) apply(ev event) {
	p := ev.progress

	if p.Filename != "" {
		if rel, err := filepath.Rel(r.downloadDir, p.Filename); err == nil {
			r.job.Filename = rel
		} else {
			r.job.Filename = p.Filename
		}
		if info, err := os.Stat(p.Filename); err == nil {
			r.job.Size = info.Size()
		}
	}
	if p.TmpFilename != "" {
		r.job.TmpFilename = p.TmpFilename
	}

	if ev.metadata != nil {
		r.job.Metadata = *ev.metadata
	}
	if ev.metadataStatus != nil {
		r.job.MetadataStatus = ev.metadataStatus
	}

	if ev.terminal {
		r.job.Status = ev.terminalStatus
		if ev.terminalStatus == job.StatusError && p.Msg != "" {
			r.job.Error = p.Msg
		}
		r.job.Msg = p.Msg
		if ev.terminalStatus == job.StatusFinished {
			r.logger.Info("fetch finished",
				logging.Int("metadata_completed", r.job.MetadataStatus.CompletedCount()),
				logging.Int("metadata_total", len(r.job.MetadataStatus)),
			)
		} else {
			r.logger.Warn("fetch ended",
				logging.String("status", string(ev.terminalStatus)),
				logging.String("msg", p.Msg),
			)
		}
		return
	}

	if status, ok := job.ParseStatus(p.Status); ok {
		r.job.Status = status
	} else if p.Status != "" {
		// Informational statuses such as cleaning counts pass through as
		// message-only updates.
		r.job.Msg = p.Msg
	}
	if p.Msg != "" {
		r.job.Msg = p.Msg
	}

	if p.DownloadedBytes > 0 {
		r.job.Status = job.StatusDownloading
		total := p.TotalBytes
		if total == 0 {
			total = p.TotalBytesEstimate
		}
		if total > 0 {
			percent := float64(p.DownloadedBytes) / float64(total) * 100
			r.job.SetProgress(percent, p.Speed, p.ETA)
			r.job.Msg = fmt.Sprintf("downloaded %s of %s (%s/s)",
				humanize.Bytes(uint64(p.DownloadedBytes)),
				humanize.Bytes(uint64(total)),
				humanize.Bytes(uint64(p.Speed)),
			)
		}
	}
}
