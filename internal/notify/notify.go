package notify

import (
	"context"
	"log/slog"

	"spool/internal/job"
	"spool/internal/logging"
)

// Notifier receives job lifecycle events. Added, Completed, Canceled, and
// Cleared fire exactly once per job id; Updated may fire many times.
type Notifier interface {
	Added(ctx context.Context, j *job.Job)
	Updated(ctx context.Context, j *job.Job)
	Completed(ctx context.Context, j *job.Job)
	Canceled(ctx context.Context, id string)
	Cleared(ctx context.Context, id string)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Added(context.Context, *job.Job)     {}
func (Nop) Updated(context.Context, *job.Job)   {}
func (Nop) Completed(context.Context, *job.Job) {}
func (Nop) Canceled(context.Context, string)    {}
func (Nop) Cleared(context.Context, string)     {}

// Log records lifecycle events on the structured logger. Progress updates
// log at debug so steady-state output stays readable.
type Log struct {
	logger *slog.Logger
}

// NewLog constructs a logging notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logging.NewComponentLogger(logger, "notify")}
}

func (l *Log) Added(ctx context.Context, j *job.Job) {
	l.logger.Info("job added",
		logging.String(logging.FieldJobID, j.ID),
		logging.String(logging.FieldJobTitle, j.Title),
		logging.String(logging.FieldURL, j.URL),
	)
}

func (l *Log) Updated(ctx context.Context, j *job.Job) {
	l.logger.Debug("job updated",
		logging.String(logging.FieldJobID, j.ID),
		logging.String("status", string(j.Status)),
		logging.Float64("percent", j.Percent),
	)
}

func (l *Log) Completed(ctx context.Context, j *job.Job) {
	if j.Status == job.StatusFinished {
		l.logger.Info("job completed",
			logging.String(logging.FieldJobID, j.ID),
			logging.String(logging.FieldJobTitle, j.Title),
		)
		return
	}
	l.logger.Warn("job completed with errors",
		logging.String(logging.FieldJobID, j.ID),
		logging.String(logging.FieldJobTitle, j.Title),
		logging.String("status", string(j.Status)),
		logging.String("error", j.Error),
	)
}

func (l *Log) Canceled(ctx context.Context, id string) {
	l.logger.Info("job canceled", logging.String(logging.FieldJobID, id))
}

func (l *Log) Cleared(ctx context.Context, id string) {
	l.logger.Info("job cleared", logging.String(logging.FieldJobID, id))
}

// Multi fans events out to several notifiers in order.
type Multi []Notifier

func (m Multi) Added(ctx context.Context, j *job.Job) {
	for _, n := range m {
		n.Added(ctx, j)
	}
}

func (m Multi) Updated(ctx context.Context, j *job.Job) {
	for _, n := range m {
		n.Updated(ctx, j)
	}
}

func (m Multi) Completed(ctx context.Context, j *job.Job) {
	for _, n := range m {
		n.Completed(ctx, j)
	}
}

func (m Multi) Canceled(ctx context.Context, id string) {
	for _, n := range m {
		n.Canceled(ctx, id)
	}
}

func (m Multi) Cleared(ctx context.Context, id string) {
	for _, n := range m {
		n.Cleared(ctx, id)
	}
}
