package executor

import (
	"context"
	"errors"
	"fmt"

	"spool/internal/engine"
	"spool/internal/job"
	"spool/internal/logging"
)

// runFetch is the isolated execution context for one fetch. It owns no
// descriptor state: everything flows back through the update channel.
func (r *Runner) runFetch(ctx context.Context) {
	defer close(r.updates)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("fetch worker panicked", logging.Any("panic", rec))
			r.send(ctx, event{
				progress:       engine.Progress{Status: string(job.StatusError), Msg: fmt.Sprintf("internal error: %v", rec)},
				terminal:       true,
				terminalStatus: job.StatusError,
			})
		}
	}()

	var mediaPath string

	req := engine.FetchRequest{
		URL:               r.job.URL,
		DownloadDir:       r.downloadDir,
		TempDir:           r.tempDir,
		OutputTemplate:    r.outputTemplate,
		Format:            r.job.Format,
		Quality:           r.job.Quality,
		StrictPlaylist:    r.job.PlaylistStrictMode,
		PlaylistItemLimit: r.job.PlaylistItemLimit,
		SubtitleLanguage:  r.subtitleLang,
		OnProgress: func(p engine.Progress) {
			if p.Filename != "" {
				mediaPath = p.Filename
			}
			r.send(ctx, event{progress: p})
		},
	}

	err := r.eng.Fetch(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || r.Canceled() {
			r.send(ctx, event{terminal: true, terminalStatus: job.StatusCanceled})
			return
		}
		var engErr *engine.Error
		msg := err.Error()
		if errors.As(err, &engErr) {
			msg = engErr.Error()
		}
		r.send(ctx, event{
			progress:       engine.Progress{Status: string(job.StatusError), Msg: msg},
			terminal:       true,
			terminalStatus: job.StatusError,
		})
		return
	}

	if r.Canceled() {
		r.send(ctx, event{terminal: true, terminalStatus: job.StatusCanceled})
		return
	}

	// The fetch succeeded; metadata collection is best-effort and never
	// flips the terminal status away from finished.
	if mediaPath != "" {
		r.collectMetadata(ctx, mediaPath)
	}
	r.cleanSidecars(ctx)

	r.send(ctx, event{terminal: true, terminalStatus: job.StatusFinished})
}

// send forwards an event without wedging a canceled worker on a full
// channel.
func (r *Runner) send(ctx context.Context, ev event) {
	select {
	case r.updates <- ev:
	case <-ctx.Done():
		if ev.terminal {
			// A terminal event must not be lost; the pump drains the
			// buffered channel before exiting.
			select {
			case r.updates <- ev:
			default:
			}
		}
	}
}
