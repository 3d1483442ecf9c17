package ytdlpengine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"spool/internal/engine"
)

const progressInterval = 500 * time.Millisecond

// Fetch downloads the URL through the yt-dlp wrapper, streaming progress
// through req.OnProgress. The wrapper shells out to the yt-dlp binary, so
// it is kept in its own file away from the native classification side.
func (e *Engine) Fetch(ctx context.Context, req engine.FetchRequest) error {
	template := req.OutputTemplate
	if template == "" {
		template = "%(title)s.%(ext)s"
	}
	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Output(filepath.Join(req.DownloadDir, template))
	if req.Format != "" {
		dl = dl.Format(req.Format)
	}

	if req.OnProgress != nil {
		dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			req.OnProgress(translateProgress(update))
		})
	}

	result, err := dl.Run(ctx, req.URL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return engine.NewError("fetch", err.Error(), err)
	}

	if req.OnProgress != nil {
		final := engine.Progress{Status: "finished"}
		if result != nil {
			if info, infoErr := result.GetExtractedInfo(); infoErr == nil && len(info) > 0 && info[0].Filename != nil {
				final.Filename = *info[0].Filename
			}
		}
		req.OnProgress(final)
	}
	return nil
}

func translateProgress(update ytdlp.ProgressUpdate) engine.Progress {
	p := engine.Progress{
		Status:          "downloading",
		Filename:        update.Filename,
		TotalBytes:      int64(update.TotalBytes),
		DownloadedBytes: int64(update.DownloadedBytes),
	}
	if !update.Started.IsZero() {
		elapsed := time.Since(update.Started).Seconds()
		if elapsed > 0 {
			p.Speed = float64(update.DownloadedBytes) / elapsed
		}
	}
	if eta := update.ETA(); eta > 0 {
		p.ETA = int64(eta.Seconds())
	}
	return p
}
