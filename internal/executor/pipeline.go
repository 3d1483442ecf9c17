package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spool/internal/engine"
	"spool/internal/job"
	"spool/internal/logging"
	"spool/internal/metaclean"
	"spool/internal/transcript"
)

// collectMetadata runs the bounded-retry side-car pipeline once the final
// media path is known. Component failures degrade only that component's
// metadata status, never the job's terminal status.
func (r *Runner) collectMetadata(ctx context.Context, mediaPath string) {
	basePath := filepath.Dir(mediaPath)
	name := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))

	for _, subdir := range []string{"descriptions", "thumbnails", "metadata"} {
		if err := os.MkdirAll(filepath.Join(basePath, subdir), 0o755); err != nil {
			r.logger.Warn("create metadata subdirectory failed",
				logging.String("dir", subdir),
				logging.Error(err),
			)
		}
	}

	r.meta.Files.Audio = mediaPath

	sidecars := []struct {
		component string
		path      string
		record    func(path string)
	}{
		{job.ComponentDescription, filepath.Join(basePath, "descriptions", name+".txt"), func(p string) { r.meta.Files.Description = p }},
		{job.ComponentThumbnail, filepath.Join(basePath, "thumbnails", name+".jpg"), func(p string) { r.meta.Files.Thumbnail = p }},
		{job.ComponentInfoJSON, filepath.Join(basePath, "metadata", name+".info.json"), func(p string) { r.meta.Files.InfoJSON = p }},
	}
	for _, sc := range sidecars {
		r.checkComponent(ctx, sc.component, sc.path, sc.record)
	}

	srtPath := filepath.Join(basePath, fmt.Sprintf("%s.%s.srt", name, r.subtitleLang))
	r.checkComponent(ctx, job.ComponentSubtitles, srtPath, func(p string) {
		r.meta.Files.Subtitles = append(r.meta.Files.Subtitles, p)
	})
	if r.hasSubtitles() {
		r.extractTranscript(ctx, srtPath)
	} else {
		r.markError(job.ComponentTranscript, "no subtitle file to extract a transcript from")
		r.sendMetadata(ctx)
	}

	r.writeMetadataDocument(ctx, basePath)
}

// checkComponent verifies a side-car file exists, retrying on the policy's
// linear backoff; the engine may still be writing the file.
func (r *Runner) checkComponent(ctx context.Context, component, path string, record func(string)) {
	err := r.policy.Do(ctx, func() error {
		if _, statErr := os.Stat(path); statErr != nil {
			return fmt.Errorf("file not found: %s", path)
		}
		return nil
	}, func(attempt int, attemptErr error) {
		r.ms.SetRetries(component, attempt)
		r.logger.Debug("metadata component retry",
			logging.String("metadata_component", component),
			logging.Int("attempt", attempt),
			logging.Error(attemptErr),
		)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.markError(component, err.Error())
		r.sendMetadata(ctx)
		return
	}
	record(path)
	r.ms.MarkCompleted(component)
	r.logger.Debug("metadata component completed",
		logging.String("metadata_component", component),
		logging.String("path", path),
	)
	r.sendMetadata(ctx)
}

// extractTranscript parses the subtitle file into timed segments. An empty
// parse is retryable: the engine may not have flushed the file yet.
func (r *Runner) extractTranscript(ctx context.Context, srtPath string) {
	var segments []job.TranscriptSegment
	err := r.policy.Do(ctx, func() error {
		content, readErr := os.ReadFile(srtPath)
		if readErr != nil {
			return readErr
		}
		parsed := transcript.ParseSRT(string(content))
		if len(parsed) == 0 {
			return errors.New("no transcript content found")
		}
		segments = parsed
		return nil
	}, func(attempt int, attemptErr error) {
		r.ms.SetRetries(job.ComponentTranscript, attempt)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.markError(job.ComponentTranscript, err.Error())
		r.sendMetadata(ctx)
		return
	}
	r.meta.Transcript.Language = r.subtitleLang
	r.meta.Transcript.Segments = segments
	r.ms.MarkCompleted(job.ComponentTranscript)
	r.logger.Info("transcript extracted", logging.Int("segments", len(segments)))
	r.sendMetadata(ctx)
}

// writeMetadataDocument persists the consolidated metadata record next to
// the media file.
func (r *Runner) writeMetadataDocument(ctx context.Context, basePath string) {
	target := filepath.Join(basePath, "metadata.json")
	doc := struct {
		Metadata       job.Metadata       `json:"metadata"`
		MetadataStatus job.MetadataStatus `json:"metadata_status"`
	}{r.meta, r.ms}

	err := r.policy.Do(ctx, func() error {
		data, marshalErr := json.MarshalIndent(doc, "", "  ")
		if marshalErr != nil {
			return marshalErr
		}
		return os.WriteFile(target, data, 0o644)
	}, nil)
	if err != nil {
		r.logger.Warn("write consolidated metadata failed",
			logging.String("path", target),
			logging.Error(err),
		)
		return
	}
	r.logger.Debug("wrote consolidated metadata", logging.String("path", target))
}

// cleanSidecars runs the normalization collaborator over the destination
// directory. Failure downgrades to a warning message, not a job failure.
func (r *Runner) cleanSidecars(ctx context.Context) {
	stats, err := metaclean.New(r.downloadDir, r.logger).Process(ctx)
	if err != nil {
		r.send(ctx, event{progress: engine.Progress{
			Status: "warning",
			Msg:    fmt.Sprintf("fetch succeeded but side-car cleaning failed: %v", err),
		}})
		return
	}
	r.send(ctx, event{progress: engine.Progress{
		Status: string(job.StatusCleaning),
		Msg:    fmt.Sprintf("cleaned %d side-car files, %d failed", stats.Succeeded, stats.Failed),
	}})
}

func (r *Runner) hasSubtitles() bool {
	return len(r.meta.Files.Subtitles) > 0
}

func (r *Runner) markError(component, message string) {
	r.ms.MarkError(component, message)
	r.logger.Warn("metadata component failed",
		logging.String("metadata_component", component),
		logging.String("error", message),
	)
}

// sendMetadata pushes a snapshot of the worker-local metadata state.
func (r *Runner) sendMetadata(ctx context.Context) {
	meta := r.meta
	meta.Transcript.Segments = append([]job.TranscriptSegment(nil), r.meta.Transcript.Segments...)
	meta.Files.Subtitles = append([]string(nil), r.meta.Files.Subtitles...)
	r.send(ctx, event{metadata: &meta, metadataStatus: r.ms.Clone()})
}
