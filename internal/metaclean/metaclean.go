// Package metaclean rewrites the raw info.json side-car documents the
// fetch engine leaves behind into a fixed, canonical shape. It runs after
// each successful fetch over the job's destination directory; per-file
// failures are logged and counted, never fatal to the scan.
package metaclean

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spool/internal/logging"
)

const (
	infoSuffix    = ".info.json"
	cleanedSuffix = ".cleaned.json"
)

// Stats summarizes one normalization pass.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
}

// Normalizer scans a directory tree for raw info.json documents.
type Normalizer struct {
	baseDir string
	logger  *slog.Logger
}

// New constructs a normalizer rooted at baseDir.
func New(baseDir string, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		baseDir: baseDir,
		logger:  logging.NewComponentLogger(logger, "metaclean"),
	}
}

// Process normalizes every *.info.json under the base directory.
func (n *Normalizer) Process(ctx context.Context) (Stats, error) {
	var stats Stats
	err := filepath.WalkDir(n.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(path, infoSuffix) {
			return nil
		}
		stats.Total++
		if procErr := n.processFile(path); procErr != nil {
			stats.Failed++
			n.logger.Warn("normalize side-car failed",
				logging.String("path", path),
				logging.Error(procErr),
			)
			return nil
		}
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (n *Normalizer) processFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	cleaned := cleanDocument(data)
	out, err := json.MarshalIndent(cleaned, "", "  ")
	if err != nil {
		return err
	}

	target := strings.TrimSuffix(path, infoSuffix) + cleanedSuffix
	return os.WriteFile(target, out, 0o644)
}

type cleanedDocument struct {
	VideoInfo     videoInfo     `json:"video_info"`
	ChannelInfo   channelInfo   `json:"channel_info"`
	PlaylistInfo  playlistInfo  `json:"playlist_info"`
	TechnicalInfo technicalInfo `json:"technical_info"`
	Metadata      provenance    `json:"metadata"`
}

type videoInfo struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Duration     string `json:"duration"`
	UploadDate   string `json:"upload_date"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
}

type channelInfo struct {
	Name            string `json:"name"`
	ID              string `json:"id"`
	SubscriberCount int64  `json:"subscriber_count"`
	URL             string `json:"url"`
}

type playlistInfo struct {
	Title    string `json:"title"`
	ID       string `json:"id"`
	Index    string `json:"index"`
	Uploader string `json:"uploader"`
}

type technicalInfo struct {
	Format        string `json:"format"`
	Ext           string `json:"ext"`
	Filesize      int64  `json:"filesize"`
	AudioChannels int64  `json:"audio_channels"`
}

type provenance struct {
	ProcessedDate string `json:"processed_date"`
	OriginalURL   string `json:"original_url"`
	WebpageURL    string `json:"webpage_url"`
	Extractor     string `json:"extractor"`
}

func cleanDocument(data map[string]any) cleanedDocument {
	return cleanedDocument{
		VideoInfo: videoInfo{
			Title:        stringField(data, "title"),
			Description:  stringField(data, "description"),
			Duration:     stringField(data, "duration_string"),
			UploadDate:   stringField(data, "upload_date"),
			ViewCount:    intField(data, "view_count"),
			LikeCount:    intField(data, "like_count"),
			CommentCount: intField(data, "comment_count"),
		},
		ChannelInfo: channelInfo{
			Name:            stringField(data, "channel"),
			ID:              stringField(data, "channel_id"),
			SubscriberCount: intField(data, "channel_follower_count"),
			URL:             stringField(data, "channel_url"),
		},
		PlaylistInfo: playlistInfo{
			Title:    stringField(data, "playlist_title"),
			ID:       stringField(data, "playlist_id"),
			Index:    stringField(data, "playlist_index"),
			Uploader: stringField(data, "playlist_uploader"),
		},
		TechnicalInfo: technicalInfo{
			Format:        stringField(data, "format"),
			Ext:           stringField(data, "ext"),
			Filesize:      intField(data, "filesize"),
			AudioChannels: intField(data, "audio_channels"),
		},
		Metadata: provenance{
			ProcessedDate: time.Now().UTC().Format(time.RFC3339),
			OriginalURL:   stringField(data, "original_url"),
			WebpageURL:    stringField(data, "webpage_url"),
			Extractor:     stringField(data, "extractor"),
		},
	}
}

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func intField(data map[string]any, key string) int64 {
	if v, ok := data[key].(float64); ok {
		return int64(v)
	}
	return 0
}
