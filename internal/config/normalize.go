package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownloads()
	c.normalizePlaylist()
	c.normalizeRetry()
	c.normalizeScheduler()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"download_dir", &c.Paths.DownloadDir},
		{"audio_download_dir", &c.Paths.AudioDownloadDir},
		{"temp_dir", &c.Paths.TempDir},
		{"state_dir", &c.Paths.StateDir},
		{"log_dir", &c.Paths.LogDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(*field.value)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeDownloads() {
	c.Downloads.OutputTemplate = strings.TrimSpace(c.Downloads.OutputTemplate)
	if c.Downloads.OutputTemplate == "" {
		c.Downloads.OutputTemplate = defaultOutputTemplate
	}
	c.Downloads.OutputTemplateChapter = strings.TrimSpace(c.Downloads.OutputTemplateChapter)
	if c.Downloads.OutputTemplateChapter == "" {
		c.Downloads.OutputTemplateChapter = defaultOutputTemplateChapter
	}
	c.Downloads.OutputTemplatePlaylist = strings.TrimSpace(c.Downloads.OutputTemplatePlaylist)
	c.Downloads.SubtitleLanguage = strings.ToLower(strings.TrimSpace(c.Downloads.SubtitleLanguage))
	if c.Downloads.SubtitleLanguage == "" {
		c.Downloads.SubtitleLanguage = defaultSubtitleLanguage
	}
}

func (c *Config) normalizePlaylist() {
	if c.Playlist.BatchSize <= 0 {
		c.Playlist.BatchSize = defaultPlaylistBatchSize
	}
	if c.Playlist.BatchPauseSeconds < 0 {
		c.Playlist.BatchPauseSeconds = 0
	}
	if c.Playlist.ItemCap <= 0 || c.Playlist.ItemCap > defaultPlaylistItemCap {
		c.Playlist.ItemCap = defaultPlaylistItemCap
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.BaseDelaySeconds <= 0 {
		c.Retry.BaseDelaySeconds = defaultRetryBaseDelay
	}
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.ProgressPollSeconds <= 0 {
		c.Scheduler.ProgressPollSeconds = defaultProgressPollSeconds
	}
	if c.Scheduler.ErrorPauseSeconds <= 0 {
		c.Scheduler.ErrorPauseSeconds = defaultSchedulerErrorPause
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
