package config

const (
	defaultDownloadDir      = "~/downloads"
	defaultAudioDownloadDir = "~/downloads/audio"
	defaultTempDir          = "~/.local/share/spool/tmp"
	defaultStateDir         = "~/.local/share/spool/state"
	defaultLogDir           = "~/.local/share/spool/logs"

	defaultOutputTemplate         = "%(title)s.%(ext)s"
	defaultOutputTemplateChapter  = "%(title)s - %(section_number)s %(section_title)s.%(ext)s"
	defaultOutputTemplatePlaylist = "%(playlist_title)s/%(playlist_index)s - %(title)s.%(ext)s"
	defaultSubtitleLanguage       = "en"

	defaultPlaylistBatchSize    = 50
	defaultPlaylistBatchPause   = 10
	defaultPlaylistItemCap      = 1000
	defaultRetryMaxAttempts     = 3
	defaultRetryBaseDelay       = 1
	defaultNotifyTimeout        = 10
	defaultProgressPollSeconds  = 1
	defaultSchedulerErrorPause  = 5
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir:      defaultDownloadDir,
			AudioDownloadDir: defaultAudioDownloadDir,
			TempDir:          defaultTempDir,
			StateDir:         defaultStateDir,
			LogDir:           defaultLogDir,
		},
		Downloads: Downloads{
			OutputTemplate:         defaultOutputTemplate,
			OutputTemplateChapter:  defaultOutputTemplateChapter,
			OutputTemplatePlaylist: defaultOutputTemplatePlaylist,
			SubtitleLanguage:       defaultSubtitleLanguage,
		},
		Playlist: Playlist{
			BatchSize:         defaultPlaylistBatchSize,
			BatchPauseSeconds: defaultPlaylistBatchPause,
			ItemCap:           defaultPlaylistItemCap,
		},
		Retry: Retry{
			MaxAttempts:      defaultRetryMaxAttempts,
			BaseDelaySeconds: defaultRetryBaseDelay,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Scheduler: Scheduler{
			ProgressPollSeconds: defaultProgressPollSeconds,
			ErrorPauseSeconds:   defaultSchedulerErrorPause,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
