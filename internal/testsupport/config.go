package testsupport

import (
	"path/filepath"
	"testing"

	"spool/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.AudioDownloadDir = filepath.Join(base, "audio")
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Playlist.BatchPauseSeconds = 0
	cfg.Retry.BaseDelaySeconds = 0
	cfg.Scheduler.ErrorPauseSeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithCustomDirs enables custom folder handling on the test config.
func WithCustomDirs(create bool) ConfigOption {
	return func(c *config.Config) {
		c.Downloads.CustomDirs = true
		c.Downloads.CreateCustomDirs = create
	}
}

// WithDeleteFileOnClear makes Clear remove downloaded files.
func WithDeleteFileOnClear() ConfigOption {
	return func(c *config.Config) {
		c.Downloads.DeleteFileOnClear = true
	}
}
