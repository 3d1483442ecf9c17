package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DownloadDir      string `toml:"download_dir"`
	AudioDownloadDir string `toml:"audio_download_dir"`
	TempDir          string `toml:"temp_dir"`
	StateDir         string `toml:"state_dir"`
	LogDir           string `toml:"log_dir"`
}

// Downloads contains output naming and destination-folder policy.
type Downloads struct {
	OutputTemplate         string `toml:"output_template"`
	OutputTemplateChapter  string `toml:"output_template_chapter"`
	OutputTemplatePlaylist string `toml:"output_template_playlist"`
	CustomDirs             bool   `toml:"custom_dirs"`
	CreateCustomDirs       bool   `toml:"create_custom_dirs"`
	DeleteFileOnClear      bool   `toml:"delete_file_on_clear"`
	SubtitleLanguage       string `toml:"subtitle_language"`
}

// Playlist contains playlist/channel expansion settings.
type Playlist struct {
	BatchSize         int `toml:"batch_size"`
	BatchPauseSeconds int `toml:"batch_pause_seconds"`
	ItemCap           int `toml:"item_cap"`
}

// Retry contains the bounded backoff applied to metadata side-car checks.
type Retry struct {
	MaxAttempts      int `toml:"max_attempts"`
	BaseDelaySeconds int `toml:"base_delay_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Scheduler contains timing for the single-consumer loop.
type Scheduler struct {
	ProgressPollSeconds int `toml:"progress_poll_seconds"`
	ErrorPauseSeconds   int `toml:"error_pause_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for spool.
//
// Configuration sections by subsystem:
//   - Paths: download, temp, state, and log directories
//   - Downloads: output templates and destination-folder policy
//   - Playlist: expansion batch size, pause, and item cap
//   - Retry: metadata side-car retry budget and backoff base
//   - Notifications: ntfy push notification settings
//   - Scheduler: loop timing knobs
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Downloads     Downloads     `toml:"downloads"`
	Playlist      Playlist      `toml:"playlist"`
	Retry         Retry         `toml:"retry"`
	Notifications Notifications `toml:"notifications"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/spool/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates every directory the daemon writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DownloadDir,
		c.Paths.AudioDownloadDir,
		c.Paths.TempDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// StateDBPath returns the location of the durable store database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.StateDir, "state.db")
}

// CreateSample writes the embedded sample configuration to path. An
// existing file is only replaced when overwrite is set.
func CreateSample(path string, overwrite bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil && !overwrite {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else if strings.HasPrefix(trimmed, "~/") {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", pathValue, err)
	}
	return abs, nil
}

// ExpandPath exposes tilde expansion for callers outside the package.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
