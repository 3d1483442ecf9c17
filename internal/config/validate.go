package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.DownloadDir == "" {
		problems = append(problems, "paths.download_dir must be set")
	}
	if c.Paths.StateDir == "" {
		problems = append(problems, "paths.state_dir must be set")
	}
	if c.Paths.TempDir == "" {
		problems = append(problems, "paths.temp_dir must be set")
	}
	if c.Downloads.CreateCustomDirs && !c.Downloads.CustomDirs {
		problems = append(problems, "downloads.create_custom_dirs requires downloads.custom_dirs")
	}
	if c.Notifications.RequestTimeout < 0 {
		problems = append(problems, "notifications.request_timeout must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console or json)", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
