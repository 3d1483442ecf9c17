package orchestrator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"spool/internal/job"
	"spool/internal/textutil"
)

// audioFormats are the container formats that route into the audio
// download directory even when quality is not "audio".
var audioFormats = map[string]struct{}{
	"m4a":  {},
	"mp3":  {},
	"opus": {},
	"wav":  {},
	"flac": {},
}

func isAudio(quality, format string) bool {
	if quality == "audio" {
		return true
	}
	_, ok := audioFormats[format]
	return ok
}

// downloadDir resolves the destination directory for a job. Audio jobs
// prefer the audio download dir when one is configured. A custom folder
// must be enabled in the config, must stay inside the base directory
// after cleaning, and is created on demand only when create_custom_dirs
// allows it.
func (o *Orchestrator) downloadDir(quality, format, folder string) (string, error) {
	base := o.cfg.Paths.DownloadDir
	if isAudio(quality, format) && o.cfg.Paths.AudioDownloadDir != "" {
		base = o.cfg.Paths.AudioDownloadDir
	}
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return base, nil
	}
	if !o.cfg.Downloads.CustomDirs {
		return "", wrap(ErrValidation, "add",
			fmt.Sprintf("folder %q requested but custom directories are disabled", folder), nil)
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", wrap(ErrValidation, "add", "resolve download dir", err)
	}
	dir := filepath.Clean(filepath.Join(absBase, folder))
	if dir != absBase && !strings.HasPrefix(dir, absBase+string(os.PathSeparator)) {
		return "", wrap(ErrValidation, "add",
			fmt.Sprintf("folder %q escapes the download directory", folder), nil)
	}

	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", wrap(ErrValidation, "add", "inspect custom folder", err)
		}
		if !o.cfg.Downloads.CreateCustomDirs {
			return "", wrap(ErrValidation, "add",
				fmt.Sprintf("folder %q does not exist and creation is disabled", folder), nil)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", wrap(ErrValidation, "add", "create custom folder", err)
		}
	}
	return dir, nil
}

// outputTemplate picks the filename template for a job: the playlist
// template when the job came out of a playlist expansion, otherwise the
// default, with the custom name prefix prepended when set.
func (o *Orchestrator) outputTemplate(j *job.Job) string {
	tmpl := o.cfg.Downloads.OutputTemplate
	if j.PlaylistIndex != "" && o.cfg.Downloads.OutputTemplatePlaylist != "" {
		tmpl = o.cfg.Downloads.OutputTemplatePlaylist
	}
	if prefix := textutil.SanitizeFileName(j.CustomNamePrefix); prefix != "" {
		tmpl = prefix + "." + tmpl
	}
	return tmpl
}
