package job

import (
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxPlaylistItems is the hard cap on playlist entries per job.
const MaxPlaylistItems = 1000

// Job is the durable descriptor for one fetch job.
type Job struct {
	ID               string
	Title            string
	URL              string
	Quality          string
	Format           string
	Folder           string
	CustomNamePrefix string

	PlaylistStrictMode bool
	PlaylistItemLimit  int
	PlaylistCount      int
	PlaylistIndex      string

	Status Status
	Error  string
	Msg    string

	// Progress fields, meaningful only while Status.IsActive().
	Percent float64
	Speed   float64
	ETA     int64
	Size    int64

	Filename    string
	TmpFilename string

	Metadata       Metadata
	MetadataStatus MetadataStatus

	CreatedAt time.Time
}

// Params carries the caller-supplied options for a new job.
type Params struct {
	ID                 string
	Title              string
	URL                string
	Quality            string
	Format             string
	Folder             string
	CustomNamePrefix   string
	PlaylistStrictMode bool
	PlaylistItemLimit  int
	Error              string
}

// New constructs a pending job. An empty ID gets a generated UUID; an empty
// title is derived from the URL slug.
func New(p Params) *Job {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = uuid.NewString()
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = DeriveTitle(p.URL)
	}
	limit := p.PlaylistItemLimit
	if limit < 0 {
		limit = 0
	}
	if limit > MaxPlaylistItems {
		limit = MaxPlaylistItems
	}
	return &Job{
		ID:                 id,
		Title:              title,
		URL:                p.URL,
		Quality:            p.Quality,
		Format:             p.Format,
		Folder:             p.Folder,
		CustomNamePrefix:   p.CustomNamePrefix,
		PlaylistStrictMode: p.PlaylistStrictMode,
		PlaylistItemLimit:  limit,
		Status:             StatusPending,
		Error:              p.Error,
		Metadata:           NewMetadata(),
		MetadataStatus:     NewMetadataStatus(),
		CreatedAt:          time.Now().UTC(),
	}
}

// DeriveTitle produces a display title from a URL's last path segment when
// the engine supplies none.
func DeriveTitle(rawURL string) string {
	if rawURL == "" {
		return "Untitled"
	}
	segment := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		trimmed := strings.Trim(parsed.Path, "/")
		if trimmed == "" {
			// Bare host, nothing to derive a title from.
			return "Untitled"
		}
		parts := strings.Split(trimmed, "/")
		segment = parts[len(parts)-1]
	}
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range segment {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled"
	}
	return cases.Title(language.Und).String(title)
}

// Clone returns a deep copy safe to hand to readers while the executor
// keeps mutating the original.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.MetadataStatus = j.MetadataStatus.Clone()
	cp.Metadata.Transcript.Segments = append([]TranscriptSegment(nil), j.Metadata.Transcript.Segments...)
	cp.Metadata.Files.Subtitles = append([]string(nil), j.Metadata.Files.Subtitles...)
	return &cp
}

// SetProgress updates the download progress fields together.
func (j *Job) SetProgress(percent, speed float64, eta int64) {
	j.Percent = percent
	j.Speed = speed
	j.ETA = eta
}

// SetFailed marks the job as failed with the given message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusError
	j.Error = message
	j.Msg = message
	j.Percent = 0
}
