package engine

import (
	"context"
	"strings"
)

// EntryType tags a classification result.
type EntryType string

const (
	TypeVideo    EntryType = "video"
	TypePlaylist EntryType = "playlist"
	TypeURL      EntryType = "url"
)

// IsRedirect reports whether the type denotes a URL redirect. Engines emit
// variants such as "url" and "url_transparent", so this matches by prefix.
func (t EntryType) IsRedirect() bool {
	return strings.HasPrefix(string(t), string(TypeURL))
}

// LiveStatusUpcoming marks an entry for a stream that has not started yet.
const LiveStatusUpcoming = "is_upcoming"

// Entry is the engine's classification result for a URL.
type Entry struct {
	Type       EntryType
	ID         string
	Title      string
	URL        string
	WebpageURL string
	Uploader   string
	UploaderID string

	// Playlist fields, set when Type == TypePlaylist on the parent and
	// inherited by child entries during expansion.
	Entries          []*Entry
	PlaylistID       string
	PlaylistTitle    string
	PlaylistUploader string
	PlaylistIndex    string
	PlaylistCount    int

	LiveStatus       string
	ReleaseTimestamp int64

	Msg string
}

// ResolvedURL returns the canonical URL for fetching the entry.
func (e *Entry) ResolvedURL() string {
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	return e.URL
}

// IsResolvedVideo reports whether the entry can be enqueued as a single
// item: either a plain video, or a redirect that already carries an id and
// title (the engine resolved it without another round trip).
func (e *Entry) IsResolvedVideo() bool {
	if e.Type == TypeVideo {
		return true
	}
	return e.Type.IsRedirect() && e.ID != "" && e.Title != ""
}

// ClassifyOptions controls flat classification.
type ClassifyOptions struct {
	StrictPlaylist bool
	ItemLimit      int
}

// Progress is one normalized progress event from a running fetch.
type Progress struct {
	Status             string
	Msg                string
	Filename           string
	TmpFilename        string
	TotalBytes         int64
	TotalBytesEstimate int64
	DownloadedBytes    int64
	Speed              float64
	ETA                int64
}

// FetchRequest describes one fetch operation.
type FetchRequest struct {
	URL                string
	DownloadDir        string
	TempDir            string
	OutputTemplate     string
	Format             string
	Quality            string
	StrictPlaylist     bool
	PlaylistItemLimit  int
	SubtitleLanguage   string
	OnProgress         func(Progress)
}

// Engine is the black-box fetch/extraction collaborator.
type Engine interface {
	// Classify resolves a URL without downloading, in flat-listing mode.
	Classify(ctx context.Context, url string, opts ClassifyOptions) (*Entry, error)
	// Fetch downloads the URL, invoking OnProgress zero or more times.
	// A nil return means the engine-level fetch succeeded.
	Fetch(ctx context.Context, req FetchRequest) error
}
