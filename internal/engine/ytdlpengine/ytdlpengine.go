// Package ytdlpengine adapts the ytdlp library to the engine contract.
// Classification stays shallow: playlist URLs are expanded through the
// library's flat listing, anything else is treated as a single video and
// resolved fully during the fetch itself.
package ytdlpengine

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ytget/ytdlp/v2"

	"spool/internal/engine"
)

// Engine implements engine.Engine on top of the ytdlp library.
type Engine struct{}

// New constructs the adapter.
func New() *Engine {
	return &Engine{}
}

// Classify resolves a URL without downloading.
func (e *Engine) Classify(ctx context.Context, rawURL string, opts engine.ClassifyOptions) (*engine.Entry, error) {
	playlistID := extractPlaylistID(rawURL)
	if playlistID != "" && !opts.StrictPlaylist {
		return e.classifyPlaylist(ctx, rawURL, playlistID, opts)
	}

	id := extractVideoID(rawURL)
	entry := &engine.Entry{
		Type: engine.TypeVideo,
		ID:   id,
		URL:  rawURL,
	}
	if id != "" {
		entry.WebpageURL = fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
	}
	return entry, nil
}

func (e *Engine) classifyPlaylist(ctx context.Context, rawURL, playlistID string, opts engine.ClassifyOptions) (*engine.Entry, error) {
	limit := opts.ItemLimit
	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, limit)
	if err != nil {
		return nil, engine.NewError("classify playlist", err.Error(), err)
	}

	entries := make([]*engine.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, &engine.Entry{
			Type:  engine.TypeVideo,
			ID:    item.VideoID,
			Title: item.Title,
			URL:   fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.VideoID),
		})
	}

	return &engine.Entry{
		Type:          engine.TypePlaylist,
		ID:            playlistID,
		URL:           rawURL,
		Entries:       entries,
		PlaylistID:    playlistID,
		PlaylistCount: len(entries),
	}, nil
}

func extractPlaylistID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("list")
}

func extractVideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if v := parsed.Query().Get("v"); v != "" {
		return v
	}
	// Short youtu.be links carry the id as the path.
	if strings.Contains(parsed.Host, "youtu.be") {
		return strings.Trim(parsed.Path, "/")
	}
	return ""
}
