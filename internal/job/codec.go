package job

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// document is the self-describing persisted shape of a Job. It exists so
// the in-memory descriptor can evolve without leaking struct tags into the
// rest of the codebase.
type document struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	URL                string         `json:"url"`
	Quality            string         `json:"quality,omitempty"`
	Format             string         `json:"format,omitempty"`
	Folder             string         `json:"folder,omitempty"`
	CustomNamePrefix   string         `json:"custom_name_prefix,omitempty"`
	PlaylistStrictMode bool           `json:"playlist_strict_mode,omitempty"`
	PlaylistItemLimit  int            `json:"playlist_item_limit,omitempty"`
	PlaylistCount      int            `json:"playlist_count,omitempty"`
	PlaylistIndex      string         `json:"playlist_index,omitempty"`
	Status             string         `json:"status"`
	Error              string         `json:"error,omitempty"`
	Msg                string         `json:"msg,omitempty"`
	Percent            float64        `json:"percent,omitempty"`
	Speed              float64        `json:"speed,omitempty"`
	ETA                int64          `json:"eta,omitempty"`
	Size               int64          `json:"size,omitempty"`
	Filename           string         `json:"filename,omitempty"`
	TmpFilename        string         `json:"tmp_filename,omitempty"`
	Metadata           *Metadata      `json:"metadata,omitempty"`
	MetadataStatus     MetadataStatus `json:"metadata_status,omitempty"`
	CreatedTime        string         `json:"created_time"`
}

// MarshalJob encodes a job into its persisted JSON document.
func MarshalJob(j *Job) ([]byte, error) {
	if j == nil {
		return nil, fmt.Errorf("marshal job: nil job")
	}
	meta := j.Metadata
	doc := document{
		ID:                 j.ID,
		Title:              j.Title,
		URL:                j.URL,
		Quality:            j.Quality,
		Format:             j.Format,
		Folder:             j.Folder,
		CustomNamePrefix:   j.CustomNamePrefix,
		PlaylistStrictMode: j.PlaylistStrictMode,
		PlaylistItemLimit:  j.PlaylistItemLimit,
		PlaylistCount:      j.PlaylistCount,
		PlaylistIndex:      j.PlaylistIndex,
		Status:             string(j.Status),
		Error:              j.Error,
		Msg:                j.Msg,
		Percent:            j.Percent,
		Speed:              j.Speed,
		ETA:                j.ETA,
		Size:               j.Size,
		Filename:           j.Filename,
		TmpFilename:        j.TmpFilename,
		Metadata:           &meta,
		MetadataStatus:     j.MetadataStatus,
		CreatedTime:        j.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(doc)
}

// UnmarshalJob decodes a persisted document back into a Job. Missing
// optional fields are backfilled with factory defaults so records written
// by older versions stay loadable.
func UnmarshalJob(data []byte) (*Job, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode job document: %w", err)
	}
	if strings.TrimSpace(doc.ID) == "" {
		return nil, fmt.Errorf("decode job document: missing id")
	}

	status, ok := ParseStatus(doc.Status)
	if !ok {
		status = StatusPending
	}

	j := &Job{
		ID:                 doc.ID,
		Title:              doc.Title,
		URL:                doc.URL,
		Quality:            doc.Quality,
		Format:             doc.Format,
		Folder:             doc.Folder,
		CustomNamePrefix:   doc.CustomNamePrefix,
		PlaylistStrictMode: doc.PlaylistStrictMode,
		PlaylistItemLimit:  doc.PlaylistItemLimit,
		PlaylistCount:      doc.PlaylistCount,
		PlaylistIndex:      doc.PlaylistIndex,
		Status:             status,
		Error:              doc.Error,
		Msg:                doc.Msg,
		Percent:            doc.Percent,
		Speed:              doc.Speed,
		ETA:                doc.ETA,
		Size:               doc.Size,
		Filename:           doc.Filename,
		TmpFilename:        doc.TmpFilename,
		Metadata:           NewMetadata(),
		MetadataStatus:     NewMetadataStatus(),
	}
	if doc.Metadata != nil {
		j.Metadata = *doc.Metadata
		if j.Metadata.Transcript.Segments == nil {
			j.Metadata.Transcript.Segments = []TranscriptSegment{}
		}
		if j.Metadata.Transcript.Language == "" {
			j.Metadata.Transcript.Language = "en"
		}
		if j.Metadata.Files.Subtitles == nil {
			j.Metadata.Files.Subtitles = []string{}
		}
	}
	if doc.MetadataStatus != nil {
		status := NewMetadataStatus()
		for component, state := range doc.MetadataStatus {
			status[component] = state
		}
		j.MetadataStatus = status
	}

	if created, err := time.Parse(time.RFC3339Nano, doc.CreatedTime); err == nil {
		j.CreatedAt = created
	} else {
		j.CreatedAt = time.Now().UTC()
	}
	return j, nil
}
