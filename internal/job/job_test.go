package job_test

import (
	"strings"
	"testing"

	"spool/internal/job"
)

func TestNewGeneratesIDAndTitle(t *testing.T) {
	j := job.New(job.Params{URL: "https://example.com/some-great_video"})
	if j.ID == "" {
		t.Fatal("expected generated id")
	}
	if j.Status != job.StatusPending {
		t.Fatalf("expected pending status, got %s", j.Status)
	}
	if j.Title != "Some Great Video" {
		t.Fatalf("unexpected derived title: %q", j.Title)
	}
	if j.CreatedAt.IsZero() {
		t.Fatal("expected created time to be set")
	}
}

func TestNewKeepsExplicitValues(t *testing.T) {
	j := job.New(job.Params{ID: "abc123", Title: "My Title", URL: "https://example.com/x"})
	if j.ID != "abc123" || j.Title != "My Title" {
		t.Fatalf("explicit values replaced: %q %q", j.ID, j.Title)
	}
}

func TestDeriveTitleFallsBackToUntitled(t *testing.T) {
	for _, raw := range []string{"", "https://example.com/", "https://example.com", "///"} {
		if got := job.DeriveTitle(raw); got != "Untitled" {
			t.Fatalf("DeriveTitle(%q) = %q, want Untitled", raw, got)
		}
	}
	if got := job.DeriveTitle("https://youtu.be/first-take"); got != "First Take" {
		t.Fatalf("DeriveTitle(short link) = %q, want First Take", got)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := job.ParseStatus(" Downloading "); !ok || status != job.StatusDownloading {
		t.Fatalf("ParseStatus failed: %v %v", status, ok)
	}
	if _, ok := job.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestStatusClassification(t *testing.T) {
	for _, s := range []job.Status{job.StatusFinished, job.StatusError, job.StatusCanceled} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []job.Status{job.StatusPreparing, job.StatusDownloading} {
		if !s.IsActive() {
			t.Fatalf("%s should be active", s)
		}
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	// Progress fields carry no meaning outside preparing/downloading.
	for _, s := range []job.Status{job.StatusPending, job.StatusCleaning} {
		if s.IsActive() {
			t.Fatalf("%s should not be active", s)
		}
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	j := job.New(job.Params{ID: "a", Title: "t", URL: "u"})
	j.Metadata.Transcript.Segments = []job.TranscriptSegment{{Start: 1, End: 2, Text: "x"}}
	j.Metadata.Files.Subtitles = []string{"a.srt"}

	cp := j.Clone()
	cp.Metadata.Transcript.Segments[0].Text = "changed"
	cp.Metadata.Files.Subtitles[0] = "b.srt"
	cp.MetadataStatus.MarkCompleted("thumbnail")

	if j.Metadata.Transcript.Segments[0].Text != "x" {
		t.Fatal("transcript segments shared between clone and original")
	}
	if j.Metadata.Files.Subtitles[0] != "a.srt" {
		t.Fatal("subtitle slice shared between clone and original")
	}
	if j.MetadataStatus["thumbnail"].Status == job.ComponentCompleted {
		t.Fatal("metadata status map shared between clone and original")
	}
}

func TestMetadataStatusNeverRegresses(t *testing.T) {
	ms := job.NewMetadataStatus()
	ms.MarkCompleted("description")
	ms.MarkError("description", "late failure")
	if got := ms["description"]; got.Status != job.ComponentCompleted || got.Error != "" {
		t.Fatalf("completed component regressed: %+v", got)
	}

	ms.MarkError("thumbnail", "missing")
	ms.MarkCompleted("thumbnail")
	if got := ms["thumbnail"]; got.Status != job.ComponentError {
		t.Fatalf("errored component regressed: %+v", got)
	}

	ms.Reset("thumbnail")
	ms.MarkCompleted("thumbnail")
	if got := ms["thumbnail"]; got.Status != job.ComponentCompleted {
		t.Fatalf("reset did not reopen component: %+v", got)
	}
}

func TestNewMetadataDefaults(t *testing.T) {
	meta := job.NewMetadata()
	if meta.Transcript.Language != "en" {
		t.Fatalf("unexpected transcript language: %q", meta.Transcript.Language)
	}
	if meta.Transcript.Segments == nil || len(meta.Transcript.Segments) != 0 {
		t.Fatal("expected empty, non-nil segment slice")
	}
	if meta.Files.Subtitles == nil {
		t.Fatal("expected empty, non-nil subtitles slice")
	}
}

func TestComponentsOrder(t *testing.T) {
	got := strings.Join(job.Components(), ",")
	want := "description,thumbnail,info_json,subtitles,transcript"
	if got != want {
		t.Fatalf("unexpected component order: %s", got)
	}
}
