package orchestrator_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"spool/internal/config"
	"spool/internal/engine"
	"spool/internal/job"
	"spool/internal/logging"
	"spool/internal/notify"
	"spool/internal/orchestrator"
	"spool/internal/store"
	"spool/internal/testsupport"
)

// fakeEngine scripts Classify and Fetch behavior per test.
type fakeEngine struct {
	mu          sync.Mutex
	classified  []string
	classifyFn  func(url string) (*engine.Entry, error)
	fetchFn     func(ctx context.Context, req engine.FetchRequest) error
	fetchCalled int
}

func (f *fakeEngine) Classify(_ context.Context, url string, _ engine.ClassifyOptions) (*engine.Entry, error) {
	f.mu.Lock()
	f.classified = append(f.classified, url)
	f.mu.Unlock()
	return f.classifyFn(url)
}

func (f *fakeEngine) Fetch(ctx context.Context, req engine.FetchRequest) error {
	f.mu.Lock()
	f.fetchCalled++
	fn := f.fetchFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, req)
}

func (f *fakeEngine) classifyCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.classified...)
}

func videoEntry(id, title string) *engine.Entry {
	return &engine.Entry{
		Type:  engine.TypeVideo,
		ID:    id,
		Title: title,
		URL:   "https://example.com/watch?v=" + id,
	}
}

// recorder captures notifier callbacks for assertions.
type recorder struct {
	mu        sync.Mutex
	added     []string
	canceled  []string
	cleared   []string
	completed chan *job.Job
}

func newRecorder() *recorder {
	return &recorder{completed: make(chan *job.Job, 16)}
}

func (r *recorder) Added(_ context.Context, j *job.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, j.ID)
}
func (r *recorder) Updated(context.Context, *job.Job) {}
func (r *recorder) Completed(_ context.Context, j *job.Job) {
	r.completed <- j
}
func (r *recorder) Canceled(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = append(r.canceled, id)
}
func (r *recorder) Cleared(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, id)
}

func (r *recorder) addedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.added...)
}

var _ notify.Notifier = (*recorder)(nil)

func newOrchestrator(t *testing.T, cfg *config.Config, eng engine.Engine, rec notify.Notifier) *orchestrator.Orchestrator {
	t.Helper()
	db := testsupport.MustOpenDB(t, cfg)
	orch, err := orchestrator.New(context.Background(), cfg, db, eng, rec, logging.NewNop())
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	return orch
}

func TestAddEnqueuesResolvedVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return videoEntry("vid1", "First Video"), nil
	}}
	rec := newRecorder()
	orch := newOrchestrator(t, cfg, eng, rec)

	res := orch.Add(context.Background(), orchestrator.Request{
		URL:       "https://example.com/watch?v=vid1",
		AutoStart: true,
	})
	if !res.OK() {
		t.Fatalf("Add failed: %+v", res)
	}
	got, ok := orch.Get("vid1")
	if !ok {
		t.Fatal("job not stored")
	}
	if got.Title != "First Video" || got.Status != job.StatusPending {
		t.Fatalf("unexpected job: %+v", got)
	}
	if ids := rec.addedIDs(); len(ids) != 1 || ids[0] != "vid1" {
		t.Fatalf("expected one added event, got %v", ids)
	}
}

func TestAddWithoutAutoStartGoesToPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return videoEntry("vid1", "First Video"), nil
	}}
	orch := newOrchestrator(t, cfg, eng, newRecorder())

	if res := orch.Add(context.Background(), orchestrator.Request{URL: "u"}); !res.OK() {
		t.Fatalf("Add failed: %+v", res)
	}
	active, _ := orch.Snapshot()
	if len(active) != 1 || active[0].Key != "vid1" {
		t.Fatalf("unexpected active set: %+v", active)
	}

	if res := orch.StartPending(context.Background(), []string{"vid1"}); !res.OK() {
		t.Fatalf("StartPending failed: %+v", res)
	}
}

func TestAddIsIdempotentPerVideoID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return videoEntry("vid1", "Same Video"), nil
	}}
	rec := newRecorder()
	orch := newOrchestrator(t, cfg, eng, rec)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if res := orch.Add(ctx, orchestrator.Request{URL: "u", AutoStart: true}); !res.OK() {
			t.Fatalf("Add %d failed: %+v", i, res)
		}
	}
	active, _ := orch.Snapshot()
	if len(active) != 1 {
		t.Fatalf("expected a single descriptor, got %d", len(active))
	}
	if ids := rec.addedIDs(); len(ids) != 1 {
		t.Fatalf("expected a single added event, got %v", ids)
	}
}

func TestAddRedirectRecursesOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{}
	eng.classifyFn = func(url string) (*engine.Entry, error) {
		if url == "https://short.example/x" {
			return &engine.Entry{Type: engine.TypeURL, URL: "https://example.com/watch?v=vid9"}, nil
		}
		return videoEntry("vid9", "Redirected"), nil
	}
	orch := newOrchestrator(t, cfg, eng, newRecorder())

	res := orch.Add(context.Background(), orchestrator.Request{URL: "https://short.example/x", AutoStart: true})
	if !res.OK() {
		t.Fatalf("Add failed: %+v", res)
	}
	if _, ok := orch.Get("vid9"); !ok {
		t.Fatal("redirected video not enqueued")
	}
	if calls := eng.classifyCalls(); len(calls) != 2 {
		t.Fatalf("expected 2 classify calls, got %v", calls)
	}
}

func TestAddRedirectCycleDegradesToNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{}
	eng.classifyFn = func(url string) (*engine.Entry, error) {
		// a -> b -> a
		if strings.HasSuffix(url, "/a") {
			return &engine.Entry{Type: engine.TypeURL, URL: "https://cycle.example/b"}, nil
		}
		return &engine.Entry{Type: engine.TypeURL, URL: "https://cycle.example/a"}, nil
	}
	orch := newOrchestrator(t, cfg, eng, newRecorder())

	res := orch.Add(context.Background(), orchestrator.Request{URL: "https://cycle.example/a", AutoStart: true})
	if !res.OK() {
		t.Fatalf("expected cycle to resolve as ok no-op, got %+v", res)
	}
	active, _ := orch.Snapshot()
	if len(active) != 0 {
		t.Fatalf("cycle should enqueue nothing, got %v", active)
	}
	if calls := eng.classifyCalls(); len(calls) != 2 {
		t.Fatalf("expected 2 classify calls before the guard fired, got %v", calls)
	}
}

func TestAddPlaylistZeroPadsIndices(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	children := make([]*engine.Entry, 12)
	for i := range children {
		children[i] = videoEntry(fmt.Sprintf("item%02d", i+1), fmt.Sprintf("Item %d", i+1))
	}
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return &engine.Entry{
			Type:     engine.TypePlaylist,
			ID:       "PL123",
			Title:    "My List",
			Uploader: "Lister",
			Entries:  children,
		}, nil
	}}
	orch := newOrchestrator(t, cfg, eng, newRecorder())

	res := orch.Add(context.Background(), orchestrator.Request{URL: "https://example.com/playlist?list=PL123", AutoStart: true})
	if !res.OK() {
		t.Fatalf("Add failed: %+v", res)
	}
	active, _ := orch.Snapshot()
	if len(active) != 12 {
		t.Fatalf("expected 12 jobs, got %d", len(active))
	}
	first, ok := orch.Get("item01")
	if !ok {
		t.Fatal("first playlist item missing")
	}
	if first.PlaylistIndex != "01" || first.PlaylistCount != 12 {
		t.Fatalf("unexpected index fields: index=%q count=%d", first.PlaylistIndex, first.PlaylistCount)
	}
	if first.Metadata.Playlist.ID != "PL123" || first.Metadata.Playlist.Title != "My List" {
		t.Fatalf("playlist metadata not inherited: %+v", first.Metadata.Playlist)
	}
	last, _ := orch.Get("item12")
	if last == nil || last.PlaylistIndex != "12" {
		t.Fatalf("unexpected last index: %+v", last)
	}
}

func TestAddPlaylistAggregatesChildFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return &engine.Entry{
			Type:  engine.TypePlaylist,
			ID:    "PL1",
			Title: "Mixed",
			Entries: []*engine.Entry{
				videoEntry("ok1", "Fine"),
				{Type: engine.TypeVideo, ID: "bad1", Title: "Upcoming", LiveStatus: engine.LiveStatusUpcoming},
				videoEntry("ok2", "Also Fine"),
			},
		}, nil
	}}
	orch := newOrchestrator(t, cfg, eng, newRecorder())

	res := orch.Add(context.Background(), orchestrator.Request{URL: "u", AutoStart: true})
	if res.OK() {
		t.Fatalf("expected aggregated error, got %+v", res)
	}
	if !strings.Contains(res.Msg, "live stream") {
		t.Fatalf("expected the child failure message, got %q", res.Msg)
	}
	active, _ := orch.Snapshot()
	if len(active) != 2 {
		t.Fatalf("successful children should still be enqueued, got %d", len(active))
	}
}

func TestAddUpcomingLive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	release := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return &engine.Entry{
			Type:             engine.TypeVideo,
			ID:               "live1",
			Title:            "Premiere",
			LiveStatus:       engine.LiveStatusUpcoming,
			ReleaseTimestamp: release.Unix(),
		}, nil
	}}
	orch := newOrchestrator(t, cfg, eng, newRecorder())

	res := orch.Add(context.Background(), orchestrator.Request{URL: "u", AutoStart: true})
	if res.OK() {
		t.Fatal("expected upcoming live add to fail")
	}
	if !strings.Contains(res.Msg, "2026-09-01T18:00:00Z") {
		t.Fatalf("expected scheduled start in message, got %q", res.Msg)
	}
}

func TestAddUnsupportedType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return &engine.Entry{Type: "gallery"}, nil
	}}
	orch := newOrchestrator(t, cfg, eng, newRecorder())

	res := orch.Add(context.Background(), orchestrator.Request{URL: "u", AutoStart: true})
	if res.OK() || !strings.Contains(res.Msg, "gallery") {
		t.Fatalf("expected unsupported type error, got %+v", res)
	}
}

func TestShorthandURLsExpand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return videoEntry("vid1", "From Channel"), nil
	}}
	orch := newOrchestrator(t, cfg, eng, newRecorder())

	ctx := context.Background()
	orch.Add(ctx, orchestrator.Request{URL: "UCdead00beef112233445566", AutoStart: true})
	orch.Add(ctx, orchestrator.Request{URL: "@somecreator", AutoStart: true})

	calls := eng.classifyCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 classify calls, got %v", calls)
	}
	if calls[0] != "https://www.youtube.com/channel/UCdead00beef112233445566" {
		t.Fatalf("channel shorthand not expanded: %q", calls[0])
	}
	if calls[1] != "https://www.youtube.com/@somecreator" {
		t.Fatalf("handle shorthand not expanded: %q", calls[1])
	}
}

func TestAddCustomFolderPolicy(t *testing.T) {
	ctx := context.Background()
	eng := func() *fakeEngine {
		return &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
			return videoEntry("vid1", "Foldered"), nil
		}}
	}

	t.Run("disabled", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		orch := newOrchestrator(t, cfg, eng(), newRecorder())
		res := orch.Add(ctx, orchestrator.Request{URL: "u", Folder: "music", AutoStart: true})
		if res.OK() || !strings.Contains(res.Msg, "disabled") {
			t.Fatalf("expected custom-dirs validation error, got %+v", res)
		}
	})

	t.Run("traversal", func(t *testing.T) {
		cfg := testsupport.NewConfig(t, testsupport.WithCustomDirs(true))
		orch := newOrchestrator(t, cfg, eng(), newRecorder())
		res := orch.Add(ctx, orchestrator.Request{URL: "u", Folder: "../escape", AutoStart: true})
		if res.OK() || !strings.Contains(res.Msg, "escapes") {
			t.Fatalf("expected traversal rejection, got %+v", res)
		}
	})

	t.Run("created on demand", func(t *testing.T) {
		cfg := testsupport.NewConfig(t, testsupport.WithCustomDirs(true))
		orch := newOrchestrator(t, cfg, eng(), newRecorder())
		res := orch.Add(ctx, orchestrator.Request{URL: "u", Folder: "music", AutoStart: true})
		if !res.OK() {
			t.Fatalf("Add failed: %+v", res)
		}
		if _, err := os.Stat(filepath.Join(cfg.Paths.DownloadDir, "music")); err != nil {
			t.Fatalf("folder not created: %v", err)
		}
	})

	t.Run("missing without create", func(t *testing.T) {
		cfg := testsupport.NewConfig(t, testsupport.WithCustomDirs(false))
		orch := newOrchestrator(t, cfg, eng(), newRecorder())
		res := orch.Add(ctx, orchestrator.Request{URL: "u", Folder: "music", AutoStart: true})
		if res.OK() || !strings.Contains(res.Msg, "creation is disabled") {
			t.Fatalf("expected creation-disabled error, got %+v", res)
		}
	})
}

func TestCancelQueuedJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) {
		return videoEntry("vid1", "Queued"), nil
	}}
	rec := newRecorder()
	orch := newOrchestrator(t, cfg, eng, rec)

	ctx := context.Background()
	orch.Add(ctx, orchestrator.Request{URL: "u", AutoStart: true})
	if res := orch.Cancel(ctx, []string{"vid1", "ghost"}); !res.OK() {
		t.Fatalf("Cancel failed: %+v", res)
	}
	if _, ok := orch.Get("vid1"); ok {
		t.Fatal("canceled job still stored")
	}
	rec.mu.Lock()
	canceled := append([]string(nil), rec.canceled...)
	rec.mu.Unlock()
	if len(canceled) != 1 || canceled[0] != "vid1" {
		t.Fatalf("expected one canceled event for vid1, got %v", canceled)
	}
}

func TestClearRemovesDoneAndOptionallyDeletesFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeleteFileOnClear())
	db := testsupport.MustOpenDB(t, cfg)
	done := testsupport.MustBucket(t, db, store.BucketDone)

	ctx := context.Background()
	j := testsupport.NewJob(t, "done1", "Done", "u")
	j.Status = job.StatusFinished
	j.Filename = "Done.m4a"
	if err := done.Put(ctx, j.ID, j); err != nil {
		t.Fatalf("seed done store: %v", err)
	}
	mediaPath := filepath.Join(cfg.Paths.DownloadDir, "Done.m4a")
	testsupport.WriteFile(t, mediaPath, "data")

	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) { return nil, nil }}
	rec := newRecorder()
	orch, err := orchestrator.New(ctx, cfg, db, eng, rec, logging.NewNop())
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}

	if res := orch.Clear(ctx, []string{"done1"}); !res.OK() {
		t.Fatalf("Clear failed: %+v", res)
	}
	if _, ok := orch.Get("done1"); ok {
		t.Fatal("cleared job still stored")
	}
	if _, err := os.Stat(mediaPath); !os.IsNotExist(err) {
		t.Fatalf("expected media file deleted, stat err=%v", err)
	}
	rec.mu.Lock()
	cleared := append([]string(nil), rec.cleared...)
	rec.mu.Unlock()
	if len(cleared) != 1 || cleared[0] != "done1" {
		t.Fatalf("expected one cleared event, got %v", cleared)
	}
}

func TestInterruptedQueueJobsReimportAsPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	ctx := context.Background()
	queue := testsupport.MustBucket(t, db, store.BucketQueue)

	j := testsupport.NewJob(t, "stale1", "Interrupted", "u")
	j.Status = job.StatusDownloading
	j.Percent = 42
	if err := queue.Put(ctx, j.ID, j); err != nil {
		t.Fatalf("seed queue: %v", err)
	}

	eng := &fakeEngine{classifyFn: func(string) (*engine.Entry, error) { return nil, nil }}
	rec := newRecorder()
	orch, err := orchestrator.New(ctx, cfg, db, eng, rec, logging.NewNop())
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}

	got, ok := orch.Get("stale1")
	if !ok {
		t.Fatal("interrupted job missing after re-import")
	}
	if got.Status != job.StatusPending || got.Percent != 0 {
		t.Fatalf("job not reset: %+v", got)
	}
	if queue.Exists("stale1") {
		t.Fatal("job left in queue bucket")
	}
	if ids := rec.addedIDs(); len(ids) != 1 || ids[0] != "stale1" {
		t.Fatalf("expected added event for re-import, got %v", ids)
	}
}

func TestSnapshotNeverShowsJobInBothActiveBuckets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := &fakeEngine{classifyFn: func(url string) (*engine.Entry, error) {
		id := url[strings.LastIndex(url, "=")+1:]
		return videoEntry(id, "Video "+id), nil
	}}
	orch := newOrchestrator(t, cfg, eng, newRecorder())
	ctx := context.Background()

	var ids []string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("vid%d", i)
		ids = append(ids, id)
		res := orch.Add(ctx, orchestrator.Request{URL: "https://example.com/watch?v=" + id})
		if !res.OK() {
			t.Fatalf("add %s: %s", id, res.Msg)
		}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, id := range ids {
			orch.StartPending(ctx, []string{id})
		}
		close(stop)
	}()

	for {
		active, _ := orch.Snapshot()
		seen := make(map[string]int, len(active))
		for _, pair := range active {
			seen[pair.Key]++
			if seen[pair.Key] > 1 {
				t.Fatalf("job %s visible in two active buckets", pair.Key)
			}
		}
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
	}
}
