package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"spool/internal/engine"
	"spool/internal/job"
	"spool/internal/logging"
)

// Request carries one add invocation: the URL plus the per-job options
// every descriptor expanded from it inherits.
type Request struct {
	URL                string
	Quality            string
	Format             string
	Folder             string
	CustomNamePrefix   string
	PlaylistStrictMode bool
	PlaylistItemLimit  int
	// AutoStart enqueues directly into the queue; otherwise the job
	// waits in pending until StartPending releases it.
	AutoStart bool
}

var (
	channelIDPattern = regexp.MustCompile(`^UC[\w-]{22}$`)
	handlePattern    = regexp.MustCompile(`^@[\w.-]+$`)
)

// normalizeURL expands bare channel-id and @handle shorthands into full
// URLs the engine can classify. Anything else passes through untouched.
func normalizeURL(url string) string {
	switch {
	case channelIDPattern.MatchString(url):
		return "https://www.youtube.com/channel/" + url
	case handlePattern.MatchString(url):
		return "https://www.youtube.com/" + url
	default:
		return url
	}
}

// Add classifies a URL and enqueues one job per resolved video. Playlists
// expand into individual jobs; redirects recurse with a visited set so a
// redirect cycle degrades to a no-op instead of looping. The result is
// synchronous: jobs are durably stored before Add returns.
func (o *Orchestrator) Add(ctx context.Context, req Request) Result {
	url := normalizeURL(strings.TrimSpace(req.URL))
	if url == "" {
		return errorResult("no URL given")
	}
	o.logger.Info("adding url",
		logging.String(logging.FieldURL, url),
		logging.Bool("auto_start", req.AutoStart))
	return o.add(ctx, url, req, map[string]struct{}{})
}

func (o *Orchestrator) add(ctx context.Context, url string, req Request, visited map[string]struct{}) Result {
	if _, seen := visited[url]; seen {
		o.logger.Debug("skipping already visited url", logging.String(logging.FieldURL, url))
		return okResult()
	}
	visited[url] = struct{}{}

	entry, err := o.eng.Classify(ctx, url, engine.ClassifyOptions{
		StrictPlaylist: req.PlaylistStrictMode,
		ItemLimit:      req.PlaylistItemLimit,
	})
	if err != nil {
		return errorResult(err.Error())
	}
	return o.addEntry(ctx, entry, req, visited)
}

func (o *Orchestrator) addEntry(ctx context.Context, entry *engine.Entry, req Request, visited map[string]struct{}) Result {
	if entry == nil {
		return errorResult("classification returned no data")
	}
	if entry.LiveStatus == engine.LiveStatusUpcoming {
		msg := "live stream has not started yet"
		if entry.ReleaseTimestamp > 0 {
			msg = fmt.Sprintf("live stream is scheduled to start at %s",
				time.Unix(entry.ReleaseTimestamp, 0).UTC().Format(time.RFC3339))
		}
		return errorResult(msg)
	}

	switch {
	case entry.Type == engine.TypePlaylist:
		return o.expandPlaylist(ctx, entry, req, visited)
	case entry.IsResolvedVideo():
		return o.enqueueVideo(ctx, entry, req)
	case entry.Type.IsRedirect():
		return o.add(ctx, entry.ResolvedURL(), req, visited)
	default:
		return errorResult(wrap(ErrUnsupported, "add",
			fmt.Sprintf("cannot handle entry of type %q", entry.Type), nil).Error())
	}
}

// expandPlaylist turns every child entry into its own add, in playlist
// order, pausing between batches so very large playlists do not hammer
// the extractor. Each success is visible (and schedulable) immediately;
// failures are collected into one aggregated error result.
func (o *Orchestrator) expandPlaylist(ctx context.Context, entry *engine.Entry, req Request, visited map[string]struct{}) Result {
	entries := entry.Entries
	if lim := o.cfg.Playlist.ItemCap; lim > 0 && len(entries) > lim {
		o.logger.Warn("truncating playlist",
			logging.String(logging.FieldJobTitle, entry.Title),
			logging.Int("items", len(entries)),
			logging.Int("cap", lim))
		entries = entries[:lim]
	}
	if limit := req.PlaylistItemLimit; limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	total := len(entries)
	digits := len(strconv.Itoa(total))
	batch := o.cfg.Playlist.BatchSize
	pause := time.Duration(o.cfg.Playlist.BatchPauseSeconds) * time.Second

	o.logger.Info("expanding playlist",
		logging.String(logging.FieldJobTitle, entry.Title),
		logging.Int("items", total))

	results := make([]Result, 0, total)
	for i, child := range entries {
		if i > 0 && batch > 0 && i%batch == 0 && pause > 0 {
			select {
			case <-ctx.Done():
				results = append(results, errorResult(ctx.Err().Error()))
				return mergeResults(results)
			case <-time.After(pause):
			}
		}
		if child == nil {
			continue
		}
		if child.Type == "" {
			child.Type = engine.TypeVideo
		}
		if child.PlaylistID == "" {
			child.PlaylistID = entry.ID
		}
		if child.PlaylistTitle == "" {
			child.PlaylistTitle = entry.Title
		}
		if child.PlaylistUploader == "" {
			child.PlaylistUploader = entry.Uploader
		}
		child.PlaylistIndex = fmt.Sprintf("%0*d", digits, i+1)
		child.PlaylistCount = total
		results = append(results, o.addEntry(ctx, child, req, visited))
	}
	return mergeResults(results)
}

// enqueueVideo persists one resolved video as a job descriptor. An id
// already present in an active store is ignored so repeated adds of the
// same video keep a single descriptor.
func (o *Orchestrator) enqueueVideo(ctx context.Context, entry *engine.Entry, req Request) Result {
	id := strings.TrimSpace(entry.ID)
	if id != "" && (o.queue.Exists(id) || o.pending.Exists(id)) {
		o.logger.Debug("ignoring duplicate add",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldJobTitle, entry.Title))
		return okResult()
	}

	// Resolve the destination up front so folder problems surface as a
	// synchronous error rather than a failed download later.
	if _, err := o.downloadDir(req.Quality, req.Format, req.Folder); err != nil {
		return errorResult(err.Error())
	}

	j := job.New(job.Params{
		ID:                 id,
		Title:              entry.Title,
		URL:                entry.ResolvedURL(),
		Quality:            req.Quality,
		Format:             req.Format,
		Folder:             req.Folder,
		CustomNamePrefix:   req.CustomNamePrefix,
		PlaylistStrictMode: req.PlaylistStrictMode,
		PlaylistItemLimit:  req.PlaylistItemLimit,
		Error:              entry.Msg,
	})
	j.PlaylistCount = entry.PlaylistCount
	j.PlaylistIndex = entry.PlaylistIndex
	j.Metadata.Channel = job.ChannelMeta{ID: entry.UploaderID, Name: entry.Uploader}
	j.Metadata.Playlist = job.PlaylistMeta{
		ID:    entry.PlaylistID,
		Title: entry.PlaylistTitle,
		Index: entry.PlaylistIndex,
	}

	o.mu.Lock()
	target := o.pending
	if req.AutoStart {
		target = o.queue
	}
	err := target.Put(ctx, j.ID, j)
	o.mu.Unlock()
	if err != nil {
		return errorResult(err.Error())
	}

	o.logger.Info("job added",
		logging.String(logging.FieldJobID, j.ID),
		logging.String(logging.FieldJobTitle, j.Title))
	o.notifier.Added(ctx, j.Clone())
	if req.AutoStart {
		o.signal()
	}
	return okResult()
}
