package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spool/internal/config"
	"spool/internal/job"
	"spool/internal/logging"
)

const userAgent = "spool/0.1.0"

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// Ntfy pushes lifecycle events to an ntfy topic. Progress updates are
// dropped: push delivery is for milestones, not a live progress feed.
type Ntfy struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewNtfy builds a push notifier from configuration. When no topic is
// configured, a Nop notifier is returned.
func NewNtfy(cfg *config.Config, logger *slog.Logger) Notifier {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Nop{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Ntfy{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "ntfy"),
	}
}

func (n *Ntfy) Added(ctx context.Context, j *job.Job) {
	n.send(ctx, payload{
		title:   "Spool - Queued",
		message: fmt.Sprintf("Queued: %s", j.Title),
		tags:    []string{"spool", "job", "added"},
	})
}

func (n *Ntfy) Updated(ctx context.Context, j *job.Job) {}

func (n *Ntfy) Completed(ctx context.Context, j *job.Job) {
	if j.Status == job.StatusFinished {
		n.send(ctx, payload{
			title:    "Spool - Complete",
			message:  fmt.Sprintf("Finished: %s", j.Title),
			tags:     []string{"spool", "job", "completed"},
			priority: "high",
		})
		return
	}
	message := fmt.Sprintf("Failed: %s", j.Title)
	if j.Error != "" {
		message = fmt.Sprintf("%s\n%s", message, j.Error)
	}
	n.send(ctx, payload{
		title:    "Spool - Failed",
		message:  message,
		tags:     []string{"spool", "job", "failed"},
		priority: "high",
	})
}

func (n *Ntfy) Canceled(ctx context.Context, id string) {
	n.send(ctx, payload{
		title:   "Spool - Canceled",
		message: fmt.Sprintf("Canceled job %s", id),
		tags:    []string{"spool", "job", "canceled"},
	})
}

func (n *Ntfy) Cleared(ctx context.Context, id string) {}

func (n *Ntfy) send(ctx context.Context, data payload) {
	if n == nil || n.client == nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		n.logger.Warn("build ntfy request failed", logging.Error(err))
		return
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("send ntfy notification failed", logging.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		n.logger.Warn("ntfy rejected notification",
			logging.Int("status", resp.StatusCode),
			logging.String("body", strings.TrimSpace(string(body))),
		)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
}
