package job

import "strings"

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusPreparing   Status = "preparing"
	StatusDownloading Status = "downloading"
	StatusCleaning    Status = "cleaning"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
	StatusCanceled    Status = "canceled"
)

var allStatuses = []Status{
	StatusPending,
	StatusPreparing,
	StatusDownloading,
	StatusCleaning,
	StatusFinished,
	StatusError,
	StatusCanceled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the job's lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusError, StatusCanceled:
		return true
	default:
		return false
	}
}

// IsActive reports whether progress fields are meaningful for the status.
func (s Status) IsActive() bool {
	return s == StatusPreparing || s == StatusDownloading
}

// ComponentStatus tracks one metadata component's two-outcome state machine.
type ComponentStatus string

const (
	ComponentPending   ComponentStatus = "pending"
	ComponentCompleted ComponentStatus = "completed"
	ComponentError     ComponentStatus = "error"
)

// Metadata component names, each independently retried.
const (
	ComponentDescription = "description"
	ComponentThumbnail   = "thumbnail"
	ComponentInfoJSON    = "info_json"
	ComponentSubtitles   = "subtitles"
	ComponentTranscript  = "transcript"
)

// Components returns the fixed set of metadata components in display order.
func Components() []string {
	return []string{
		ComponentDescription,
		ComponentThumbnail,
		ComponentInfoJSON,
		ComponentSubtitles,
		ComponentTranscript,
	}
}
