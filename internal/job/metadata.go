package job

// VideoMeta carries per-video statistics extracted after the fetch.
type VideoMeta struct {
	Description  string `json:"description,omitempty"`
	Duration     int64  `json:"duration,omitempty"`
	ViewCount    int64  `json:"view_count,omitempty"`
	LikeCount    int64  `json:"like_count,omitempty"`
	CommentCount int64  `json:"comment_count,omitempty"`
	UploadDate   string `json:"upload_date,omitempty"`
}

// ChannelMeta identifies the uploading channel.
type ChannelMeta struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	SubscriberCount int64  `json:"subscriber_count,omitempty"`
}

// PlaylistMeta identifies the playlist a job was expanded from.
type PlaylistMeta struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Index string `json:"index,omitempty"`
}

// TranscriptSegment is one timed span of subtitle text, in seconds.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptMeta holds the parsed subtitle transcript.
type TranscriptMeta struct {
	Language string              `json:"language"`
	Segments []TranscriptSegment `json:"segments"`
}

// FilesMeta records the side-car file paths produced next to the media file.
type FilesMeta struct {
	Audio       string   `json:"audio,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Description string   `json:"description,omitempty"`
	InfoJSON    string   `json:"info_json,omitempty"`
	Subtitles   []string `json:"subtitles"`
}

// Metadata is the fixed-shape nested record attached to every job.
type Metadata struct {
	Video      VideoMeta      `json:"video"`
	Channel    ChannelMeta    `json:"channel"`
	Playlist   PlaylistMeta   `json:"playlist"`
	Transcript TranscriptMeta `json:"transcript"`
	Files      FilesMeta      `json:"files"`
}

// NewMetadata constructs the metadata record with its documented defaults:
// an English transcript with no segments and empty side-car slots.
func NewMetadata() Metadata {
	return Metadata{
		Transcript: TranscriptMeta{
			Language: "en",
			Segments: []TranscriptSegment{},
		},
		Files: FilesMeta{
			Subtitles: []string{},
		},
	}
}

// ComponentState is the retry-tracked outcome of one metadata component.
type ComponentState struct {
	Status  ComponentStatus `json:"status"`
	Retries int             `json:"retries,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MetadataStatus maps component name to its state machine.
type MetadataStatus map[string]ComponentState

// NewMetadataStatus returns every known component in the pending state.
func NewMetadataStatus() MetadataStatus {
	status := make(MetadataStatus, len(Components()))
	for _, component := range Components() {
		status[component] = ComponentState{Status: ComponentPending}
	}
	return status
}

// MarkCompleted transitions a component to completed. A component already
// in a terminal state is left untouched; terminal outcomes never regress
// without an explicit reset.
func (m MetadataStatus) MarkCompleted(component string) {
	state, ok := m[component]
	if !ok {
		state = ComponentState{Status: ComponentPending}
	}
	if state.Status != ComponentPending {
		return
	}
	state.Status = ComponentCompleted
	state.Error = ""
	m[component] = state
}

// MarkError transitions a component to error with the captured message.
func (m MetadataStatus) MarkError(component, message string) {
	state, ok := m[component]
	if !ok {
		state = ComponentState{Status: ComponentPending}
	}
	if state.Status != ComponentPending {
		return
	}
	state.Status = ComponentError
	state.Error = message
	m[component] = state
}

// SetRetries records the attempt count for a component mid-retry.
func (m MetadataStatus) SetRetries(component string, retries int) {
	state, ok := m[component]
	if !ok {
		state = ComponentState{Status: ComponentPending}
	}
	state.Retries = retries
	m[component] = state
}

// Reset returns a component to pending for an explicit retry call.
func (m MetadataStatus) Reset(component string) {
	m[component] = ComponentState{Status: ComponentPending}
}

// CompletedCount returns how many components reached completed.
func (m MetadataStatus) CompletedCount() int {
	count := 0
	for _, state := range m {
		if state.Status == ComponentCompleted {
			count++
		}
	}
	return count
}

// Clone returns an independent copy of the component map.
func (m MetadataStatus) Clone() MetadataStatus {
	if m == nil {
		return nil
	}
	cp := make(MetadataStatus, len(m))
	for component, state := range m {
		cp[component] = state
	}
	return cp
}
