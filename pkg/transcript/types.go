// Package transcript cleans raw meeting transcripts and loads them from
// plain text, WebVTT, PDF and markdown files.
package transcript

// Source formats.
const (
	FormatPlain    = "plain"
	FormatTXT      = "txt"
	FormatVTT      = "vtt"
	FormatPDF      = "pdf"
	FormatMarkdown = "md"
)

// Segment is one timed utterance from a structured transcript export.
type Segment struct {
	Speaker   string `json:"speaker,omitempty"`
	SpeakerID string `json:"speaker_id,omitempty"`
	Text      string `json:"text"`
	StartMs   int    `json:"start_ms"`
	EndMs     int    `json:"end_ms"`
}

// Transcript is a cleaned transcript ready for chunking.
type Transcript struct {
	Raw              string    `json:"-"`
	Cleaned          string    `json:"cleaned_text"`
	Speakers         []string  `json:"speakers"`
	TimestampMarkers []string  `json:"timestamp_markers,omitempty"`
	WordCount        int       `json:"total_words"`
	Format           string    `json:"format"`
	Segments         []Segment `json:"segments,omitempty"`
	DurationSeconds  int       `json:"duration_seconds,omitempty"`
}

// FormatReport describes how well a transcript suits processing.
type FormatReport struct {
	HasSpeakers      bool `json:"has_speakers" yaml:"has_speakers"`
	HasTimestamps    bool `json:"has_timestamps" yaml:"has_timestamps"`
	ReasonableLength bool `json:"reasonable_length" yaml:"reasonable_length"`
	HasDialogue      bool `json:"has_dialogue" yaml:"has_dialogue"`
}

// OK reports whether every check passed.
func (r FormatReport) OK() bool {
	return r.HasSpeakers && r.HasTimestamps && r.ReasonableLength && r.HasDialogue
}
