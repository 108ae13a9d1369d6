package summarizer

import (
	"time"

	"github.com/otherjamesbrown/minutes-cli/pkg/actions"
)

// SourceBasic marks a chunk summarized by the keyword heuristic.
const SourceBasic = "basic"

// ChunkSummary is the summary of one transcript chunk.
type ChunkSummary struct {
	ChunkID           int      `json:"chunk_id" yaml:"chunk_id"`
	Summary           string   `json:"summary" yaml:"summary"`
	KeyPoints         []string `json:"key_points" yaml:"key_points"`
	DecisionsMade     []string `json:"decisions_made" yaml:"decisions_made"`
	ActionItems       []string `json:"action_items" yaml:"action_items"`
	SpeakersMentioned []string `json:"speakers_mentioned" yaml:"speakers_mentioned"`
	TopicsDiscussed   []string `json:"topics_discussed" yaml:"topics_discussed"`

	// Source is the provider name that produced the summary, or "basic".
	Source string `json:"source" yaml:"source"`
	Cached bool   `json:"cached,omitempty" yaml:"cached,omitempty"`
}

// ProcessingStats describes how a meeting was processed.
type ProcessingStats struct {
	TotalWords     int           `json:"total_words" yaml:"total_words"`
	TotalChunks    int           `json:"total_chunks" yaml:"total_chunks"`
	Speakers       int           `json:"speakers" yaml:"speakers"`
	OracleChunks   int           `json:"oracle_chunks" yaml:"oracle_chunks"`
	FallbackChunks int           `json:"fallback_chunks" yaml:"fallback_chunks"`
	CachedChunks   int           `json:"cached_chunks" yaml:"cached_chunks"`
	PatternActions int           `json:"pattern_actions" yaml:"pattern_actions"`
	OracleActions  int           `json:"oracle_actions" yaml:"oracle_actions"`
	MergedActions  int           `json:"merged_actions" yaml:"merged_actions"`
	Duration       time.Duration `json:"duration_ns" yaml:"duration"`
	ProvidersTried []string      `json:"providers,omitempty" yaml:"providers,omitempty"`
}

// MeetingSummary is the combined result for a whole meeting.
type MeetingSummary struct {
	Title          string          `json:"title" yaml:"title"`
	OverallSummary string          `json:"overall_summary" yaml:"overall_summary"`
	KeyDecisions   []string        `json:"key_decisions" yaml:"key_decisions"`
	ActionItems    []actions.Entry `json:"action_items" yaml:"action_items"`
	Attendees      []string        `json:"attendees" yaml:"attendees"`
	MainTopics     []string        `json:"main_topics" yaml:"main_topics"`
	ChunkSummaries []ChunkSummary  `json:"chunk_summaries" yaml:"chunk_summaries"`
	Stats          ProcessingStats `json:"stats" yaml:"stats"`
	GeneratedAt    time.Time       `json:"generated_at" yaml:"generated_at"`
}
