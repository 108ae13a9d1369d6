// Package chunker splits cleaned meeting transcripts into overlapping,
// size-bounded chunks that end on natural breaks where possible.
package chunker

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
	"github.com/otherjamesbrown/minutes-cli/pkg/textutil"
)

// Default chunking parameters.
const (
	DefaultMaxWordsPerChunk = 800
	DefaultOverlapWords     = 50
	DefaultLookbackWords    = 150
	DefaultLookaheadWords   = 50
)

// Speaker labels at the start of a line: "First Last:", "First:" and "[Tag]:".
var speakerLabelRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^([A-Z][a-z]+ [A-Z][a-z]+):\s*`),
	regexp.MustCompile(`(?m)^([A-Z][a-z]+):\s*`),
	regexp.MustCompile(`(?m)^\[([^\]]+)\]:\s*`),
}

// Config controls chunk sizing.
type Config struct {
	MaxWordsPerChunk int `yaml:"max_words_per_chunk" json:"max_words_per_chunk"`
	OverlapWords     int `yaml:"overlap_words" json:"overlap_words"`
	LookbackWords    int `yaml:"lookback_words,omitempty" json:"lookback_words,omitempty"`
	LookaheadWords   int `yaml:"lookahead_words,omitempty" json:"lookahead_words,omitempty"`
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() Config {
	return Config{
		MaxWordsPerChunk: DefaultMaxWordsPerChunk,
		OverlapWords:     DefaultOverlapWords,
		LookbackWords:    DefaultLookbackWords,
		LookaheadWords:   DefaultLookaheadWords,
	}
}

// Validate checks the sizing parameters.
func (c Config) Validate() error {
	if c.MaxWordsPerChunk <= 0 {
		return fmt.Errorf("%w: max_words_per_chunk must be positive, got %d", merrors.ErrInvalidConfig, c.MaxWordsPerChunk)
	}
	if c.OverlapWords < 0 {
		return fmt.Errorf("%w: overlap_words must not be negative, got %d", merrors.ErrInvalidConfig, c.OverlapWords)
	}
	if c.OverlapWords >= c.MaxWordsPerChunk {
		return fmt.Errorf("%w: overlap_words (%d) must be less than max_words_per_chunk (%d)",
			merrors.ErrInvalidConfig, c.OverlapWords, c.MaxWordsPerChunk)
	}
	if c.LookbackWords < 0 || c.LookaheadWords < 0 {
		return fmt.Errorf("%w: break search window must not be negative", merrors.ErrInvalidConfig)
	}
	return nil
}

// TextChunk is one contiguous slice of transcript words.
// StartPosition and EndPosition are word offsets into the source text.
type TextChunk struct {
	ChunkID       int      `json:"chunk_id"`
	Content       string   `json:"content"`
	Speakers      []string `json:"speakers_in_chunk"`
	WordCount     int      `json:"word_count"`
	StartPosition int      `json:"start_position"`
	EndPosition   int      `json:"end_position"`
}

// Chunker splits text into TextChunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker, failing on invalid configuration.
func New(cfg Config) (*Chunker, error) {
	if cfg.LookbackWords == 0 {
		cfg.LookbackWords = DefaultLookbackWords
	}
	if cfg.LookaheadWords == 0 {
		cfg.LookaheadWords = DefaultLookaheadWords
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Chunk splits text into overlapping chunks. Empty or whitespace-only text
// yields no chunks.
func (c *Chunker) Chunk(text string, knownSpeakers []string) []TextChunk {
	spans := textutil.WordSpans(text)
	if len(spans) == 0 {
		return []TextChunk{}
	}

	if len(spans) <= c.cfg.MaxWordsPerChunk {
		return []TextChunk{{
			ChunkID:       0,
			Content:       text,
			Speakers:      detectSpeakers(text, knownSpeakers),
			WordCount:     len(spans),
			StartPosition: 0,
			EndPosition:   len(spans),
		}}
	}

	chunks := make([]TextChunk, 0, len(spans)/c.cfg.MaxWordsPerChunk+1)
	pos := 0
	for pos < len(spans) {
		end := min(pos+c.cfg.MaxWordsPerChunk, len(spans))
		if end < len(spans) {
			end = textutil.FindBreakPoint(text, spans, pos, end, c.cfg.LookbackWords, c.cfg.LookaheadWords)
		}

		content := text[spans[pos].Start:spans[end-1].End]
		chunks = append(chunks, TextChunk{
			ChunkID:       len(chunks),
			Content:       content,
			Speakers:      detectSpeakers(content, knownSpeakers),
			WordCount:     end - pos,
			StartPosition: pos,
			EndPosition:   end,
		})

		if end >= len(spans) {
			break
		}

		next := max(0, end-c.cfg.OverlapWords)
		if next <= pos {
			// A break close to the start plus a large overlap would stall.
			next = end
		}
		pos = next
	}

	return chunks
}

// detectSpeakers collects line-start speaker labels plus any known speaker
// mentioned verbatim, sorted and de-duplicated.
func detectSpeakers(text string, knownSpeakers []string) []string {
	seen := make(map[string]struct{})
	for _, re := range speakerLabelRegexes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = struct{}{}
		}
	}
	for _, s := range knownSpeakers {
		if s != "" && strings.Contains(text, s) {
			seen[s] = struct{}{}
		}
	}

	speakers := make([]string, 0, len(seen))
	for s := range seen {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)
	return speakers
}

// Summary aggregates statistics over a chunking result.
type Summary struct {
	TotalChunks      int      `json:"total_chunks" yaml:"total_chunks"`
	TotalWords       int      `json:"total_words" yaml:"total_words"`
	AvgWordsPerChunk int      `json:"avg_words_per_chunk,omitempty" yaml:"avg_words_per_chunk,omitempty"`
	UniqueSpeakers   int      `json:"unique_speakers,omitempty" yaml:"unique_speakers,omitempty"`
	SpeakersFound    []string `json:"speakers_found,omitempty" yaml:"speakers_found,omitempty"`
}

// Summarize computes chunk statistics. Zero chunks yield a zero Summary.
func Summarize(chunks []TextChunk) Summary {
	if len(chunks) == 0 {
		return Summary{}
	}

	total := 0
	seen := make(map[string]struct{})
	for _, ch := range chunks {
		total += ch.WordCount
		for _, s := range ch.Speakers {
			seen[s] = struct{}{}
		}
	}

	speakers := make([]string, 0, len(seen))
	for s := range seen {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)

	return Summary{
		TotalChunks:      len(chunks),
		TotalWords:       total,
		AvgWordsPerChunk: int(math.RoundToEven(float64(total) / float64(len(chunks)))),
		UniqueSpeakers:   len(speakers),
		SpeakersFound:    speakers,
	}
}
