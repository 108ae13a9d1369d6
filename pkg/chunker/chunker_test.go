package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
)

func newTestChunker(t *testing.T, maxWords, overlap int) *Chunker {
	t.Helper()
	c, err := New(Config{MaxWordsPerChunk: maxWords, OverlapWords: overlap})
	require.NoError(t, err)
	return c
}

// numberedWords builds "w0 w1 ... wN-1".
func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero max", Config{MaxWordsPerChunk: 0, OverlapWords: 0}},
		{"negative max", Config{MaxWordsPerChunk: -5}},
		{"negative overlap", Config{MaxWordsPerChunk: 10, OverlapWords: -1}},
		{"overlap equals max", Config{MaxWordsPerChunk: 10, OverlapWords: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.True(t, merrors.IsInvalidConfig(err))
		})
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := newTestChunker(t, 10, 2)
	assert.Empty(t, c.Chunk("", nil))
	assert.Empty(t, c.Chunk("   \n\t  ", []string{"Alice"}))
}

func TestChunk_SingleChunk(t *testing.T) {
	c := newTestChunker(t, 800, 50)
	text := "Alice: Let's start.\nBob Smith: Sounds good to me."

	chunks := c.Chunk(text, []string{"Carol"})
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, 0, ch.ChunkID)
	assert.Equal(t, text, ch.Content)
	assert.Equal(t, 0, ch.StartPosition)
	assert.Equal(t, 9, ch.EndPosition)
	assert.Equal(t, 9, ch.WordCount)
	assert.Equal(t, []string{"Alice", "Bob Smith"}, ch.Speakers)
}

func TestChunk_ExactlyMaxWordsIsOneChunk(t *testing.T) {
	c := newTestChunker(t, 20, 5)
	chunks := c.Chunk(numberedWords(20), nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, 20, chunks[0].WordCount)
}

func TestChunk_MultipleChunksInvariants(t *testing.T) {
	const total, maxWords, overlap = 1000, 100, 10
	c := newTestChunker(t, maxWords, overlap)
	text := numberedWords(total)

	chunks := c.Chunk(text, nil)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkID)
		assert.Equal(t, len(strings.Fields(ch.Content)), ch.WordCount)
		assert.LessOrEqual(t, ch.WordCount, maxWords)
		assert.Equal(t, ch.EndPosition-ch.StartPosition, ch.WordCount)

		if i > 0 {
			prev := chunks[i-1]
			o := prev.EndPosition - ch.StartPosition
			assert.GreaterOrEqual(t, o, 0)
			assert.LessOrEqual(t, o, overlap)
			assert.Greater(t, ch.StartPosition, prev.StartPosition)
		}
	}

	assert.Equal(t, 0, chunks[0].StartPosition)
	assert.Equal(t, total, chunks[len(chunks)-1].EndPosition)
}

func TestChunk_CoverageRoundTrip(t *testing.T) {
	c := newTestChunker(t, 60, 15)
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Speaker%c: This is sentence number %d in the meeting. ", 'A'+rune(i%3), i)
		if i%5 == 4 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()
	original := strings.Fields(text)

	chunks := c.Chunk(text, nil)
	require.Greater(t, len(chunks), 1)

	var rebuilt []string
	for _, ch := range chunks {
		words := strings.Fields(ch.Content)
		// Drop the words the previous chunk already contributed.
		skip := len(rebuilt) - ch.StartPosition
		require.GreaterOrEqual(t, skip, 0)
		rebuilt = append(rebuilt, words[skip:]...)
	}
	assert.Equal(t, original, rebuilt)
}

func TestChunk_PrefersParagraphBreak(t *testing.T) {
	c := newTestChunker(t, 10, 0)
	text := "one two three four five six seven\n\neight nine ten eleven twelve thirteen"

	chunks := c.Chunk(text, nil)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one two three four five six seven", chunks[0].Content)
	assert.Equal(t, 7, chunks[0].EndPosition)
	assert.Equal(t, "eight nine ten eleven twelve thirteen", chunks[1].Content)
}

func TestChunk_KnownSpeakersBySubstring(t *testing.T) {
	c := newTestChunker(t, 800, 50)
	chunks := c.Chunk("We asked Dana Lee about the schedule and she agreed.", []string{"Dana Lee", "Evan"})
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"Dana Lee"}, chunks[0].Speakers)
}

func TestChunk_BracketedSpeakers(t *testing.T) {
	c := newTestChunker(t, 800, 50)
	chunks := c.Chunk("[Moderator]: welcome\n[Guest 1]: thanks", nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"Guest 1", "Moderator"}, chunks[0].Speakers)
}

func TestSummarize(t *testing.T) {
	chunks := []TextChunk{
		{ChunkID: 0, WordCount: 10, Speakers: []string{"Bob", "Alice"}},
		{ChunkID: 1, WordCount: 5, Speakers: []string{"Alice"}},
	}
	s := Summarize(chunks)
	assert.Equal(t, 2, s.TotalChunks)
	assert.Equal(t, 15, s.TotalWords)
	assert.Equal(t, 8, s.AvgWordsPerChunk) // 7.5 rounds half to even
	assert.Equal(t, 2, s.UniqueSpeakers)
	assert.Equal(t, []string{"Alice", "Bob"}, s.SpeakersFound)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, Summary{}, s)
	assert.Zero(t, s.TotalChunks)
	assert.Zero(t, s.TotalWords)
}
