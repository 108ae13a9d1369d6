package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
	"github.com/otherjamesbrown/minutes-cli/pkg/textutil"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(DefaultConfig(), nil)
	require.NoError(t, err)
	return e
}

func TestNewExtractor_InvalidConfig(t *testing.T) {
	_, err := NewExtractor(Config{MinConfidence: 1.5}, nil)
	require.Error(t, err)
	assert.True(t, merrors.IsInvalidConfig(err))

	_, err = NewExtractor(Config{MinConfidence: -0.1}, nil)
	assert.True(t, merrors.IsInvalidConfig(err))
}

func TestExtract_RequestWithDeadline(t *testing.T) {
	e := newTestExtractor(t)
	speakers := []string{"John Smith", "Sarah Johnson", "Mike Davis"}

	items := e.Extract("Sarah, can you please send the quarterly report by Friday?", speakers)

	require.Len(t, items, 2)
	first := items[0]
	assert.Equal(t, "please send the quarterly report by Friday", first.Task)
	assert.Equal(t, "Sarah", first.Owner)
	assert.Equal(t, "friday", first.Deadline)
	assert.Equal(t, PriorityMedium, first.Priority)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, 1.0, first.Confidence)

	// The "please" match carries no owner phrase and no name precedes a verb.
	second := items[1]
	assert.Equal(t, "send the quarterly report by Friday", second.Task)
	assert.Empty(t, second.Owner)
	assert.Equal(t, "friday", second.Deadline)
	assert.InDelta(t, 0.95, second.Confidence, 1e-9)
}

func TestExtract_HedgedSentencesExcluded(t *testing.T) {
	e := newTestExtractor(t)

	assert.Empty(t, e.Extract("Maybe we could look into this", nil))
	// Matches two patterns but scores 0.4 after the hedging penalty.
	assert.Empty(t, e.Extract("Maybe we need to look into this", nil))
}

func TestExtract_ShortTaskRejected(t *testing.T) {
	e := newTestExtractor(t)
	assert.Empty(t, e.Extract("Bob will go.", []string{"Bob"}))
}

func TestExtract_Context(t *testing.T) {
	e := newTestExtractor(t)

	items := e.Extract("We met today. Bob will send the notes to everyone. Thanks all.", []string{"Bob"})

	require.Len(t, items, 1)
	assert.Equal(t, "send the notes to everyone", items[0].Task)
	assert.Equal(t, "Bob", items[0].Owner)
	assert.Empty(t, items[0].Deadline)
	assert.Equal(t, "We met today Bob will send the notes to everyone Thanks all", items[0].Context)
	assert.InDelta(t, 1.0, items[0].Confidence, 1e-9)
}

func TestExtract_MinConfidence(t *testing.T) {
	e, err := NewExtractor(Config{MinConfidence: 0.96}, nil)
	require.NoError(t, err)

	items := e.Extract("Sarah, can you please send the quarterly report by Friday?", []string{"Sarah Johnson"})
	require.Len(t, items, 1)
	assert.Equal(t, "Sarah", items[0].Owner)
}

func TestExtract_Invariants(t *testing.T) {
	e := newTestExtractor(t)
	text := `
John Smith: Sarah, can you please send the quarterly report by Friday?
Sarah Johnson: Absolutely, I'll prepare the report and send it by end of day Friday.
Mike Davis: We also need to schedule a follow-up meeting next week.
John Smith: Good point Mike. Sarah, please coordinate with everyone's calendars.
Sarah Johnson: Will do. I'll send out calendar invites by tomorrow.
`
	items := e.Extract(text, []string{"John Smith", "Sarah Johnson", "Mike Davis"})
	require.NotEmpty(t, items)

	for i, item := range items {
		assert.Greater(t, item.Confidence, DefaultMinConfidence)
		assert.LessOrEqual(t, item.Confidence, 1.0)
		assert.GreaterOrEqual(t, len(item.Task), 1)
		assert.Equal(t, StatusPending, item.Status)
		if i > 0 {
			assert.GreaterOrEqual(t, items[i-1].Confidence, item.Confidence, "sorted by confidence")
		}
		for j := i + 1; j < len(items); j++ {
			if items[j].Owner == item.Owner {
				assert.LessOrEqual(t, textutil.Jaccard(item.Task, items[j].Task), DuplicateSimilarity,
					"duplicates survived: %q / %q", item.Task, items[j].Task)
			}
		}
	}
}

func TestDeduplicate(t *testing.T) {
	const (
		task     = "send the quarterly budget report to finance"
		taskPlus = "send the quarterly budget report to finance today"
	)

	t.Run("higher confidence replaces", func(t *testing.T) {
		got := deduplicate([]ActionItem{
			{Task: task, Owner: "Bob", Confidence: 0.7},
			{Task: "book a room", Owner: "Bob", Confidence: 0.8},
			{Task: taskPlus, Owner: "Bob", Confidence: 0.9},
		})
		require.Len(t, got, 2)
		assert.Equal(t, taskPlus, got[0].Task)
		assert.Equal(t, "book a room", got[1].Task)
	})

	t.Run("lower confidence dropped", func(t *testing.T) {
		got := deduplicate([]ActionItem{
			{Task: task, Owner: "Bob", Confidence: 0.9},
			{Task: taskPlus, Owner: "Bob", Confidence: 0.7},
		})
		require.Len(t, got, 1)
		assert.Equal(t, task, got[0].Task)
	})

	t.Run("both owners absent", func(t *testing.T) {
		got := deduplicate([]ActionItem{
			{Task: task, Confidence: 0.6},
			{Task: taskPlus, Confidence: 0.7},
		})
		require.Len(t, got, 1)
		assert.Equal(t, taskPlus, got[0].Task)
	})

	t.Run("different owners kept", func(t *testing.T) {
		got := deduplicate([]ActionItem{
			{Task: task, Owner: "Bob", Confidence: 0.9},
			{Task: taskPlus, Owner: "Alice", Confidence: 0.7},
		})
		assert.Len(t, got, 2)
	})

	t.Run("similarity at 0.75 is not a duplicate", func(t *testing.T) {
		got := deduplicate([]ActionItem{
			{Task: "send the report", Owner: "Bob", Confidence: 0.9},
			{Task: "send the report now", Owner: "Bob", Confidence: 0.7},
		})
		assert.Len(t, got, 2)
	})

	t.Run("stable on ties", func(t *testing.T) {
		got := deduplicate([]ActionItem{
			{Task: "alpha beta gamma", Confidence: 0.7},
			{Task: "delta epsilon zeta", Confidence: 0.7},
		})
		require.Len(t, got, 2)
		assert.Equal(t, "alpha beta gamma", got[0].Task)
	})
}

func TestResolveOwner(t *testing.T) {
	tests := []struct {
		name        string
		sentence    string
		ownerPhrase string
		speakers    []string
		want        string
	}{
		{"owner phrase word", "Bob will send the notes", "Bob", []string{"Bob Lee"}, "Bob"},
		{"owner phrase punctuation trimmed", "Sarah, can you file it", "Sarah,", []string{"Sarah Johnson"}, "Sarah"},
		{"name before verb", "Then Alice will handle it", "", []string{"Alice Wong"}, "Alice"},
		{"unknown name", "Zed will do it", "Zed", []string{"Alice Wong"}, ""},
		{"self assignment", "Mike: I'll draft the agenda", "", nil, "Mike"},
		{"self assignment without tag", "I will draft the agenda", "", nil, ""},
		{"no speakers", "Bob will send the notes", "Bob", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveOwner(tt.sentence, tt.ownerPhrase, tt.speakers))
		})
	}
}

func TestResolveDeadline(t *testing.T) {
	tests := []struct {
		sentence string
		want     string
	}{
		{"Finish it by Monday", "monday"},
		{"Done by next week", "next week"},
		{"Send it by end of day", "end of day"},
		{"Ship by 3/15", "3/15"},
		{"Publish by March 15", "march 15"},
		{"Ship in 2 weeks", "2 weeks"},
		{"Follow up in 3 days", "3 days"},
		{"This is urgent", "urgent"},
		{"Do it by Friday, asap", "friday"},
		{"No deadline here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.sentence, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveDeadline(tt.sentence))
		})
	}
}

func TestResolvePriority(t *testing.T) {
	tests := []struct {
		sentence string
		want     Priority
	}{
		{"This is urgent", PriorityHigh},
		{"We should do it soon", PriorityMedium},
		{"Do it eventually", PriorityLow},
		{"Do it", PriorityMedium},
		{"Important but eventually", PriorityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.sentence, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvePriority(tt.sentence))
		})
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 1.0, score("Bob will send it by friday", "Bob", "friday", "send it now"))
	assert.InDelta(t, 0.5, score("do the thing", "", "", "do thing"), 1e-9)
	assert.InDelta(t, 0.3, score("maybe do the thing", "", "", "do thing"), 1e-9)
	assert.InDelta(t, 0.6, score("perhaps we will review", "", "", "review the doc"), 1e-9)
}
