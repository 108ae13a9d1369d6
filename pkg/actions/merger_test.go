package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conf(v float64) *float64 { return &v }

const (
	budgetTask     = "send the quarterly budget report to finance"
	budgetTaskPlus = "send the quarterly budget report to finance today"
)

func TestMerge_PrimaryWinsOnHigherConfidence(t *testing.T) {
	primary := []Entry{{Task: budgetTask, Owner: "Sarah", Priority: PriorityHigh, Confidence: conf(0.9)}}
	secondary := []ActionItem{{Task: budgetTaskPlus, Priority: PriorityMedium, Confidence: 0.6}}

	got := Merge(primary, secondary)

	require.Len(t, got, 1)
	assert.Equal(t, primary[0], got[0])
}

func TestMerge_SecondaryReplacesOnHigherConfidence(t *testing.T) {
	primary := []Entry{{Task: budgetTask, Owner: "Sarah", Confidence: conf(0.6)}}
	secondary := []ActionItem{{Task: budgetTaskPlus, Deadline: "friday", Priority: PriorityHigh, Confidence: 0.9}}

	got := Merge(primary, secondary)

	require.Len(t, got, 1)
	assert.Equal(t, budgetTaskPlus, got[0].Task)
	assert.Empty(t, got[0].Owner, "absent owner stays absent")
	assert.Equal(t, "friday", got[0].Deadline)
	assert.Equal(t, 0.9, got[0].ConfidenceValue())

	// Input untouched.
	assert.Equal(t, budgetTask, primary[0].Task)
}

func TestMerge_TieKeepsExisting(t *testing.T) {
	primary := []Entry{{Task: budgetTask, Confidence: conf(0.7)}}
	got := Merge(primary, []ActionItem{{Task: budgetTaskPlus, Confidence: 0.7}})

	require.Len(t, got, 1)
	assert.Equal(t, budgetTask, got[0].Task)
}

func TestMerge_MissingConfidenceIsZero(t *testing.T) {
	primary := []Entry{{Task: budgetTask, Owner: "Sarah"}}
	got := Merge(primary, []ActionItem{{Task: budgetTaskPlus, Confidence: 0.1}})

	require.Len(t, got, 1)
	assert.Equal(t, budgetTaskPlus, got[0].Task)
}

func TestMerge_ReplacementMovesToEnd(t *testing.T) {
	primary := []Entry{
		{Task: budgetTask, Confidence: conf(0.5)},
		{Task: "book the offsite venue", Confidence: conf(0.8)},
	}
	got := Merge(primary, []ActionItem{{Task: budgetTaskPlus, Confidence: 0.9}})

	require.Len(t, got, 2)
	assert.Equal(t, "book the offsite venue", got[0].Task)
	assert.Equal(t, budgetTaskPlus, got[1].Task)
}

func TestMerge_NonDuplicatesAppended(t *testing.T) {
	primary := []Entry{{Task: "prepare budget", Owner: "Sarah", Confidence: conf(0.9)}}
	secondary := []ActionItem{
		// Jaccard 2/3 does not exceed the merge threshold.
		{Task: "prepare the budget", Confidence: 0.6},
		{Task: "schedule the retro", Confidence: 0.8},
	}

	got := Merge(primary, secondary)

	require.Len(t, got, 3)
	assert.Equal(t, "prepare budget", got[0].Task)
	assert.Equal(t, "prepare the budget", got[1].Task)
	assert.Equal(t, "schedule the retro", got[2].Task)
}

func TestMerge_SecondaryItemsDeduplicateAgainstEachOther(t *testing.T) {
	got := Merge(nil, []ActionItem{
		{Task: budgetTask, Confidence: 0.6},
		{Task: budgetTaskPlus, Confidence: 0.8},
	})

	require.Len(t, got, 1)
	assert.Equal(t, budgetTaskPlus, got[0].Task)
}

func TestMerge_EmptyTasksNeverSimilar(t *testing.T) {
	got := Merge([]Entry{{Task: ""}}, []ActionItem{{Task: "", Confidence: 0.9}})
	assert.Len(t, got, 2)
}
