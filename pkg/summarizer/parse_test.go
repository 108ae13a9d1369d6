package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_JSON(t *testing.T) {
	response := "Here you go:\n```json\n" + goodJSON + "\n```\nLet me know if you need more."

	got, strategy := ParseResponse(response, 4, "ignored")
	assert.Equal(t, ParsedJSON, strategy)
	assert.Equal(t, 4, got.ChunkID)
	assert.Equal(t, "Budget review.", got.Summary)
	assert.Equal(t, []string{"Q3 numbers"}, got.KeyPoints)
	assert.Equal(t, []string{"Sarah will send the report by Friday"}, got.ActionItems)
	assert.Equal(t, []string{"Sarah"}, got.SpeakersMentioned)
}

func TestParseResponse_JSONLenientLists(t *testing.T) {
	response := `{"summary": "s",
		"action_items": [{"task": "send deck", "owner": "Ana", "deadline": "Monday"}, "book room"],
		"topics_discussed": "pricing"}`

	got, strategy := ParseResponse(response, 0, "")
	require.Equal(t, ParsedJSON, strategy)
	assert.Equal(t, []string{"Ana send deck by Monday", "book room"}, got.ActionItems)
	assert.Equal(t, []string{"pricing"}, got.TopicsDiscussed)
	assert.NotNil(t, got.KeyPoints)
	assert.Empty(t, got.KeyPoints)
	assert.NotNil(t, got.DecisionsMade)
}

func TestParseResponse_TextSections(t *testing.T) {
	response := `Summary: "The team reviewed the launch."

Key Points:
- Launch moved to May
* QA needs two more weeks
Action Items:
• Priya will update the roadmap
Decisions:
- Delay launch
Speakers:
- Priya
Topics:
- launch`

	got, strategy := ParseResponse(response, 1, "")
	assert.Equal(t, ParsedText, strategy)
	assert.Equal(t, "The team reviewed the launch.", got.Summary)
	assert.Equal(t, []string{"Launch moved to May", "QA needs two more weeks"}, got.KeyPoints)
	assert.Equal(t, []string{"Priya will update the roadmap"}, got.ActionItems)
	assert.Equal(t, []string{"Delay launch"}, got.DecisionsMade)
	assert.Equal(t, []string{"Priya"}, got.SpeakersMentioned)
	assert.Equal(t, []string{"launch"}, got.TopicsDiscussed)
}

func TestParseResponse_TextWithoutSummary(t *testing.T) {
	response := "Key points\n- one\n- two"

	got, strategy := ParseResponse(response, 0, "")
	assert.Equal(t, ParsedText, strategy)
	assert.Equal(t, "AI processing of 6 words of meeting content", got.Summary)
}

func TestParseResponse_FallsBackToBasic(t *testing.T) {
	content := testChunk.Content

	got, strategy := ParseResponse("{not json", 3, content)
	assert.Equal(t, ParsedBasic, strategy)
	assert.Equal(t, BasicSummary(3, content), got)
}

func TestBasicSummary(t *testing.T) {
	got := BasicSummary(2, testChunk.Content)

	assert.Equal(t, "Discussion segment 2 with 1 participants covering 3 main topics", got.Summary)
	assert.Equal(t, []string{"Sarah"}, got.SpeakersMentioned)
	assert.Equal(t, []string{"agreed", "approve", "follow"}, got.TopicsDiscussed)
	assert.Equal(t, []string{"Decision made during discussion"}, got.DecisionsMade)
	assert.Equal(t, []string{"follow up with finance tomorrow", "with finance tomorrow"}, got.ActionItems)
	assert.Equal(t, []string{
		"Sarah: We agreed to approve the budget",
		"Mike will follow up with finance tomorrow",
	}, got.KeyPoints)
	assert.Equal(t, SourceBasic, got.Source)
}

func TestBasicSummary_Limits(t *testing.T) {
	content := "We will ship it. We will test it. We will fix it. We need to plan. We should rest."

	got := BasicSummary(0, content)
	assert.Equal(t, []string{"ship it", "test it", "plan"}, got.ActionItems)
	assert.Empty(t, got.DecisionsMade)
	assert.Len(t, got.KeyPoints, 2)
}

func TestBasicSummary_Empty(t *testing.T) {
	got := BasicSummary(0, "")
	assert.Equal(t, "Discussion segment 0 with 0 participants covering 0 main topics", got.Summary)
	assert.NotNil(t, got.ActionItems)
	assert.NotNil(t, got.SpeakersMentioned)
	assert.Empty(t, got.KeyPoints)
}

func TestBuildPrompt(t *testing.T) {
	withContext := BuildPrompt("Alice: hello", "earlier words")
	assert.Contains(t, withContext, "Previous context for continuity:\nearlier words\n\n")
	assert.Contains(t, withContext, "Transcript segment to analyze:\nAlice: hello")
	assert.True(t, strings.HasSuffix(withContext, "without additional commentary:"))
	assert.Less(t, strings.Index(withContext, "earlier words"), strings.Index(withContext, "Alice: hello"))

	without := BuildPrompt("Alice: hello", "")
	assert.NotContains(t, without, "Previous context")
	assert.Contains(t, without, `"action_items"`)
}

func TestContextTail(t *testing.T) {
	assert.Equal(t, "c d", ContextTail("a b c d", 2))
	assert.Equal(t, "a b", ContextTail("a  b", 10))
	assert.Equal(t, "", ContextTail("a b", 0))
	assert.Equal(t, "", ContextTail("   ", 5))
}
