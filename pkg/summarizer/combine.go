package summarizer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/otherjamesbrown/minutes-cli/pkg/actions"
)

const overallTopicCount = 3

var ownerNameRegex = regexp.MustCompile(`\b([A-Z][a-z]+)\b`)

// Combine merges chunk summaries into a MeetingSummary. Decisions keep their
// first-seen order without duplicates; attendees and topics are sorted.
// wordCount is the transcript word count used in the overall summary.
func Combine(title string, summaries []ChunkSummary, wordCount int) MeetingSummary {
	decisions := []string{}
	seenDecision := make(map[string]bool)
	speakers := make(map[string]bool)
	topics := make(map[string]bool)
	entries := []actions.Entry{}

	stats := ProcessingStats{
		TotalWords:  wordCount,
		TotalChunks: len(summaries),
	}

	for _, cs := range summaries {
		for _, d := range cs.DecisionsMade {
			if !seenDecision[d] {
				seenDecision[d] = true
				decisions = append(decisions, d)
			}
		}
		for _, s := range cs.SpeakersMentioned {
			speakers[s] = true
		}
		for _, t := range cs.TopicsDiscussed {
			topics[t] = true
		}
		for _, a := range cs.ActionItems {
			entries = append(entries, StructureActionItem(a))
		}

		switch {
		case cs.Cached:
			stats.CachedChunks++
		case cs.Source == SourceBasic:
			stats.FallbackChunks++
		default:
			stats.OracleChunks++
		}
	}

	attendees := sortedSet(speakers)
	mainTopics := sortedSet(topics)
	stats.Speakers = len(attendees)
	stats.OracleActions = len(entries)

	if wordCount <= 0 {
		wordCount = summaryWordCount(summaries)
	}

	return MeetingSummary{
		Title:          title,
		OverallSummary: overallSummary(mainTopics, wordCount),
		KeyDecisions:   decisions,
		ActionItems:    entries,
		Attendees:      attendees,
		MainTopics:     mainTopics,
		ChunkSummaries: summaries,
		Stats:          stats,
		GeneratedAt:    time.Now(),
	}
}

// StructureActionItem turns a free-text action into an Entry. Text with a
// single " by " is split into task and deadline (lower-cased, as matched);
// the first capitalized word in the original text becomes the owner.
func StructureActionItem(text string) actions.Entry {
	entry := actions.Entry{
		Task:     text,
		Priority: actions.PriorityMedium,
	}

	lower := strings.ToLower(text)
	if parts := strings.Split(lower, " by "); len(parts) == 2 {
		entry.Task = strings.TrimSpace(parts[0])
		entry.Deadline = strings.TrimSpace(parts[1])
	}

	if m := ownerNameRegex.FindStringSubmatch(text); m != nil {
		entry.Owner = m[1]
	}
	return entry
}

func overallSummary(topics []string, wordCount int) string {
	topicText := "various topics"
	if len(topics) > 0 {
		topicText = strings.Join(topics[:min(overallTopicCount, len(topics))], ", ")
	}
	return fmt.Sprintf("Meeting covered %s with substantive discussion across multiple areas. "+
		"Key decisions were made and action items assigned to team members. "+
		"Discussion was comprehensive with %d words of detailed conversation.", topicText, wordCount)
}

func summaryWordCount(summaries []ChunkSummary) int {
	n := 0
	for _, cs := range summaries {
		n += len(strings.Fields(cs.Summary))
	}
	return n
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
