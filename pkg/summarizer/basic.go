package summarizer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	basicActionsPerPattern = 2
	basicMaxActions        = 3
	basicMaxTopics         = 3
	basicMaxKeyPoints      = 2
	basicTopicMinLen       = 6
	basicDecisionText      = "Decision made during discussion"
)

var (
	basicSpeakerRegex = regexp.MustCompile(`(?m)^([A-Z][a-z]+ ?[A-Z]?[a-z]*):?`)

	basicActionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`will ([^.]+)`),
		regexp.MustCompile(`need to ([^.]+)`),
		regexp.MustCompile(`should ([^.]+)`),
		regexp.MustCompile(`follow up ([^.]+)`),
		regexp.MustCompile(`complete ([^.]+)`),
	}

	decisionWords = map[string]bool{
		"decide":   true,
		"decided":  true,
		"agreed":   true,
		"approve":  true,
		"approved": true,
	}
)

// BasicSummary summarizes a chunk without a provider, using keyword
// heuristics. It never fails.
func BasicSummary(chunkID int, content string) ChunkSummary {
	lower := strings.ToLower(content)
	words := strings.Fields(lower)

	speakers := basicSpeakers(content)
	topics := basicTopics(words)

	return ChunkSummary{
		ChunkID: chunkID,
		Summary: fmt.Sprintf("Discussion segment %d with %d participants covering %d main topics",
			chunkID, len(speakers), len(topics)),
		KeyPoints:         basicKeyPoints(content),
		DecisionsMade:     basicDecisions(words),
		ActionItems:       basicActions(lower),
		SpeakersMentioned: speakers,
		TopicsDiscussed:   topics,
		Source:            SourceBasic,
	}
}

func basicSpeakers(content string) []string {
	seen := make(map[string]bool)
	speakers := []string{}
	for _, m := range basicSpeakerRegex.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(m[1])
		if !seen[name] {
			seen[name] = true
			speakers = append(speakers, name)
		}
	}
	sort.Strings(speakers)
	return speakers
}

func basicActions(lower string) []string {
	items := []string{}
	for _, re := range basicActionPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, basicActionsPerPattern) {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	if len(items) > basicMaxActions {
		items = items[:basicMaxActions]
	}
	return items
}

func basicDecisions(words []string) []string {
	for _, w := range words {
		if decisionWords[strings.TrimFunc(w, unicode.IsPunct)] {
			return []string{basicDecisionText}
		}
	}
	return []string{}
}

func basicTopics(words []string) []string {
	seen := make(map[string]bool)
	topics := []string{}
	for _, w := range words {
		if len(topics) == basicMaxTopics {
			break
		}
		if utf8.RuneCountInString(w) < basicTopicMinLen || !isAlpha(w) || seen[w] {
			continue
		}
		seen[w] = true
		topics = append(topics, w)
	}
	return topics
}

func basicKeyPoints(content string) []string {
	sentences := strings.Split(content, ".")
	if len(sentences) > basicMaxKeyPoints {
		sentences = sentences[:basicMaxKeyPoints]
	}
	points := []string{}
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s != "" {
			points = append(points, s)
		}
	}
	return points
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
