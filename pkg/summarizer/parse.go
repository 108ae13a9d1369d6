package summarizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parse strategies reported by ParseResponse.
const (
	ParsedJSON  = "json"
	ParsedText  = "text"
	ParsedBasic = "basic"
)

// stringList accepts a JSON array of strings, a single string, or an array
// of objects (as some models return action items).
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*l = []string{single}
		}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, r := range raw {
		var s string
		if json.Unmarshal(r, &s) == nil {
			*l = append(*l, s)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(r, &obj); err != nil {
			return err
		}
		if text := objectText(obj); text != "" {
			*l = append(*l, text)
		}
	}
	return nil
}

func objectText(obj map[string]any) string {
	for _, key := range []string{"task", "description", "text", "item", "name"} {
		if v, ok := obj[key].(string); ok && v != "" {
			text := v
			if owner, ok := obj["owner"].(string); ok && owner != "" {
				text = owner + " " + text
			}
			if deadline, ok := obj["deadline"].(string); ok && deadline != "" {
				text += " by " + deadline
			}
			return text
		}
	}
	return ""
}

type chunkPayload struct {
	Summary           string     `json:"summary"`
	KeyPoints         stringList `json:"key_points"`
	DecisionsMade     stringList `json:"decisions_made"`
	ActionItems       stringList `json:"action_items"`
	SpeakersMentioned stringList `json:"speakers_mentioned"`
	TopicsDiscussed   stringList `json:"topics_discussed"`
}

// ParseResponse turns a provider response into a ChunkSummary. It tries a
// JSON object first (the outermost braces, so fences and chatter around it
// are ignored), then a heading and bullet text layout, and finally falls back
// to BasicSummary over the chunk content. The strategy used is returned.
func ParseResponse(response string, chunkID int, content string) (ChunkSummary, string) {
	if s, err := parseJSONResponse(response); err == nil {
		s.ChunkID = chunkID
		return s, ParsedJSON
	}
	if s, ok := parseTextResponse(response); ok {
		s.ChunkID = chunkID
		return s, ParsedText
	}
	return BasicSummary(chunkID, content), ParsedBasic
}

func parseJSONResponse(response string) (ChunkSummary, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return ChunkSummary{}, fmt.Errorf("no JSON object in response")
	}

	var p chunkPayload
	if err := json.Unmarshal([]byte(response[start:end+1]), &p); err != nil {
		return ChunkSummary{}, fmt.Errorf("parse JSON: %w", err)
	}

	return ChunkSummary{
		Summary:           strings.TrimSpace(p.Summary),
		KeyPoints:         nonNil(p.KeyPoints),
		DecisionsMade:     nonNil(p.DecisionsMade),
		ActionItems:       nonNil(p.ActionItems),
		SpeakersMentioned: nonNil(p.SpeakersMentioned),
		TopicsDiscussed:   nonNil(p.TopicsDiscussed),
	}, nil
}

type section int

const (
	sectionNone section = iota
	sectionSummary
	sectionKeyPoints
	sectionActions
	sectionDecisions
	sectionSpeakers
	sectionTopics
)

func parseTextResponse(response string) (ChunkSummary, bool) {
	s := ChunkSummary{
		KeyPoints:         []string{},
		DecisionsMade:     []string{},
		ActionItems:       []string{},
		SpeakersMentioned: []string{},
		TopicsDiscussed:   []string{},
	}
	current := sectionNone

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case strings.Contains(lower, "summary") && strings.Contains(line, ":"):
			current = sectionSummary
			s.Summary = strings.Trim(strings.TrimSpace(strings.SplitN(line, ":", 2)[1]), `"`)
		case strings.Contains(lower, "key") && strings.Contains(lower, "point"):
			current = sectionKeyPoints
		case strings.Contains(lower, "action") && strings.Contains(lower, "item"):
			current = sectionActions
		case strings.Contains(lower, "decision"):
			current = sectionDecisions
		case strings.Contains(lower, "speaker"):
			current = sectionSpeakers
		case strings.Contains(lower, "topic"):
			current = sectionTopics
		default:
			item, ok := bulletText(line)
			if !ok {
				continue
			}
			switch current {
			case sectionKeyPoints:
				s.KeyPoints = append(s.KeyPoints, item)
			case sectionActions:
				s.ActionItems = append(s.ActionItems, item)
			case sectionDecisions:
				s.DecisionsMade = append(s.DecisionsMade, item)
			case sectionSpeakers:
				s.SpeakersMentioned = append(s.SpeakersMentioned, item)
			case sectionTopics:
				s.TopicsDiscussed = append(s.TopicsDiscussed, item)
			}
		}
	}

	if s.Summary == "" && len(s.KeyPoints) == 0 && len(s.ActionItems) == 0 {
		return ChunkSummary{}, false
	}
	if s.Summary == "" {
		s.Summary = fmt.Sprintf("AI processing of %d words of meeting content", len(strings.Fields(response)))
	}
	return s, true
}

func bulletText(line string) (string, bool) {
	for _, bullet := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, bullet) {
			return strings.TrimSpace(strings.TrimPrefix(line, bullet)), true
		}
	}
	return "", false
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
