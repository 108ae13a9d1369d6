package actions

import (
	"regexp"
	"strings"
)

// actionPattern recognises one action phrasing. Patterns with two groups
// capture an owner phrase and a task; single-group patterns capture the task.
type actionPattern struct {
	name string
	re   *regexp.Regexp
}

var actionPatterns = []actionPattern{
	{"will", regexp.MustCompile(`(?i)(.*?)\s+will\s+(.*?)(?:\.|$)`)},
	{"should", regexp.MustCompile(`(?i)(.*?)\s+should\s+(.*?)(?:\.|$)`)},
	{"needs_to", regexp.MustCompile(`(?i)(.*?)\s+needs? to\s+(.*?)(?:\.|$)`)},
	{"can_you", regexp.MustCompile(`(?i)(.*?)\s+can you\s+(.*?)(?:\.|$)`)},
	{"please", regexp.MustCompile(`(?i)please\s+(.*?)(?:\.|$)`)},
	{"i_will", regexp.MustCompile(`(?i)I'll\s+(.*?)(?:\.|$)`)},
	{"we_need_to", regexp.MustCompile(`(?i)we need to\s+(.*?)(?:\.|$)`)},
	{"action_item", regexp.MustCompile(`(?i)action item:?\s*(.*?)(?:\.|$)`)},
	{"follow_up", regexp.MustCompile(`(?i)follow up on\s+(.*?)(?:\.|$)`)},
	{"to_do", regexp.MustCompile(`(?i)(.*?)\s+to do\s+(.*?)(?:\.|$)`)},
}

// match is one provisional action: an optional owner phrase plus the task.
type match struct {
	ownerPhrase string
	task        string
}

// findAll returns every match of p in sentence.
func (p actionPattern) findAll(sentence string) []match {
	var out []match
	for _, sub := range p.re.FindAllStringSubmatch(sentence, -1) {
		switch len(sub) - 1 {
		case 0:
			out = append(out, match{task: sentence})
		case 1:
			out = append(out, match{task: strings.TrimSpace(sub[1])})
		default:
			out = append(out, match{
				ownerPhrase: strings.TrimSpace(sub[1]),
				task:        strings.TrimSpace(sub[2]),
			})
		}
	}
	return out
}

// Name-like words immediately before an action verb, or a leading speaker tag.
// These are case-sensitive.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b([A-Z][a-z]+)\s+will\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+)\s+can\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+)\s+should\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+),?\s+please\b`),
	regexp.MustCompile(`^([A-Z][a-z]+):\s`),
}

var (
	selfAssignRegex     = regexp.MustCompile(`(?i)\bI'll\b|\bI will\b|\bI can\b`)
	leadingSpeakerRegex = regexp.MustCompile(`^([A-Z][a-z]+):`)
)

// deadlineMatcher finds a deadline cue in a lower-cased sentence.
type deadlineMatcher struct {
	name string
	re   *regexp.Regexp
}

// Deadline cues in priority order. The first group is the deadline text.
var deadlineMatchers = []deadlineMatcher{
	{"weekday", regexp.MustCompile(`by\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)},
	{"relative_week", regexp.MustCompile(`by\s+(next week|this week|end of week)`)},
	{"near_term", regexp.MustCompile(`by\s+(tomorrow|today|end of day)`)},
	{"numeric_date", regexp.MustCompile(`by\s+(\d{1,2}/\d{1,2})`)},
	{"month_day", regexp.MustCompile(`by\s+((?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2})`)},
	{"offset", regexp.MustCompile(`in\s+(\d+\s+(?:days?|weeks?|months?))`)},
	{"urgency", regexp.MustCompile(`(asap|urgent|immediately)`)},
}

func (m deadlineMatcher) find(lower string) (string, bool) {
	sub := m.re.FindStringSubmatch(lower)
	if sub == nil {
		return "", false
	}
	if len(sub) > 1 {
		return sub[1], true
	}
	return sub[0], true
}

// priorityRule assigns a priority when any indicator occurs in the sentence.
type priorityRule struct {
	priority   Priority
	indicators []string
}

var priorityRules = []priorityRule{
	{PriorityHigh, []string{"urgent", "asap", "critical", "immediately", "priority", "important"}},
	{PriorityMedium, []string{"soon", "this week", "next week", "should"}},
	{PriorityLow, []string{"when possible", "eventually", "nice to have", "if time permits"}},
}

var (
	strongVerbs  = []string{"will", "send", "prepare", "schedule", "follow up", "review", "complete"}
	hedgingTerms = []string{"maybe", "perhaps", "might", "could"}
)

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
