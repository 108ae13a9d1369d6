package transcript

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
)

// Length bounds for a transcript that processes well, exclusive.
const (
	MinReasonableWords = 100
	MaxReasonableWords = 50000

	wordsPerMinute = 1000
)

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[inaudible\]`),
	regexp.MustCompile(`(?i)\[crosstalk\]`),
	regexp.MustCompile(`(?i)\[background noise\]`),
	regexp.MustCompile(`(?i)\(laughter\)`),
	regexp.MustCompile(`(?i)\(coughing\)`),
	regexp.MustCompile(`(?i)\bum+\b,?`),
	regexp.MustCompile(`(?i)\buh+\b,?`),
}

var (
	repeatedLikeRegex = regexp.MustCompile(`(?i)\b(like)(?:\s+like\b)+`)

	// 10:00, 1:02:03, 10:00 AM, optionally wrapped in [] or ().
	timestampRegex        = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?(?:\s*(?:AM|PM))?\b`)
	wrappedTimestampRegex = regexp.MustCompile(`[\[(]?\b\d{1,2}:\d{2}(?::\d{2})?(?:\s*(?:AM|PM))?\b[\])]?`)
)

// Speaker labels at the start of a cleaned line.
var speakerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^([A-Z][a-z]+ [A-Z][a-z]+):\s*`),
	regexp.MustCompile(`(?m)^([A-Z][a-z]+):\s*`),
	regexp.MustCompile(`(?m)^\[([^\]]+)\]:\s*`),
	regexp.MustCompile(`(?m)^([A-Z]\w*)\s+-\s+`),
}

// Parse cleans raw transcript text and detects its speakers.
// Empty or whitespace-only input fails with ErrEmptyTranscript.
func Parse(raw string) (*Transcript, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, merrors.ErrEmptyTranscript
	}

	cleaned := Clean(raw)
	return &Transcript{
		Raw:              raw,
		Cleaned:          cleaned,
		Speakers:         DetectSpeakers(cleaned),
		TimestampMarkers: timestampMarkers(raw),
		WordCount:        len(strings.Fields(cleaned)),
		Format:           FormatPlain,
	}, nil
}

// ParseSegments renders structured segments as "Speaker: text" lines and
// parses the result. Segment speakers are merged into the detected set.
func ParseSegments(segments []Segment, format string) (*Transcript, error) {
	t, err := Parse(RenderSegments(segments))
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(t.Speakers))
	for _, s := range t.Speakers {
		set[s] = struct{}{}
	}
	maxEnd := 0
	for _, seg := range segments {
		if seg.Speaker != "" {
			set[seg.Speaker] = struct{}{}
		}
		maxEnd = max(maxEnd, seg.EndMs, seg.StartMs)
	}

	t.Speakers = sortedKeys(set)
	t.Format = format
	t.Segments = segments
	t.DurationSeconds = maxEnd / 1000
	return t, nil
}

// RenderSegments writes one line per segment, prefixed with the speaker when known.
func RenderSegments(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Clean removes filler and noise markers and timestamps, collapses runs of
// spaces inside lines, trims every line and keeps at most one blank line
// between paragraphs.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for _, re := range noisePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = repeatedLikeRegex.ReplaceAllString(text, "$1")
	text = wrappedTimestampRegex.ReplaceAllString(text, "")

	var (
		lines   []string
		pending bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			pending = len(lines) > 0
			continue
		}
		if pending {
			lines = append(lines, "")
			pending = false
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// DetectSpeakers returns the sorted unique speaker labels found at line starts.
func DetectSpeakers(text string) []string {
	set := make(map[string]struct{})
	for _, re := range speakerPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			set[m[1]] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func timestampMarkers(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ts := range timestampRegex.FindAllString(text, -1) {
		if _, ok := seen[ts]; ok {
			continue
		}
		seen[ts] = struct{}{}
		out = append(out, ts)
	}
	return out
}

var (
	labelledLineRegex = regexp.MustCompile(`(?m)^\s*(?:[A-Z][a-z]+(?: [A-Z][a-z]+)?|\[[^\]]+\]):`)
	clockRegex        = regexp.MustCompile(`\d{1,2}:\d{2}`)
)

// Validate reports which features of a well-formed transcript raw has.
func Validate(raw string) FormatReport {
	words := len(strings.Fields(raw))
	return FormatReport{
		HasSpeakers:      labelledLineRegex.MatchString(raw),
		HasTimestamps:    clockRegex.MatchString(raw),
		ReasonableLength: words > MinReasonableWords && words < MaxReasonableWords,
		HasDialogue:      strings.ContainsAny(raw, `"'`),
	}
}

// EstimateProcessingTime estimates processing at one minute per thousand
// words, never less than a minute.
func EstimateProcessingTime(words int) time.Duration {
	return time.Duration(max(1, words/wordsPerMinute)) * time.Minute
}

// DescribeEstimate renders an estimate for people.
func DescribeEstimate(d time.Duration) string {
	minutes := int(d / time.Minute)
	if minutes <= 1 {
		return "Less than 1 minute"
	}
	return fmt.Sprintf("About %d minutes", minutes)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
