package textutil

import (
	"regexp"
	"sort"
)

// BreakMatcher finds candidate break offsets of one kind inside a text window.
// The reported offset is where the preceding chunk should end.
type BreakMatcher struct {
	Name    string
	pattern *regexp.Regexp
}

// Offsets returns the byte offsets of every match in window.
func (m BreakMatcher) Offsets(window string) []int {
	locs := m.pattern.FindAllStringIndex(window, -1)
	offsets := make([]int, len(locs))
	for i, loc := range locs {
		offsets[i] = loc[0]
	}
	return offsets
}

// BreakMatchers lists the natural break kinds in preference order. RE2 has no
// lookahead, so the speaker and sentence matchers consume the following tag or
// capital letter and only the match start is used.
var BreakMatchers = []BreakMatcher{
	{Name: "paragraph", pattern: regexp.MustCompile(`\n\n+`)},
	{Name: "speaker", pattern: regexp.MustCompile(`\n[A-Z][a-z]+:`)},
	{Name: "bracketed_speaker", pattern: regexp.MustCompile(`\n\[[^\]]+\]:`)},
	{Name: "sentence", pattern: regexp.MustCompile(`\.\s+[A-Z]`)},
}

// FindBreakPoint picks the word index at which a chunk starting at word start
// should end, given the ideal end target. It searches words
// [max(start, target-lookback), target+lookahead) and, within the first
// matcher kind with any hit, takes the hit closest to the target edge.
// It returns target when nothing matches or the best hit would not move past
// start.
func FindBreakPoint(text string, spans []Span, start, target, lookback, lookahead int) int {
	if target >= len(spans) || target <= start {
		return target
	}

	searchStart := max(start, target-lookback)
	searchEnd := min(len(spans), target+lookahead)

	base := spans[searchStart].Start
	window := text[base:spans[searchEnd-1].End]
	targetOffset := spans[target].Start - base

	for _, m := range BreakMatchers {
		offsets := m.Offsets(window)
		if len(offsets) == 0 {
			continue
		}

		best := offsets[0]
		for _, off := range offsets[1:] {
			if abs(off-targetOffset) < abs(best-targetOffset) {
				best = off
			}
		}

		// First word starting at or after the break.
		pos := base + best
		idx := sort.Search(len(spans), func(i int) bool { return spans[i].Start >= pos })
		if idx <= start {
			return target
		}
		return idx
	}

	return target
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
