// Package textutil holds the sentence, word-span and similarity helpers shared
// by the chunker, the action item extractor and the merger.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var sentenceSplitRegex = regexp.MustCompile(`[.!?]+`)

// SplitSentences splits text on runs of '.', '!' and '?'. Fragments are
// trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	parts := sentenceSplitRegex.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// Span is the byte range of one whitespace-delimited word.
type Span struct {
	Start int
	End   int
}

// WordSpans returns the byte ranges of the whitespace-delimited words in text.
// It uses the same notion of whitespace as strings.Fields, so
// len(WordSpans(s)) == len(strings.Fields(s)).
func WordSpans(text string) []Span {
	spans := make([]Span, 0, len(text)/5)
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, Span{Start: start, End: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		spans = append(spans, Span{Start: start, End: len(text)})
	}
	return spans
}

// WordCount returns the number of whitespace-delimited words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
