// Package report renders a MeetingSummary as markdown, plain text, HTML,
// DOCX or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/otherjamesbrown/minutes-cli/pkg/actions"
	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
	FormatJSON     Format = "json"
)

var extensions = map[Format]string{
	FormatMarkdown: ".md",
	FormatText:     ".txt",
	FormatHTML:     ".html",
	FormatDOCX:     ".docx",
	FormatJSON:     ".json",
}

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatText, FormatHTML, FormatDOCX, FormatJSON}
}

// ParseFormat validates a format name. "md" and "txt" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "md":
		return FormatMarkdown, nil
	case "txt":
		return FormatText, nil
	case FormatMarkdown, FormatText, FormatHTML, FormatDOCX, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", merrors.ErrUnsupportedFormat, s)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return extensions[f]
}

// Config controls report layout.
type Config struct {
	IncludeConfidence bool
	GroupByOwner      bool
}

// DefaultConfig groups action items by owner and hides confidence scores.
func DefaultConfig() Config {
	return Config{GroupByOwner: true}
}

// Generator renders reports.
type Generator struct {
	cfg Config
	now func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg, now: time.Now}
}

// Render returns the report in format f.
func (g *Generator) Render(s *summarizer.MeetingSummary, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(g.Markdown(s)), nil
	case FormatText:
		return []byte(g.Text(s)), nil
	case FormatHTML:
		out, err := g.HTML(s)
		return []byte(out), err
	case FormatJSON:
		return g.JSON(s)
	case FormatDOCX:
		return g.docxBytes(s)
	default:
		return nil, fmt.Errorf("%w: %s", merrors.ErrUnsupportedFormat, f)
	}
}

// Export writes the report next to base, replacing any extension with the
// one for f, and returns the written path.
func (g *Generator) Export(s *summarizer.MeetingSummary, base string, f Format) (string, error) {
	ext := f.Extension()
	if ext == "" {
		return "", fmt.Errorf("%w: %s", merrors.ErrUnsupportedFormat, f)
	}
	path := strings.TrimSuffix(base, filepath.Ext(base)) + ext

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}

	if f == FormatDOCX {
		if err := g.WriteDOCX(s, path); err != nil {
			return "", err
		}
		return path, nil
	}

	data, err := g.Render(s, f)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

type jsonReport struct {
	Title          string                     `json:"title"`
	GeneratedAt    time.Time                  `json:"generated_at"`
	OverallSummary string                     `json:"overall_summary"`
	Attendees      []string                   `json:"attendees"`
	KeyDecisions   []string                   `json:"key_decisions"`
	ActionItems    []actions.EntryView        `json:"action_items"`
	MainTopics     []string                   `json:"main_topics"`
	ChunkSummaries []summarizer.ChunkSummary  `json:"chunk_summaries"`
	Stats          summarizer.ProcessingStats `json:"stats"`
}

// JSON returns the report as indented JSON. Missing owners and deadlines
// are shown as TBD.
func (g *Generator) JSON(s *summarizer.MeetingSummary) ([]byte, error) {
	views := make([]actions.EntryView, 0, len(s.ActionItems))
	for _, e := range s.ActionItems {
		v := e.View()
		if !g.cfg.IncludeConfidence {
			v.Confidence = nil
		}
		views = append(views, v)
	}

	return json.MarshalIndent(jsonReport{
		Title:          s.Title,
		GeneratedAt:    g.generatedAt(s),
		OverallSummary: s.OverallSummary,
		Attendees:      nonNil(s.Attendees),
		KeyDecisions:   nonNil(s.KeyDecisions),
		ActionItems:    views,
		MainTopics:     nonNil(s.MainTopics),
		ChunkSummaries: s.ChunkSummaries,
		Stats:          s.Stats,
	}, "", "  ")
}

func (g *Generator) generatedAt(s *summarizer.MeetingSummary) time.Time {
	if !s.GeneratedAt.IsZero() {
		return s.GeneratedAt
	}
	return g.now()
}

// byPriority returns entries ordered high, medium, low; the sort is stable.
func byPriority(entries []actions.Entry) []actions.Entry {
	out := append([]actions.Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
