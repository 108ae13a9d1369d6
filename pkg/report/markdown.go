package report

import (
	"fmt"
	"strings"

	"github.com/otherjamesbrown/minutes-cli/pkg/actions"
	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
)

const textRule = 60

// Markdown renders the report as markdown.
func (g *Generator) Markdown(s *summarizer.MeetingSummary) string {
	var b strings.Builder
	at := g.generatedAt(s)

	heading := "# Meeting Minutes"
	if s.Title != "" {
		heading += ": " + s.Title
	}
	fmt.Fprintf(&b, "%s\n\n**Generated:** %s\n\n---\n\n", heading, at.Format("January 02, 2006 at 03:04 PM"))

	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", s.OverallSummary)

	if len(s.Attendees) > 0 {
		b.WriteString("## Attendees\n\n")
		for _, a := range s.Attendees {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}

	if len(s.KeyDecisions) > 0 {
		b.WriteString("## Key Decisions\n\n")
		for i, d := range s.KeyDecisions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, d)
		}
		b.WriteString("\n")
	}

	if len(s.ActionItems) > 0 {
		b.WriteString("## Action Items\n\n")
		if g.cfg.GroupByOwner {
			g.markdownGrouped(&b, s.ActionItems)
		} else {
			g.markdownList(&b, s.ActionItems)
		}
	}

	if len(s.MainTopics) > 0 {
		b.WriteString("## Topics Discussed\n\n")
		for _, t := range s.MainTopics {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\n*Meeting minutes generated by minutes on %s*\n", at.Format("2006-01-02"))
	return b.String()
}

func (g *Generator) markdownGrouped(b *strings.Builder, entries []actions.Entry) {
	for _, group := range actions.GroupByOwner(entries) {
		fmt.Fprintf(b, "### %s\n\n", group.Owner)
		for _, e := range group.Entries {
			line := "- " + e.Task
			if e.Deadline != "" {
				line += " **Due:** " + e.Deadline
			}
			if e.Priority != actions.PriorityMedium {
				line += " `" + strings.ToUpper(string(e.Priority)) + "`"
			}
			if g.cfg.IncludeConfidence && e.Confidence != nil {
				line += fmt.Sprintf(" _(confidence %.2f)_", *e.Confidence)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
}

func (g *Generator) markdownList(b *strings.Builder, entries []actions.Entry) {
	for i, e := range byPriority(entries) {
		fmt.Fprintf(b, "%d. %s\n", i+1, e.Task)

		var details []string
		if e.Owner != "" {
			details = append(details, "**Owner:** "+e.Owner)
		}
		if e.Deadline != "" {
			details = append(details, "**Due:** "+e.Deadline)
		}
		if e.Priority != actions.PriorityMedium {
			details = append(details, "**Priority:** "+titleWord(string(e.Priority)))
		}
		if g.cfg.IncludeConfidence && e.Confidence != nil {
			details = append(details, fmt.Sprintf("**Confidence:** %.2f", *e.Confidence))
		}
		if len(details) > 0 {
			fmt.Fprintf(b, "   %s\n", strings.Join(details, " - "))
		}
		b.WriteString("\n")
	}
}

// Text renders the report as plain text.
func (g *Generator) Text(s *summarizer.MeetingSummary) string {
	var b strings.Builder
	rule := strings.Repeat("=", textRule)
	sub := strings.Repeat("-", 20)

	b.WriteString(rule + "\nMEETING MINUTES\n" + rule + "\n")
	if s.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", s.Title)
	}
	fmt.Fprintf(&b, "Generated: %s\n\n", g.generatedAt(s).Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "EXECUTIVE SUMMARY\n%s\n%s\n\n", sub, s.OverallSummary)

	if len(s.Attendees) > 0 {
		fmt.Fprintf(&b, "ATTENDEES\n%s\n", sub)
		for _, a := range s.Attendees {
			fmt.Fprintf(&b, "• %s\n", a)
		}
		b.WriteString("\n")
	}

	if len(s.KeyDecisions) > 0 {
		fmt.Fprintf(&b, "KEY DECISIONS\n%s\n", sub)
		for i, d := range s.KeyDecisions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, d)
		}
		b.WriteString("\n")
	}

	if len(s.ActionItems) > 0 {
		fmt.Fprintf(&b, "ACTION ITEMS\n%s\n", sub)
		if g.cfg.GroupByOwner {
			for _, group := range actions.GroupByOwner(s.ActionItems) {
				fmt.Fprintf(&b, "\n%s:\n", group.Owner)
				for _, e := range group.Entries {
					fmt.Fprintf(&b, "  • %s%s\n", e.Task, g.textSuffix(e))
				}
			}
		} else {
			for i, e := range byPriority(s.ActionItems) {
				owner := ""
				if e.Owner != "" {
					owner = " - " + e.Owner
				}
				fmt.Fprintf(&b, "%d. %s%s%s\n", i+1, e.Task, owner, g.textSuffix(e))
			}
		}
		b.WriteString("\n")
	}

	if len(s.MainTopics) > 0 {
		fmt.Fprintf(&b, "TOPICS DISCUSSED\n%s\n", sub)
		for _, t := range s.MainTopics {
			fmt.Fprintf(&b, "• %s\n", t)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\nEnd of Meeting Minutes\n")
	return b.String()
}

func (g *Generator) textSuffix(e actions.Entry) string {
	var suffix string
	if e.Deadline != "" {
		suffix += " (Due: " + e.Deadline + ")"
	}
	if e.Priority != actions.PriorityMedium {
		suffix += " [" + strings.ToUpper(string(e.Priority)) + "]"
	}
	if g.cfg.IncludeConfidence && e.Confidence != nil {
		suffix += fmt.Sprintf(" {%.2f}", *e.Confidence)
	}
	return suffix
}
