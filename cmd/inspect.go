package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/minutes-cli/pkg/actions"
	"github.com/otherjamesbrown/minutes-cli/pkg/chunker"
	"github.com/otherjamesbrown/minutes-cli/pkg/transcript"
)

// ChunkReport is the output of the chunk command.
type ChunkReport struct {
	File    string              `json:"file" yaml:"file"`
	Summary chunker.Summary     `json:"summary" yaml:"summary"`
	Chunks  []chunker.TextChunk `json:"chunks,omitempty" yaml:"chunks,omitempty"`
}

// ValidationReport is the output of the validate command.
type ValidationReport struct {
	File              string                  `json:"file" yaml:"file"`
	Format            string                  `json:"format" yaml:"format"`
	Words             int                     `json:"words" yaml:"words"`
	Speakers          []string                `json:"speakers" yaml:"speakers"`
	Checks            transcript.FormatReport `json:"checks" yaml:"checks"`
	Ready             bool                    `json:"ready" yaml:"ready"`
	EstimatedMinutes  int                     `json:"estimated_minutes" yaml:"estimated_minutes"`
	EstimateDescribed string                  `json:"estimate" yaml:"estimate"`
}

// NewChunkCommand creates the chunk command.
func NewChunkCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var (
		maxWords int
		overlap  int
		showAll  bool
	)

	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Show how a transcript would be chunked",
		Long: `Split a transcript into overlapping word chunks and print the chunking summary.

Chunks end at a sentence or speaker break near the word limit when one exists.

Examples:
  minutes chunk standup.txt
  minutes chunk standup.txt --max-words 400 --overlap 40 --chunks
  minutes chunk standup.vtt --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			ccfg := pipelineConfig(cfg).Chunker
			if cmd.Flags().Changed("max-words") {
				ccfg.MaxWordsPerChunk = maxWords
			}
			if cmd.Flags().Changed("overlap") {
				ccfg.OverlapWords = overlap
			}
			c, err := chunker.New(ccfg)
			if err != nil {
				return err
			}

			t, err := transcript.Load(args[0])
			if err != nil {
				return err
			}
			chunks := c.Chunk(t.Cleaned, t.Speakers)
			rep := ChunkReport{File: args[0], Summary: chunker.Summarize(chunks)}
			if showAll {
				rep.Chunks = chunks
			}

			format, err := resolveOutput("", cfg)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, rep, func(w io.Writer) error {
				return printChunkReport(w, rep, chunks, showAll)
			})
		},
	}

	cmd.Flags().IntVar(&maxWords, "max-words", 0, "Maximum words per chunk")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "Words shared between consecutive chunks")
	cmd.Flags().BoolVar(&showAll, "chunks", false, "List every chunk")
	return cmd
}

func printChunkReport(w io.Writer, rep ChunkReport, chunks []chunker.TextChunk, showAll bool) error {
	s := rep.Summary
	fmt.Fprintf(w, "File:             %s\n", rep.File)
	fmt.Fprintf(w, "Chunks:           %d\n", s.TotalChunks)
	fmt.Fprintf(w, "Words:            %d\n", s.TotalWords)
	fmt.Fprintf(w, "Avg words/chunk:  %d\n", s.AvgWordsPerChunk)
	fmt.Fprintf(w, "Speakers:         %d", s.UniqueSpeakers)
	if len(s.SpeakersFound) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(s.SpeakersFound, ", "))
	}
	fmt.Fprintln(w)

	if !showAll {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWORDS\tSPAN\tSPEAKERS\tSTARTS WITH")
	for _, c := range chunks {
		fmt.Fprintf(tw, "%d\t%d\t%d-%d\t%s\t%s\n",
			c.ChunkID, c.WordCount, c.StartPosition, c.EndPosition,
			strings.Join(c.Speakers, ","), truncateString(strings.Join(strings.Fields(c.Content), " "), 50))
	}
	return tw.Flush()
}

// NewActionsCommand creates the actions command.
func NewActionsCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var minConfidence float64

	cmd := &cobra.Command{
		Use:   "actions <file>",
		Short: "Extract action items from a transcript",
		Long: `Extract action items from a transcript with pattern matching only.

Each item gets an owner (a known speaker or a name before the verb), a
deadline phrase, a priority, and a confidence score. Items below
--min-confidence are dropped.

Examples:
  minutes actions standup.txt
  minutes actions standup.txt --min-confidence 0.8
  minutes actions standup.txt --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			pc := pipelineConfig(cfg)
			if cmd.Flags().Changed("min-confidence") {
				pc.MinActionConfidence = minConfidence
			}
			if pc.MinActionConfidence < 0 || pc.MinActionConfidence > 1 {
				return fmt.Errorf("--min-confidence must be between 0 and 1")
			}

			ex, err := actions.NewExtractor(pc.Extractor, deps.logger())
			if err != nil {
				return err
			}
			t, err := transcript.Load(args[0])
			if err != nil {
				return err
			}
			items := actions.FilterByConfidence(ex.Extract(t.Cleaned, t.Speakers), pc.MinActionConfidence)

			format, err := resolveOutput("", cfg)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, items, func(w io.Writer) error {
				return printActionItems(w, items)
			})
		},
	}

	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Minimum confidence (0-1)")
	return cmd
}

func printActionItems(w io.Writer, items []actions.ActionItem) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No action items found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tOWNER\tDEADLINE\tCONF\tTASK")
	for _, it := range items {
		e := it.ToEntry()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n",
			it.Priority, e.DisplayOwner(), e.DisplayDeadline(), it.Confidence, truncateString(it.Task, 70))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d action items\n", len(items))
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a transcript's format before processing",
		Long: `Check whether a transcript has speaker labels, timestamps, dialogue and a
reasonable length, and estimate how long processing will take.

Examples:
  minutes validate standup.txt
  minutes validate recording.vtt --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			t, err := transcript.Load(args[0])
			if err != nil {
				return err
			}

			checks := transcript.Validate(t.Raw)
			est := transcript.EstimateProcessingTime(t.WordCount)
			rep := ValidationReport{
				File:              args[0],
				Format:            t.Format,
				Words:             t.WordCount,
				Speakers:          t.Speakers,
				Checks:            checks,
				Ready:             checks.OK(),
				EstimatedMinutes:  int(est.Minutes()),
				EstimateDescribed: transcript.DescribeEstimate(est),
			}

			format, err := resolveOutput("", cfg)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, rep, func(w io.Writer) error {
				return printValidation(w, rep)
			})
		},
	}
}

func printValidation(w io.Writer, rep ValidationReport) error {
	mark := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}
	fmt.Fprintf(w, "File:      %s (%s)\n", rep.File, rep.Format)
	fmt.Fprintf(w, "Words:     %d\n", rep.Words)
	fmt.Fprintf(w, "Speakers:  %d\n", len(rep.Speakers))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s speaker labels\n", mark(rep.Checks.HasSpeakers))
	fmt.Fprintf(w, "  %s timestamps\n", mark(rep.Checks.HasTimestamps))
	fmt.Fprintf(w, "  %s reasonable length\n", mark(rep.Checks.ReasonableLength))
	fmt.Fprintf(w, "  %s dialogue\n", mark(rep.Checks.HasDialogue))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Estimated processing time: %s\n", rep.EstimateDescribed)
	return nil
}
