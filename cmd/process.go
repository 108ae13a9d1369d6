package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/minutes-cli/config"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/pipeline"
	"github.com/otherjamesbrown/minutes-cli/pkg/report"
	"github.com/otherjamesbrown/minutes-cli/pkg/transcript"
)

// processOptions holds the process command flags.
type processOptions struct {
	format        string
	out           string
	maxWords      int
	overlap       int
	minConfidence float64
	noAI          bool
	groupByOwner  bool
	confidence    bool
	archive       bool
}

// ProcessResult describes one processed transcript.
type ProcessResult struct {
	File           string `json:"file" yaml:"file"`
	Output         string `json:"output,omitempty" yaml:"output,omitempty"`
	RunID          string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
	Words          int    `json:"words" yaml:"words"`
	Chunks         int    `json:"chunks" yaml:"chunks"`
	ActionItems    int    `json:"action_items" yaml:"action_items"`
	FallbackChunks int    `json:"fallback_chunks" yaml:"fallback_chunks"`
	DurationMs     int64  `json:"duration_ms" yaml:"duration_ms"`
	Archived       bool   `json:"archived,omitempty" yaml:"archived,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process <path>",
		Short: "Generate meeting minutes from transcripts",
		Long: `Generate meeting minutes from a transcript file or a directory of transcripts.

Each transcript is cleaned, split into overlapping chunks, summarized through
the configured provider chain (falling back to a keyword summary), and its
action items are extracted and merged with the ones the providers found.

Supported inputs: .txt, .vtt, .md, .pdf

With a single file and no --out, the report is written to stdout.
With --out, a single file's report is written to that path; for a directory
--out names the output directory. Without --out, directory reports are
written next to each transcript as <name>_minutes.<ext>.

Examples:
  minutes process standup.txt
  minutes process standup.vtt --format html --out standup.html
  minutes process ./transcripts --format docx --out ./minutes
  minutes process board.pdf --no-ai --confidence
  minutes process ./transcripts --archive --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), deps, cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Report format: markdown, text, html, docx, json")
	cmd.Flags().StringVar(&opts.out, "out", "", "Output file (single transcript) or directory")
	cmd.Flags().IntVar(&opts.maxWords, "max-words", 0, "Maximum words per chunk")
	cmd.Flags().IntVar(&opts.overlap, "overlap", 0, "Words shared between consecutive chunks")
	cmd.Flags().Float64Var(&opts.minConfidence, "min-confidence", 0, "Minimum action item confidence (0-1)")
	cmd.Flags().BoolVar(&opts.noAI, "no-ai", false, "Skip summarization providers and use keyword summaries")
	cmd.Flags().BoolVar(&opts.groupByOwner, "group-by-owner", true, "Group action items by owner")
	cmd.Flags().BoolVar(&opts.confidence, "confidence", false, "Show action item confidence scores")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Save results to the Postgres archive")

	return cmd
}

// applyProcessFlags overlays explicitly set flags on a copy of cfg.
func applyProcessFlags(cmd *cobra.Command, cfg *config.CLIConfig, opts *processOptions) (*config.CLIConfig, error) {
	c := *cfg
	flags := cmd.Flags()

	if flags.Changed("max-words") {
		c.Processing.MaxWordsPerChunk = opts.maxWords
	}
	if flags.Changed("overlap") {
		c.Processing.OverlapWords = opts.overlap
	}
	if flags.Changed("min-confidence") {
		c.Processing.MinActionConfidence = opts.minConfidence
	}
	if flags.Changed("group-by-owner") {
		c.Processing.GroupActionsByOwner = opts.groupByOwner
	}
	if flags.Changed("confidence") {
		c.Processing.IncludeConfidenceScores = opts.confidence
	}
	if opts.format != "" {
		c.Processing.OutputFormat = opts.format
	}
	if opts.noAI {
		c.AI.Disabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func runProcess(ctx context.Context, deps *CommandDeps, cmd *cobra.Command, opts *processOptions, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	base, err := deps.config()
	if err != nil {
		return err
	}
	cfg, err := applyProcessFlags(cmd, base, opts)
	if err != nil {
		return err
	}
	listing, err := resolveOutput("", cfg)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Processing.OutputFormat)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	files, err := transcript.Scan(path)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}
	if info.IsDir() {
		files = withoutReports(files)
	}
	if len(files) == 0 {
		return fmt.Errorf("no transcripts found in %s (supported: .txt, .vtt, .md, .pdf)", path)
	}

	logger := deps.logger()
	summ, cleanup, err := deps.summarizer(ctx, cfg, logger, deps.Metrics)
	if err != nil {
		return fmt.Errorf("initializing summarizer: %w", err)
	}
	defer cleanup()

	popts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithMetrics(deps.Metrics)}
	if opts.archive {
		archive, err := deps.archive(ctx, cfg)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer archive.Close()
		popts = append(popts, pipeline.WithArchive(archive))
	}

	proc, err := pipeline.New(summ, pipelineConfig(cfg), popts...)
	if err != nil {
		return err
	}
	gen := report.NewGenerator(report.Config{
		IncludeConfidence: cfg.Processing.IncludeConfidenceScores,
		GroupByOwner:      cfg.Processing.GroupActionsByOwner,
	})

	out := cmd.OutOrStdout()
	toStdout := !info.IsDir() && opts.out == "" && format != report.FormatDOCX

	results := make([]ProcessResult, 0, len(files))
	failed := 0
	for _, file := range files {
		r := processOne(ctx, proc, gen, file, format, outputBase(file, opts.out, info.IsDir()), toStdout, out)
		if r.Error != "" {
			failed++
			logger.Error("Transcript failed", logging.F("file", file), logging.F("error", r.Error))
		}
		results = append(results, r)
		if ctx.Err() != nil {
			break
		}
	}

	if !toStdout {
		if err := writeOutput(out, listing, results, func(w io.Writer) error {
			return printProcessResults(w, results)
		}); err != nil {
			return err
		}
	}

	if failed > 0 {
		if len(files) == 1 {
			return errors.New(results[0].Error)
		}
		return fmt.Errorf("%d of %d transcripts failed", failed, len(files))
	}
	return nil
}

func processOne(ctx context.Context, proc *pipeline.Processor, gen *report.Generator, file string, format report.Format, base string, toStdout bool, out io.Writer) ProcessResult {
	r := ProcessResult{File: file}

	res, err := proc.ProcessFile(ctx, file)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	r.RunID = res.RunID.String()
	r.Title = res.Title
	r.Words = res.Transcript.WordCount
	r.Chunks = len(res.Chunks)
	r.ActionItems = len(res.Summary.ActionItems)
	r.FallbackChunks = res.Summary.Stats.FallbackChunks
	r.DurationMs = res.Duration.Milliseconds()
	r.Archived = res.Archived

	if toStdout {
		data, err := gen.Render(&res.Summary, format)
		if err != nil {
			r.Error = err.Error()
			return r
		}
		if _, err := out.Write(data); err != nil {
			r.Error = err.Error()
		}
		return r
	}

	path, err := gen.Export(&res.Summary, base, format)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Output = path
	return r
}

const reportSuffix = "_minutes"

// isReport reports whether path looks like a report this tool wrote.
func isReport(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), reportSuffix)
}

func withoutReports(files []string) []string {
	out := files[:0]
	for _, f := range files {
		if !isReport(f) {
			out = append(out, f)
		}
	}
	return out
}

// outputBase returns the report path for file before the format extension
// is applied.
func outputBase(file, out string, dirInput bool) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + reportSuffix
	switch {
	case out == "":
		return filepath.Join(filepath.Dir(file), name)
	case dirInput:
		return filepath.Join(out, name)
	default:
		return out
	}
}

func printProcessResults(w io.Writer, results []ProcessResult) error {
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "✗ %s: %s\n", r.File, r.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s → %s\n", r.File, r.Output)
		fmt.Fprintf(w, "    %d words, %d chunks, %d action items", r.Words, r.Chunks, r.ActionItems)
		if r.FallbackChunks > 0 {
			fmt.Fprintf(w, ", %d basic summaries", r.FallbackChunks)
		}
		fmt.Fprintf(w, " (%s)", formatDurationMs(r.DurationMs))
		if r.Archived {
			fmt.Fprint(w, " [archived]")
		}
		fmt.Fprintln(w)
	}
	return nil
}
