package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/minutes-cli/pkg/report"
	"github.com/otherjamesbrown/minutes-cli/pkg/store"
	"github.com/otherjamesbrown/minutes-cli/runlog"
)

const defaultHistoryLimit = 20

// NewHistoryCommand creates the history command with its subcommands.
func NewHistoryCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived meeting minutes",
		Long: `List meeting minutes saved with 'minutes process --archive'.

Requires archive.dsn in the config file or MINUTES_DATABASE_URL.

Examples:
  minutes history
  minutes history --limit 5 --output json
  minutes history show 3f1c9b2e-...
  minutes history commands`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			archive, err := deps.archive(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer archive.Close()

			runs, err := archive.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			format, err := resolveOutput("", cfg)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, runs, func(w io.Writer) error {
				return printRuns(w, runs)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Maximum runs to list")

	cmd.AddCommand(newHistoryShowCommand(deps))
	cmd.AddCommand(newHistoryCommandsCommand(deps))
	return cmd
}

func newHistoryShowCommand(deps *CommandDeps) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print an archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == report.FormatDOCX {
				return errors.New("docx cannot be printed; use markdown, text, html or json")
			}

			cfg, err := deps.config()
			if err != nil {
				return err
			}
			archive, err := deps.archive(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer archive.Close()

			run, err := archive.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if run.Summary == nil {
				return fmt.Errorf("run %s has no stored summary", id)
			}
			gen := report.NewGenerator(report.Config{
				IncludeConfidence: cfg.Processing.IncludeConfidenceScores,
				GroupByOwner:      cfg.Processing.GroupActionsByOwner,
			})
			data, err := gen.Render(run.Summary, f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatMarkdown), "Report format: markdown, text, html, json")
	return cmd
}

func newHistoryCommandsCommand(deps *CommandDeps) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List recent CLI invocations from the run log",
		Long: `List recent minutes invocations recorded in the run log.

Requires run_log.dsn in the config file or MINUTES_RUNLOG_DSN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			if cfg.RunLog.DSN == "" {
				return errors.New("run log not configured: set run_log.dsn or MINUTES_RUNLOG_DSN")
			}
			if deps.OpenRunLog == nil {
				return errors.New("run log unavailable")
			}
			rl, err := deps.OpenRunLog(cmd.Context(), cfg.RunLog.DSN)
			if err != nil {
				return err
			}
			defer rl.Close()

			entries, err := rl.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			format, err := resolveOutput("", cfg)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, entries, func(w io.Writer) error {
				return printCommandLog(w, entries)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Maximum entries to list")
	return cmd
}

func printRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No archived runs.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE\tWORDS\tCHUNKS\tACTIONS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), truncateString(r.Title, 40),
			r.WordCount, r.ChunkCount, r.ActionCount, formatDurationMs(r.Duration.Milliseconds()))
	}
	return tw.Flush()
}

func printCommandLog(w io.Writer, entries []runlog.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No commands logged.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tSTATUS\tDURATION\tCOMMAND")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), status,
			formatDurationMs(int64(e.DurationMs)), truncateString(e.FullCommand, 60))
	}
	return tw.Flush()
}
