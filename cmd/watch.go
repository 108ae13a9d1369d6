package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/minutes-cli/pkg/buildinfo"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/observability"
	"github.com/otherjamesbrown/minutes-cli/pkg/pipeline"
	"github.com/otherjamesbrown/minutes-cli/pkg/report"
	"github.com/otherjamesbrown/minutes-cli/pkg/store"
	"github.com/otherjamesbrown/minutes-cli/pkg/watcher"
)

// watchOptions holds the watch command flags.
type watchOptions struct {
	out           string
	format        string
	maxConcurrent int
	settle        time.Duration
	existing      bool
	metricsAddr   string
	archive       bool
	noAI          bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Process transcripts as they arrive in a directory",
		Long: `Watch a directory and generate minutes for every transcript written to it.

Files are handled once they stop changing for --settle. At most
--max-concurrent transcripts are processed at the same time. Reports are
written to --out (default: next to each transcript).

With --metrics-addr, Prometheus metrics are served at /metrics and build
information at /version.

Examples:
  minutes watch ./inbox
  minutes watch ./inbox --out ./minutes --format html --max-concurrent 4
  minutes watch ./inbox --existing --archive --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), deps, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.out, "out", "", "Output directory for reports")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Report format: markdown, text, html, docx, json")
	cmd.Flags().IntVar(&opts.maxConcurrent, "max-concurrent", watcher.DefaultMaxConcurrent, "Transcripts processed at once")
	cmd.Flags().DurationVar(&opts.settle, "settle", watcher.DefaultSettleDelay, "Wait for writes to stop before processing")
	cmd.Flags().BoolVar(&opts.existing, "existing", false, "Also process transcripts already in the directory")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /version on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Save results to the Postgres archive")
	cmd.Flags().BoolVar(&opts.noAI, "no-ai", false, "Skip summarization providers and use keyword summaries")

	return cmd
}

func runWatch(ctx context.Context, deps *CommandDeps, opts *watchOptions, dir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	base, err := deps.config()
	if err != nil {
		return err
	}
	cfg := *base
	if opts.format != "" {
		cfg.Processing.OutputFormat = opts.format
	}
	if opts.noAI {
		cfg.AI.Disabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Processing.OutputFormat)
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	logger := deps.logger().With(logging.F("command", "watch"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	summ, cleanup, err := deps.summarizer(ctx, &cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("initializing summarizer: %w", err)
	}
	defer cleanup()

	popts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithMetrics(metrics)}
	if opts.archive {
		archive, err := deps.archive(ctx, &cfg)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer archive.Close()
		popts = append(popts, pipeline.WithArchive(archive))
		if a, ok := archive.(*store.Archive); ok {
			if err := store.RegisterPoolStats(a.Pool(), reg); err != nil {
				logger.Warn("Pool metrics unavailable", logging.Err(err))
			}
		}
	}

	proc, err := pipeline.New(summ, pipelineConfig(&cfg), popts...)
	if err != nil {
		return err
	}
	gen := report.NewGenerator(report.Config{
		IncludeConfidence: cfg.Processing.IncludeConfidenceScores,
		GroupByOwner:      cfg.Processing.GroupActionsByOwner,
	})

	handler := func(ctx context.Context, path string) error {
		if isReport(path) {
			logger.Debug("Skipping generated report", logging.F("path", path))
			return nil
		}
		res, err := proc.ProcessFile(ctx, path)
		if err != nil {
			return err
		}
		out, err := gen.Export(&res.Summary, outputBase(path, opts.out, opts.out != ""), format)
		if err != nil {
			return err
		}
		logger.Info("Minutes written",
			logging.F("path", out),
			logging.F("action_items", len(res.Summary.ActionItems)))
		return nil
	}

	w, err := watcher.New(watcher.Config{
		Dir:             dir,
		MaxConcurrent:   opts.maxConcurrent,
		SettleDelay:     opts.settle,
		ProcessExisting: opts.existing,
	}, handler, logger)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		srv := newMetricsServer(opts.metricsAddr, reg)
		go func() {
			logger.Info("Serving metrics", logging.F("addr", opts.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// newMetricsServer serves reg at /metrics and build info at /version.
func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/version", buildinfo.Handler("minutes"))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
