// Package main provides the minutes CLI entry point.
// minutes turns meeting transcripts into structured minutes with action items.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/minutes-cli/cmd"
	"github.com/otherjamesbrown/minutes-cli/config"
	"github.com/otherjamesbrown/minutes-cli/pkg/buildinfo"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/runlog"
)

const binaryName = "minutes"

// Global flags and state.
var (
	cfgFile      string
	timeout      time.Duration
	outputFormat string
	debug        bool

	// cfg holds the loaded configuration.
	cfg *config.CLIConfig

	// commandDeps is shared by every subcommand.
	commandDeps = cmd.DefaultDeps()

	cmdStartTime  time.Time
	cancelTimeout context.CancelFunc
)

// skipInit lists commands that run without configuration.
var skipInit = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   binaryName,
	Short: "Generate meeting minutes and action items from transcripts",
	Long: `minutes turns meeting transcripts into structured minutes.

Transcripts are split into overlapping chunks, each chunk is summarized by
an AI provider (with a pattern-based fallback), and action items are
extracted, deduplicated and merged into a single report.

COMMON WORKFLOWS:
  Process a transcript:   minutes process meeting.txt --format markdown
  Process a folder:       minutes process ./transcripts --out ./minutes
  Watch for new files:    minutes watch ./inbox --out ./minutes
  Inspect chunking:       minutes chunk meeting.txt --max-words 1500
  Configure a provider:   minutes auth set anthropic

Use --output json or --output yaml for machine-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		cmdStartTime = time.Now()

		if skipInit[c.Name()] {
			return nil
		}

		if err := config.LoadDotEnv(); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}

		var err error
		if cfgFile != "" {
			cfg, err = config.LoadConfigFrom(cfgFile)
		} else {
			cfg, err = config.LoadConfig()
		}
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		// Flags override file and environment.
		if timeout != 0 {
			cfg.Timeout = timeout
		}
		if outputFormat != "" {
			f := config.OutputFormat(strings.ToLower(outputFormat))
			if !f.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", outputFormat)
			}
			cfg.OutputFormat = f
		}
		if debug {
			cfg.Debug = true
		}

		level := logging.LevelInfo
		if cfg.Debug {
			level = logging.LevelDebug
		}
		logger := logging.NewLogger(&logging.Config{
			Level:     level,
			Component: binaryName,
		})
		logging.SetGlobal(logger)

		commandDeps.Config = cfg
		commandDeps.Logger = logger

		// watch runs until interrupted.
		if c.Name() != "watch" && cfg.Timeout > 0 {
			ctx, cancel := context.WithTimeout(c.Context(), cfg.Timeout)
			cancelTimeout = cancel
			c.SetContext(ctx)
		}
		return nil
	},
	PersistentPostRun: func(c *cobra.Command, args []string) {
		if cancelTimeout != nil {
			cancelTimeout()
		}
	},
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the minutes CLI.

Examples:
  minutes version
  minutes version --output json`,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get(binaryName)
		switch config.OutputFormat(strings.ToLower(outputFormat)) {
		case config.OutputFormatJSON:
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case config.OutputFormatYAML:
			return yaml.NewEncoder(c.OutOrStdout()).Encode(info)
		default:
			fmt.Fprintf(c.OutOrStdout(), "%s %s\n", binaryName, buildinfo.String())
			return nil
		}
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for minutes.

Bash:
  $ source <(minutes completion bash)

Zsh:
  $ minutes completion zsh > "${fpath[1]}/_minutes"

Fish:
  $ minutes completion fish | source

PowerShell:
  PS> minutes completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(c *cobra.Command, args []string) error {
		out := c.OutOrStdout()
		switch args[0] {
		case "bash":
			return c.Root().GenBashCompletion(out)
		case "zsh":
			return c.Root().GenZshCompletion(out)
		case "fish":
			return c.Root().GenFishCompletion(out, true)
		default:
			return c.Root().GenPowerShellCompletionWithDesc(out)
		}
	},
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.minutes/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "command timeout (e.g., 2m, 10m)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "minutes", Title: "Minutes:"},
		&cobra.Group{ID: "inspect", Title: "Inspection:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	add := func(group string, cmds ...*cobra.Command) {
		for _, c := range cmds {
			c.GroupID = group
			rootCmd.AddCommand(c)
		}
	}

	add("minutes",
		cmd.NewProcessCommand(commandDeps),
		cmd.NewWatchCommand(commandDeps),
		cmd.NewHistoryCommand(commandDeps),
	)
	add("inspect",
		cmd.NewChunkCommand(commandDeps),
		cmd.NewActionsCommand(commandDeps),
		cmd.NewValidateCommand(commandDeps),
	)
	add("setup",
		cmd.NewConfigCommand(commandDeps, configPath),
		cmd.NewAuthCommand(commandDeps),
		completionCmd,
		versionCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cmdErr := rootCmd.ExecuteContext(ctx)
	stop()

	logCommandExecution(os.Args, cmdErr)

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

// logCommandExecution records the command in the run log when one is
// configured. Failures never change the command result.
func logCommandExecution(args []string, cmdErr error) {
	if cfg == nil || strings.TrimSpace(cfg.RunLog.DSN) == "" {
		return
	}
	name := getCommandName(args)
	if skipInit[name] {
		return
	}

	entry := runlog.NewEntry(name, getCommandArgs(args), cmdStartTime, cmdErr)
	if host, err := os.Hostname(); err == nil {
		entry.Hostname = host
	}

	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := runlog.NewClient(logCtx, cfg.RunLog.DSN)
	if err != nil {
		if cfg.Debug {
			fmt.Fprintf(os.Stderr, "Warning: failed to connect to run log: %v\n", err)
		}
		return
	}
	defer client.Close()

	if err := client.LogCommand(logCtx, entry); err != nil && cfg.Debug {
		fmt.Fprintf(os.Stderr, "Warning: failed to log command: %v\n", err)
	}
}

// getCommandName extracts the command name from args (e.g., "process" from ["minutes", "process", "a.txt"]).
func getCommandName(args []string) string {
	for i := 1; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "-") {
			return args[i]
		}
	}
	return binaryName
}

// getCommandArgs extracts the arguments after the command name.
func getCommandArgs(args []string) []string {
	for i := 1; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "-") {
			if i+1 >= len(args) {
				return nil
			}
			return args[i+1:]
		}
	}
	return nil
}
