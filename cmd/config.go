package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/minutes-cli/config"
)

// NewConfigCommand creates the config command group. path returns the
// config file in use.
func NewConfigCommand(deps *CommandDeps, path func() (string, error)) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	if path == nil {
		path = config.ConfigPath
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  `View and modify the minutes configuration file.`,
	}
	cmd.AddCommand(newConfigShowCommand(deps, path))
	cmd.AddCommand(newConfigInitCommand(path))
	cmd.AddCommand(newConfigSetCommand(path))
	return cmd
}

func newConfigShowCommand(deps *CommandDeps, path func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after defaults, the config file and MINUTES_*
environment variables are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			p, _ := path()
			format, err := resolveOutput("", cfg)
			if err != nil {
				return err
			}
			shown := *cfg
			shown.Archive.DSN = redactDSN(cfg.Archive.DSN)
			shown.RunLog.DSN = redactDSN(cfg.RunLog.DSN)
			return writeOutput(cmd.OutOrStdout(), format, &shown, func(w io.Writer) error {
				fmt.Fprintf(w, "# Config file: %s\n", p)
				return yaml.NewEncoder(w).Encode(&shown)
			})
		},
	}
}

func newConfigInitCommand(path func() (string, error)) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := path()
			if err != nil {
				return fmt.Errorf("getting config path: %w", err)
			}
			out := cmd.OutOrStdout()

			if _, err := os.Stat(p); err == nil && !force {
				fmt.Fprintf(out, "Configuration file already exists: %s\n", p)
				fmt.Fprintln(out, "Use 'minutes config show' to view current settings, or --force to overwrite.")
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			defaults := config.DefaultConfig()
			if err := config.SaveConfigTo(defaults, p); err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}

			fmt.Fprintf(out, "Created configuration file: %s\n", p)
			fmt.Fprintf(out, "  Providers:       %s\n", strings.Join(defaults.AI.Providers, ", "))
			fmt.Fprintf(out, "  Words per chunk: %d (overlap %d)\n", defaults.Processing.MaxWordsPerChunk, defaults.Processing.OverlapWords)
			fmt.Fprintf(out, "  Report format:   %s\n", defaults.Processing.OutputFormat)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigSetCommand(path func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the config file. Keys use the file's dotted
names.

Available keys:
  ` + strings.Join(config.Keys(), "\n  ") + `

Examples:
  minutes config set processing.max_words_per_chunk 600
  minutes config set ai.providers gemini,anthropic
  minutes config set cache.enabled true
  minutes config set timeout 15m`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			p, err := path()
			if err != nil {
				return fmt.Errorf("getting config path: %w", err)
			}
			cfg, err := config.LoadFileConfig(p)
			if err != nil {
				return err
			}
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := config.SaveConfigTo(cfg, p); err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// redactDSN hides the password in a postgres URL.
func redactDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || scheme > at {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return dsn
	}
	return dsn[:scheme+3] + user + ":****" + dsn[at:]
}
