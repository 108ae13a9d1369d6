package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/minutes-cli/config"
	"github.com/otherjamesbrown/minutes-cli/credentials"
	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
)

var knownProviders = []string{summarizer.KindAnthropic, summarizer.KindOpenAI, summarizer.KindGemini}

const minAPIKeyLength = 8

// AuthStatus is one row of 'auth status'.
type AuthStatus struct {
	Provider string `json:"provider" yaml:"provider"`
	Source   string `json:"source" yaml:"source"`
	Masked   string `json:"masked,omitempty" yaml:"masked,omitempty"`
}

// NewAuthCommand creates the auth command group.
func NewAuthCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage summarization provider API keys",
		Long: `Manage API keys for the summarization providers (anthropic, openai, gemini).

Keys are stored encrypted in ~/.minutes/credentials.yaml. The encryption key
comes from MINUTES_ENCRYPTION_KEY, MINUTES_PASSPHRASE, or the system keyring.

Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, ...)
take precedence over stored keys.`,
	}

	cmd.AddCommand(newAuthSetCommand())
	cmd.AddCommand(newAuthStatusCommand(deps))
	cmd.AddCommand(newAuthRemoveCommand())
	return cmd
}

func newAuthSetCommand() *cobra.Command {
	var (
		apiKey         string
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key for a provider",
		Long: `Store an API key for a provider. Without --api-key the key is read from
the terminal without echo, or from stdin when it is not a terminal.

Examples:
  minutes auth set anthropic
  minutes auth set openai --api-key sk-...
  echo "$KEY" | minutes auth set gemini`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := normalizeProvider(args[0])
			if err != nil {
				return err
			}

			key := apiKey
			if key == "" {
				if nonInteractive {
					return errors.New("no API key provided and --non-interactive set")
				}
				key, err = promptForKey(cmd.InOrStdin(), cmd.ErrOrStderr(), provider)
				if err != nil {
					return err
				}
			}
			if err := validateAPIKey(key); err != nil {
				return err
			}

			store, err := credentials.NewStore()
			if err != nil {
				return fmt.Errorf("initializing credential store: %w", err)
			}
			if err := store.Set(provider, key); err != nil {
				return fmt.Errorf("saving API key: %w", err)
			}

			out := cmd.OutOrStdout()
			path, _ := credentials.CredentialsPath()
			fmt.Fprintf(out, "Stored %s key %s\n", provider, credentials.MaskAPIKey(strings.TrimSpace(key)))
			fmt.Fprintf(out, "  File:       %s\n", path)
			fmt.Fprintf(out, "  Encryption: %s\n", store.KeyDescription())
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to store")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Fail instead of prompting for input")
	return cmd
}

func newAuthStatusCommand(deps *CommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which providers have API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			keys, err := config.LoadProviderKeys()
			if err != nil {
				return err
			}

			stored := map[string]credentials.Status{}
			if path, err := credentials.CredentialsPath(); err == nil {
				if _, err := os.Stat(path); err == nil {
					store, err := credentials.NewStore()
					if err != nil {
						return fmt.Errorf("initializing credential store: %w", err)
					}
					list, err := store.List()
					if err != nil {
						return err
					}
					for _, s := range list {
						stored[s.Provider] = s
					}
				}
			}

			statuses := authStatuses(keys, stored)
			format, err := resolveOutput("", cfg)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, statuses, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PROVIDER\tSOURCE\tKEY")
				for _, s := range statuses {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Provider, s.Source, s.Masked)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(w, "\nProvider chain: %s\n", strings.Join(cfg.AI.Providers, " → "))
				return nil
			})
		},
	}
}

func newAuthRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <provider>",
		Aliases: []string{"rm"},
		Short:   "Remove a stored API key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := normalizeProvider(args[0])
			if err != nil {
				return err
			}
			store, err := credentials.NewStore()
			if err != nil {
				return fmt.Errorf("initializing credential store: %w", err)
			}
			if err := store.Delete(provider); err != nil {
				return fmt.Errorf("removing API key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed stored %s key\n", provider)
			return nil
		},
	}
}

// authStatuses reports, per provider, whether the key comes from the
// environment, the credential store, or nowhere.
func authStatuses(keys *config.ProviderKeys, stored map[string]credentials.Status) []AuthStatus {
	out := make([]AuthStatus, 0, len(knownProviders))
	for _, p := range knownProviders {
		s := AuthStatus{Provider: p, Source: "none"}
		if env := keys.For(p); len(env) > 0 {
			s.Source = "environment"
			s.Masked = credentials.MaskAPIKey(env[0])
			if len(env) > 1 {
				s.Masked += fmt.Sprintf(" (+%d)", len(env)-1)
			}
		} else if st, ok := stored[p]; ok {
			s.Source = "stored"
			s.Masked = st.Masked
		}
		out = append(out, s)
	}
	return out
}

func normalizeProvider(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	for _, k := range knownProviders {
		if p == k {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (must be one of %s)", p, strings.Join(knownProviders, ", "))
}

func validateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key is empty")
	}
	if len(key) < minAPIKeyLength {
		return errors.New("API key is too short")
	}
	if strings.ContainsAny(key, " \t\n") {
		return errors.New("API key must not contain whitespace")
	}
	return nil
}

// promptForKey reads a key with echo disabled when in is a terminal, and as
// a plain line otherwise.
func promptForKey(in io.Reader, prompt io.Writer, provider string) (string, error) {
	fmt.Fprintf(prompt, "%s API key: ", provider)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
