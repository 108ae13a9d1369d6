package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/minutes-cli/config"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/observability"
	"github.com/otherjamesbrown/minutes-cli/pkg/pipeline"
	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
)

// testConfig returns defaults with providers disabled.
func testConfig() *config.CLIConfig {
	cfg := config.DefaultConfig()
	cfg.AI.Disabled = true
	cfg.Processing.MaxWordsPerChunk = 60
	cfg.Processing.OverlapWords = 10
	return cfg
}

// basicSummarizer builds a summarizer that only produces keyword summaries.
func basicSummarizer(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger, metrics *observability.Metrics) (pipeline.ChunkSummarizer, func(), error) {
	return summarizer.New(nil, summarizer.Config{DisableAI: true}), func() {}, nil
}

func testDeps(cfg *config.CLIConfig) *CommandDeps {
	return &CommandDeps{
		Config:        cfg,
		Logger:        logging.NewNopLogger(),
		NewSummarizer: basicSummarizer,
	}
}

// runCommand executes c with args and returns what it wrote to stdout.
func runCommand(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetArgs(args)
	c.SilenceUsage = true
	c.SilenceErrors = true
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

// sampleTranscript is a short labelled meeting with two clear action items.
func sampleTranscript() string {
	var b strings.Builder
	b.WriteString("Alice: [00:00:05] Welcome everyone, let's go through the release plan.\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "Alice: We reviewed milestone %d and agreed it is on track for the launch.\n", i)
		fmt.Fprintf(&b, "Bob: The budget for milestone %d looks fine to me.\n", i)
	}
	b.WriteString("Bob: Bob will send the notes to everyone by Friday.\n")
	b.WriteString("Alice: I will update the roadmap document tomorrow.\n")
	b.WriteString("Bob: \"Sounds good\", thanks all.\n")
	return b.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
