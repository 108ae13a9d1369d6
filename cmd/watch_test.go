package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/minutes-cli/pkg/buildinfo"
	"github.com/otherjamesbrown/minutes-cli/pkg/watcher"
)

func TestNewWatchCommand(t *testing.T) {
	c := NewWatchCommand(nil)
	require.NotNil(t, c)
	assert.Equal(t, "watch <dir>", c.Use)

	maxConc := c.Flags().Lookup("max-concurrent")
	require.NotNil(t, maxConc)
	assert.Equal(t, "2", maxConc.DefValue)

	settle := c.Flags().Lookup("settle")
	require.NotNil(t, settle)
	assert.Equal(t, watcher.DefaultSettleDelay.String(), settle.DefValue)

	for _, name := range []string{"out", "format", "existing", "metrics-addr", "archive", "no-ai"} {
		assert.NotNil(t, c.Flags().Lookup(name), "missing --%s", name)
	}
}

func TestWatch_Errors(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.txt", "x")

	_, err := runCommand(t, NewWatchCommand(testDeps(testConfig())), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")

	_, err = runCommand(t, NewWatchCommand(testDeps(testConfig())), t.TempDir(), "--format", "pptx")
	require.Error(t, err)

	_, err = runCommand(t, NewWatchCommand(testDeps(testConfig())), t.TempDir(), "--archive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive not configured")
}

func TestWatch_ProcessesExistingAndNewFiles(t *testing.T) {
	inbox := t.TempDir()
	outDir := t.TempDir()
	writeFile(t, inbox, "first.txt", sampleTranscript())
	writeFile(t, inbox, "first_minutes.md", "# Meeting Minutes\n")

	a := &fakeArchive{}
	deps := archiveDeps(testConfig(), a)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := &watchOptions{
		out:           outDir,
		maxConcurrent: 1,
		settle:        20 * time.Millisecond,
		existing:      true,
		archive:       true,
	}
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, deps, opts, inbox) }()

	firstReport := filepath.Join(outDir, "first_minutes.md")
	require.Eventually(t, func() bool {
		_, err := os.Stat(firstReport)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	writeFile(t, inbox, "second.txt", sampleTranscript())
	secondReport := filepath.Join(outDir, "second_minutes.md")
	require.Eventually(t, func() bool {
		_, err := os.Stat(secondReport)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	assert.NoFileExists(t, filepath.Join(outDir, "first_minutes_minutes.md"))
	assert.GreaterOrEqual(t, len(a.saved), 2)
	assert.True(t, a.closed)
}

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "minutes_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := httptest.NewServer(newMetricsServer(":0", reg).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "minutes_test_total 1")

	resp, err = http.Get(srv.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info buildinfo.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "minutes", info.Name)
}
