package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, cfg Config, h Handler) (context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(cfg, h, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return cancel, done
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, func(context.Context, string) error { return nil }, nil)
	assert.Error(t, err)

	_, err = New(Config{Dir: t.TempDir()}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, func(context.Context, string) error { return nil }, nil)
	assert.Error(t, err)
}

func TestWatcher_NewTranscript(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	cancel, done := startWatcher(t, Config{Dir: dir, SettleDelay: 20 * time.Millisecond}, rec.handle)

	path := filepath.Join(dir, "standup.txt")
	require.NoError(t, os.WriteFile(path, []byte("Alice: hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.docx"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return len(rec.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []string{path}, rec.seen())
}

func TestWatcher_ProcessExisting(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.vtt")
	require.NoError(t, os.WriteFile(a, []byte("Alice: hi"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("WEBVTT\n"), 0o644))

	rec := &recorder{}
	cancel, done := startWatcher(t, Config{Dir: dir, ProcessExisting: true}, rec.handle)

	require.Eventually(t, func() bool { return len(rec.seen()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
	assert.ElementsMatch(t, []string{a, b}, rec.seen())
}

func TestWatcher_MaxConcurrent(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.txt", "2.txt", "3.txt", "4.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	var running, peak, total atomic.Int32
	handler := func(ctx context.Context, _ string) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
		total.Add(1)
		return nil
	}

	cancel, done := startWatcher(t, Config{Dir: dir, MaxConcurrent: 2, ProcessExisting: true}, handler)
	require.Eventually(t, func() bool { return total.Load() == 4 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

type counter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *counter) handle(_ context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[path]++
	return nil
}

func (c *counter) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

func newIdleWatcher(t *testing.T, settle time.Duration, h Handler) *Watcher {
	t.Helper()
	w, err := New(Config{Dir: t.TempDir(), SettleDelay: settle}, h, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.fsw.Close() })
	return w
}

func TestSchedule_RapidResetsAfterFire(t *testing.T) {
	c := &counter{}
	w := newIdleWatcher(t, time.Microsecond, c.handle)
	ctx := context.Background()

	for i := 0; i < 200000; i++ {
		w.schedule(ctx, "a.txt")
	}
	w.wg.Wait()

	assert.GreaterOrEqual(t, c.count("a.txt"), 1)
	w.mu.Lock()
	assert.Empty(t, w.pending)
	w.mu.Unlock()
}

func TestSchedule_BurstHandledOnce(t *testing.T) {
	c := &counter{}
	w := newIdleWatcher(t, 50*time.Millisecond, c.handle)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		w.schedule(ctx, "a.txt")
		w.schedule(ctx, "b.txt")
	}
	w.wg.Wait()

	assert.Equal(t, 1, c.count("a.txt"))
	assert.Equal(t, 1, c.count("b.txt"))
}

func TestSchedule_WriteAfterSettleRearms(t *testing.T) {
	c := &counter{}
	w := newIdleWatcher(t, 10*time.Millisecond, c.handle)
	ctx := context.Background()

	w.schedule(ctx, "a.txt")
	w.wg.Wait()
	require.Equal(t, 1, c.count("a.txt"))

	for i := 0; i < 10; i++ {
		w.schedule(ctx, "a.txt")
	}
	w.wg.Wait()
	assert.Equal(t, 2, c.count("a.txt"))
}

func TestStopPending_SkipsUnsettled(t *testing.T) {
	c := &counter{}
	w := newIdleWatcher(t, time.Hour, c.handle)

	w.schedule(context.Background(), "a.txt")
	w.stopPending()
	w.wg.Wait()

	assert.Zero(t, c.count("a.txt"))
}
