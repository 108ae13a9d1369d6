// Package watcher processes transcripts as they appear in a directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/semaphore"

	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/transcript"
)

// Defaults.
const (
	DefaultMaxConcurrent = 2
	DefaultSettleDelay   = 500 * time.Millisecond
)

// Handler processes one transcript file.
type Handler func(ctx context.Context, path string) error

// Config controls a Watcher.
type Config struct {
	Dir string
	// MaxConcurrent bounds how many files are handled at once.
	MaxConcurrent int
	// SettleDelay is how long a file must go without writes before it is
	// handled, so partially copied files are not read.
	SettleDelay time.Duration
	// ProcessExisting handles transcripts already in Dir on start.
	ProcessExisting bool
}

// Watcher monitors a directory and runs a Handler for new transcripts.
type Watcher struct {
	cfg     Config
	handler Handler
	logger  logging.Logger
	fsw     *fsnotify.Watcher
	sem     *semaphore.Weighted
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*pendingFile
}

// pendingFile is a settle timer for one path.
type pendingFile struct {
	timer *time.Timer
}

// New creates a Watcher on cfg.Dir.
func New(cfg Config, handler Handler, logger logging.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", cfg.Dir, err)
	}

	return &Watcher{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With(logging.F("component", "watcher"), logging.F("dir", cfg.Dir)),
		fsw:     fsw,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		pending: make(map[string]*pendingFile),
	}, nil
}

// Run blocks until ctx is done, then waits for in-flight files to finish.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("Watching for transcripts", logging.F("max_concurrent", w.cfg.MaxConcurrent))

	if w.cfg.ProcessExisting {
		files, err := transcript.Scan(w.cfg.Dir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", w.cfg.Dir, err)
		}
		for _, f := range files {
			w.dispatch(ctx, f)
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			w.logger.Info("Waiting for in-flight transcripts")
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !transcript.IsSupported(event.Name) {
				w.logger.Debug("Ignoring file", logging.F("path", event.Name))
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("Watcher error", logging.Err(err))
		}
	}
}

// schedule (re)starts the settle timer for path. Every write resets it.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A timer that already fired cannot be re-armed; its callback may be
	// blocked on mu, so it is replaced and the old callback sees it is stale.
	if p, ok := w.pending[path]; ok && p.timer.Stop() {
		p.timer.Reset(w.cfg.SettleDelay)
		return
	}

	p := &pendingFile{}
	w.wg.Add(1)
	p.timer = time.AfterFunc(w.cfg.SettleDelay, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] != p {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()
		w.handle(ctx, path)
	})
	w.pending[path] = p
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		if p.timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.handle(ctx, path)
	}()
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer w.sem.Release(1)

	w.logger.Info("New transcript detected", logging.F("path", path))
	start := time.Now()
	if err := w.handler(ctx, path); err != nil {
		w.logger.Error("Failed to process transcript",
			logging.F("path", path),
			logging.Err(err))
		return
	}
	w.logger.Info("Transcript processed",
		logging.F("path", path),
		logging.F("duration", time.Since(start)))
}
