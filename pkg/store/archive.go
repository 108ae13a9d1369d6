package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
)

// Run is an archived processing result.
type Run struct {
	ID          uuid.UUID                  `json:"id" yaml:"id"`
	Title       string                     `json:"title" yaml:"title"`
	SourcePath  string                     `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	WordCount   int                        `json:"word_count" yaml:"word_count"`
	ChunkCount  int                        `json:"chunk_count" yaml:"chunk_count"`
	ActionCount int                        `json:"action_count" yaml:"action_count"`
	Duration    time.Duration              `json:"duration_ns" yaml:"duration"`
	CreatedAt   time.Time                  `json:"created_at" yaml:"created_at"`
	Summary     *summarizer.MeetingSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Archive stores runs in the minutes_runs table.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive wraps an open pool. Call Migrate before first use.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// Open connects using cfg and applies pending migrations.
func Open(ctx context.Context, cfg *Config) (*Archive, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewArchive(pool), nil
}

// Pool returns the underlying pool.
func (a *Archive) Pool() *pgxpool.Pool {
	return a.pool
}

// Close releases the pool.
func (a *Archive) Close() {
	if a != nil && a.pool != nil {
		a.pool.Close()
	}
}

// Save inserts run. A zero ID is replaced with a new one.
func (a *Archive) Save(ctx context.Context, run *Run) error {
	if run.Summary == nil {
		return fmt.Errorf("%w: run has no summary", merrors.ErrValidation)
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	err = a.pool.QueryRow(ctx, `
		INSERT INTO minutes_runs (id, title, source_path, word_count, chunk_count, action_count, duration_ms, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, run.ID, run.Title, run.SourcePath, run.WordCount, run.ChunkCount, run.ActionCount,
		run.Duration.Milliseconds(), summary).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// List returns the most recent runs without their summaries.
func (a *Archive) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.pool.Query(ctx, `
		SELECT id, title, source_path, word_count, chunk_count, action_count, duration_ms, created_at
		FROM minutes_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMs int64
		if err := rows.Scan(&r.ID, &r.Title, &r.SourcePath, &r.WordCount, &r.ChunkCount, &r.ActionCount, &durationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns the run with id, including its summary.
func (a *Archive) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	var r Run
	var durationMs int64
	var summary []byte

	err := a.pool.QueryRow(ctx, `
		SELECT id, title, source_path, word_count, chunk_count, action_count, duration_ms, created_at, summary
		FROM minutes_runs
		WHERE id = $1
	`, id).Scan(&r.ID, &r.Title, &r.SourcePath, &r.WordCount, &r.ChunkCount, &r.ActionCount, &durationMs, &r.CreatedAt, &summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", merrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.Summary = &summarizer.MeetingSummary{}
	if err := json.Unmarshal(summary, r.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &r, nil
}
