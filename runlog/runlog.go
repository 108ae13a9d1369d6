// Package runlog records CLI invocations in a PostgreSQL table.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lib/pq"
)

const maxMessageLen = 500

const schema = `
CREATE TABLE IF NOT EXISTS minutes_command_log (
    id            BIGSERIAL PRIMARY KEY,
    command       TEXT NOT NULL,
    args          TEXT[] NOT NULL DEFAULT '{}',
    full_command  TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    success       BOOLEAN NOT NULL,
    error_message TEXT,
    run_id        TEXT,
    hostname      TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Client writes and reads the command log.
type Client struct {
	db *sql.DB
}

// Entry is one logged command.
type Entry struct {
	ID           int64     `json:"id" yaml:"id"`
	Command      string    `json:"command" yaml:"command"`
	Args         []string  `json:"args" yaml:"args"`
	FullCommand  string    `json:"full_command" yaml:"full_command"`
	DurationMs   int       `json:"duration_ms" yaml:"duration_ms"`
	Success      bool      `json:"success" yaml:"success"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	RunID        string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Hostname     string    `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// NewClient opens dsn with the lib/pq driver and creates the log table if
// needed.
func NewClient(ctx context.Context, dsn string) (*Client, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("run log not configured")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating command log table: %w", err)
	}

	return &Client{db: db}, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Ping checks the database connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// LogCommand inserts entry. Empty hostnames are filled from the OS.
func (c *Client) LogCommand(ctx context.Context, entry *Entry) error {
	hostname := entry.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO minutes_command_log
			(command, args, full_command, duration_ms, success, error_message, run_id, hostname)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Command,
		pq.Array(nonNil(entry.Args)),
		entry.FullCommand,
		entry.DurationMs,
		entry.Success,
		nullIfEmpty(truncate(entry.ErrorMessage, maxMessageLen)),
		nullIfEmpty(entry.RunID),
		nullIfEmpty(hostname),
	)
	if err != nil {
		return fmt.Errorf("logging command: %w", err)
	}
	return nil
}

// History returns the most recent entries, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, command, args, full_command, duration_ms, success, error_message, run_id, hostname, created_at
		FROM minutes_command_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var errorMsg, runID, hostname sql.NullString
		err := rows.Scan(
			&e.ID,
			&e.Command,
			pq.Array(&e.Args),
			&e.FullCommand,
			&e.DurationMs,
			&e.Success,
			&errorMsg,
			&runID,
			&hostname,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.ErrorMessage = errorMsg.String
		e.RunID = runID.String
		e.Hostname = hostname.String
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return entries, nil
}

// NewEntry builds an entry for a finished command.
func NewEntry(command string, args []string, started time.Time, runErr error) *Entry {
	e := &Entry{
		Command:     command,
		Args:        args,
		FullCommand: strings.TrimSpace("minutes " + command + " " + strings.Join(args, " ")),
		DurationMs:  int(time.Since(started).Milliseconds()),
		Success:     runErr == nil,
	}
	if runErr != nil {
		e.ErrorMessage = runErr.Error()
	}
	return e
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
