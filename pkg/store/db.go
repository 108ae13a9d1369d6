// Package store archives processed meeting minutes in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
)

// Config holds PostgreSQL connection configuration. DSN, when set, takes
// precedence over the individual fields.
type Config struct {
	DSN             string
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultConfig returns a Config for a local database. A CLI process needs
// few connections, so the pool is small.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5432,
		Database:        "minutes",
		User:            "minutes",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        0,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// ConfigFromEnv creates a Config from environment variables.
// Environment variables:
//   - MINUTES_DATABASE_URL: full connection string
//   - MINUTES_DB_HOST: Database host (default: localhost)
//   - MINUTES_DB_PORT: Database port (default: 5432)
//   - MINUTES_DB_NAME: Database name (default: minutes)
//   - MINUTES_DB_USER: Database user (default: minutes)
//   - MINUTES_DB_PASSWORD: Database password
//   - MINUTES_DB_SSLMODE: SSL mode (default: disable)
//   - MINUTES_DB_MAX_CONNS: Maximum connections (default: 4)
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if dsn := os.Getenv("MINUTES_DATABASE_URL"); dsn != "" {
		cfg.DSN = dsn
	}
	if host := os.Getenv("MINUTES_DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("MINUTES_DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if database := os.Getenv("MINUTES_DB_NAME"); database != "" {
		cfg.Database = database
	}
	if user := os.Getenv("MINUTES_DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("MINUTES_DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if sslmode := os.Getenv("MINUTES_DB_SSLMODE"); sslmode != "" {
		cfg.SSLMode = sslmode
	}
	if maxConns := os.Getenv("MINUTES_DB_MAX_CONNS"); maxConns != "" {
		if mc, err := strconv.ParseInt(maxConns, 10, 32); err == nil {
			cfg.MaxConns = int32(mc)
		}
	}

	return cfg
}

// ConnectionString returns DSN if set, otherwise builds a URL from the
// individual fields.
func (c *Config) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// Validate checks if the config has required fields set.
func (c *Config) Validate() error {
	if c.MaxConns <= 0 {
		return fmt.Errorf("%w: max connections must be positive", merrors.ErrInvalidConfig)
	}
	if c.MaxConns < c.MinConns {
		return fmt.Errorf("%w: max connections (%d) must be >= min connections (%d)", merrors.ErrInvalidConfig, c.MaxConns, c.MinConns)
	}
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("%w: database host is required", merrors.ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid database port: %d", merrors.ErrInvalidConfig, c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("%w: database name is required", merrors.ErrInvalidConfig)
	}
	if c.User == "" {
		return fmt.Errorf("%w: database user is required", merrors.ErrInvalidConfig)
	}
	return nil
}

// Connect creates a new connection pool with the given configuration.
// The caller is responsible for calling pool.Close() when done.
func Connect(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
