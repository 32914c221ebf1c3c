// Package database opens the Postgres pool and keeps the schema current.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "database").Logger()

type Options struct {
	Retries      int
	RetryWait    time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects through the pgx stdlib driver, retrying the initial ping
// while the database comes up.
func Open(ctx context.Context, url string, opts Options) (*sql.DB, error) {
	if url == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	if opts.Retries < 1 {
		opts.Retries = 10
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 3 * time.Second
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	if err := ping(ctx, db, opts); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ping(ctx context.Context, db *sql.DB, opts Options) error {
	var err error
	for i := 0; i < opts.Retries; i++ {
		if err = db.PingContext(ctx); err == nil {
			logger.Info().Msg("connected to database")
			return nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("failed to connect to database")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.RetryWait):
		}
	}
	return fmt.Errorf("failed to connect to database after %d attempts: %w", opts.Retries, err)
}

// Migrate applies the idempotent schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	logger.Info().Int("statements", len(schema)).Msg("schema is up to date")
	return nil
}
