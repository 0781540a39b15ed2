// Package storage persists scraped contacts to Postgres.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	session_id       UUID        NOT NULL,
	dedup_key        TEXT        NOT NULL,
	name             TEXT        NOT NULL DEFAULT '',
	phone            TEXT        NOT NULL DEFAULT '',
	normalized_phone TEXT        NOT NULL DEFAULT '',
	about            TEXT        NOT NULL DEFAULT '',
	role             TEXT        NOT NULL DEFAULT 'member',
	dm_link          TEXT        NOT NULL DEFAULT '',
	updated_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, dedup_key)
)`

type Storage struct {
	db *sql.DB
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Open connects to Postgres, retrying while the database comes up.
func Open(ctx context.Context, url string, attempts int, wait time.Duration, log *zap.Logger) (*sql.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		db, err := sql.Open("pgx", url)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				log.Info("Connected to database")
				return db, nil
			}
			db.Close()
		}
		lastErr = err
		log.Warn("Waiting for database", zap.Int("attempt", i+1), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("connect after %d attempts: %w", attempts, lastErr)
}

// EnsureSchema creates the contacts table if it does not exist.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create contacts table: %w", err)
	}
	return nil
}
