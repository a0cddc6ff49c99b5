package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const schema = `CREATE TABLE IF NOT EXISTS client_credentials (
	name       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps credentials in postgres, for workstations that share one
// clinic login across machines.
type PGStore struct {
	db DB
}

func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRow(ctx,
		`SELECT value FROM client_credentials WHERE name = $1`, key,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: load %s: %w", key, err)
	}
	return v, nil
}

// upsert: last write wins
func (s *PGStore) Save(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO client_credentials (name, value) VALUES ($1,$2)
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", key, err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM client_credentials WHERE name = $1`, key)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}
