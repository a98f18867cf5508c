// Package pg backs the document store with Postgres. Each collection is a
// table of (id, doc jsonb); field-group updates use jsonb_set so a write
// stays atomic per document, matching the contract in package store.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wirus-app/wirus-auth/internal/store"
)

type Store struct{ pool *pgxpool.Pool }

// Config tunes the connection pool.
type Config struct {
	MaxConns        int
	ConnMaxLifetime time.Duration
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Platforms() store.PlatformRepo { return &platformRepo{pool: s.pool} }
func (s *Store) Users() store.UserRepo         { return &userRepo{pool: s.pool} }
func (s *Store) Codes() store.CodeRepo         { return &codeRepo{pool: s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Migrate creates the collection tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS platforms (
			id  TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS users (
			id  TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS registration_codes (
			id  TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		);`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}
