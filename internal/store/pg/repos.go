package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wirus-app/wirus-auth/internal/store"
)

const uniqueViolation = "23505"

// --- platforms ---

type platformRepo struct{ pool *pgxpool.Pool }

func (r *platformRepo) Get(ctx context.Context, id string) (*store.Platform, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM platforms WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get platform: %w", err)
	}
	var p store.Platform
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode platform %s: %w", id, err)
	}
	p.ID = id
	return &p, nil
}

func (r *platformRepo) Create(ctx context.Context, p *store.Platform) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode platform: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO platforms (id, doc) VALUES ($1, $2)`, p.ID, doc)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create platform: %w", err)
	}
	return nil
}

func (r *platformRepo) Update(ctx context.Context, id string, fields store.PlatformUpdate) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode platform update: %w", err)
	}
	// jsonb || merges only the supplied fields into the document.
	tag, err := r.pool.Exec(ctx,
		`UPDATE platforms SET doc = doc || $2::jsonb WHERE id = $1`, id, patch)
	if err != nil {
		return fmt.Errorf("update platform: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- users ---

type userRepo struct{ pool *pgxpool.Pool }

func (r *userRepo) Get(ctx context.Context, id string) (*store.User, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM users WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u store.User
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	u.ID = id
	return &u, nil
}

func (r *userRepo) GetByPlatformSubject(ctx context.Context, platformID, subject string) (*store.User, error) {
	var (
		id  string
		doc []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, doc FROM users
		 WHERE doc->'platforms'->$1->>'subject' = $2
		 LIMIT 1`, platformID, subject).Scan(&id, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by subject: %w", err)
	}
	var u store.User
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	u.ID = id
	return &u, nil
}

func (r *userRepo) SetPairing(ctx context.Context, userID, platformID string, p store.Pairing) error {
	pairing, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pairing: %w", err)
	}
	// Single jsonb_set keeps the write atomic within the user document.
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET doc = jsonb_set(
			 jsonb_set(doc, '{platforms}', COALESCE(doc->'platforms', '{}'::jsonb), true),
			 ARRAY['platforms', $2], $3::jsonb, true)
		 WHERE id = $1`, userID, platformID, pairing)
	if err != nil {
		return fmt.Errorf("set pairing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *userRepo) Create(ctx context.Context, u *store.User) error {
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO users (id, doc) VALUES ($1, $2)`, u.ID, doc)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// --- registration codes ---

type codeRepo struct{ pool *pgxpool.Pool }

func (r *codeRepo) Get(ctx context.Context, id string) (*store.RegistrationCode, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM registration_codes WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	var c store.RegistrationCode
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, fmt.Errorf("decode code %s: %w", id, err)
	}
	c.ID = id
	return &c, nil
}

func (r *codeRepo) Create(ctx context.Context, c *store.RegistrationCode) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode code: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO registration_codes (id, doc) VALUES ($1, $2)`, c.ID, doc)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create code: %w", err)
	}
	return nil
}

func (r *codeRepo) MarkUsed(ctx context.Context, id, clientID string) error {
	patch, err := json.Marshal(map[string]any{"used": true, "client_id": clientID})
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE registration_codes SET doc = doc || $2::jsonb WHERE id = $1`, id, patch)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
