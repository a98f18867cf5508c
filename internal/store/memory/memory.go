// Package memory provides an in-process store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/wirus-app/wirus-auth/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	platforms map[string]store.Platform
	users     map[string]store.User
	codes     map[string]store.RegistrationCode
}

func New() *Store {
	return &Store{
		platforms: map[string]store.Platform{},
		users:     map[string]store.User{},
		codes:     map[string]store.RegistrationCode{},
	}
}

func (s *Store) Platforms() store.PlatformRepo { return (*platformRepo)(s) }
func (s *Store) Users() store.UserRepo         { return (*userRepo)(s) }
func (s *Store) Codes() store.CodeRepo         { return (*codeRepo)(s) }

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

// SeedPlatform inserts a platform, overwriting any existing one. Test helper.
func (s *Store) SeedPlatform(p store.Platform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platforms[p.ID] = p
}

// SeedUser inserts a user, overwriting any existing one. Test helper.
func (s *Store) SeedUser(u store.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
}

// SeedCode inserts a registration code. Test helper.
func (s *Store) SeedCode(c store.RegistrationCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.ID] = c
}

// --- platforms ---

type platformRepo Store

func (r *platformRepo) Get(ctx context.Context, id string) (*store.Platform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.platforms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r *platformRepo) Create(ctx context.Context, p *store.Platform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.platforms[p.ID]; exists {
		return store.ErrConflict
	}
	r.platforms[p.ID] = *p
	return nil
}

func (r *platformRepo) Update(ctx context.Context, id string, fields store.PlatformUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.platforms[id]
	if !ok {
		return store.ErrNotFound
	}
	if fields.Name != nil {
		p.Name = *fields.Name
	}
	if fields.Description != nil {
		p.Description = *fields.Description
	}
	if fields.Logo != nil {
		p.Logo = *fields.Logo
	}
	if fields.URL != nil {
		p.URL = *fields.URL
	}
	r.platforms[id] = p
	return nil
}

// --- users ---

type userRepo Store

func (r *userRepo) Get(ctx context.Context, id string) (*store.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (r *userRepo) GetByPlatformSubject(ctx context.Context, platformID, subject string) (*store.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if p, ok := u.Platforms[platformID]; ok && p.Subject == subject {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *userRepo) SetPairing(ctx context.Context, userID, platformID string, p store.Pairing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if u.Platforms == nil {
		u.Platforms = map[string]store.Pairing{}
	}
	u.Platforms[platformID] = p
	r.users[userID] = u
	return nil
}

func (r *userRepo) Create(ctx context.Context, u *store.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.ID]; exists {
		return store.ErrConflict
	}
	r.users[u.ID] = cloneUser(*u)
	return nil
}

// --- registration codes ---

type codeRepo Store

func (r *codeRepo) Get(ctx context.Context, id string) (*store.RegistrationCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (r *codeRepo) Create(ctx context.Context, c *store.RegistrationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codes[c.ID]; exists {
		return store.ErrConflict
	}
	r.codes[c.ID] = *c
	return nil
}

func (r *codeRepo) MarkUsed(ctx context.Context, id, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Used = true
	c.ClientID = clientID
	r.codes[id] = c
	return nil
}

// cloneUser copies the pairings map so callers cannot mutate stored state.
func cloneUser(u store.User) store.User {
	if u.Platforms != nil {
		m := make(map[string]store.Pairing, len(u.Platforms))
		for k, v := range u.Platforms {
			m[k] = v
		}
		u.Platforms = m
	}
	return u
}
