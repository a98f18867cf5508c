// Package store defines the document-store contract the authorization layer
// runs against. Documents (platforms, users, registration codes) are read and
// written whole or by field group; consistency is per document only. The
// pairing read-compare-write in the authorization-code grant is deliberately
// not transactional across calls.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

// Store bundles the per-collection repositories.
type Store interface {
	Platforms() PlatformRepo
	Users() UserRepo
	Codes() CodeRepo

	Ping(ctx context.Context) error
	Close() error
}

// PlatformRepo accesses registered third-party platforms. The platform id is
// the document id and doubles as the OAuth client_id.
type PlatformRepo interface {
	Get(ctx context.Context, id string) (*Platform, error)

	// Create fails with ErrConflict when the id is already taken.
	Create(ctx context.Context, p *Platform) error

	// Update applies a partial update of the platform's descriptive fields.
	Update(ctx context.Context, id string, fields PlatformUpdate) error
}

// UserRepo accesses user documents and their per-platform pairings.
type UserRepo interface {
	Get(ctx context.Context, id string) (*User, error)

	// GetByPlatformSubject finds the user whose pairing with the given
	// platform carries the given external subject. Subjects are unique per
	// platform; the first match wins.
	GetByPlatformSubject(ctx context.Context, platformID, subject string) (*User, error)

	// SetPairing overwrites the user's pairing for one platform. The write
	// is atomic per user document.
	SetPairing(ctx context.Context, userID, platformID string, p Pairing) error

	Create(ctx context.Context, u *User) error
}

// CodeRepo accesses one-shot registration codes.
type CodeRepo interface {
	Get(ctx context.Context, id string) (*RegistrationCode, error)

	Create(ctx context.Context, c *RegistrationCode) error

	// MarkUsed burns the code and records which client redeemed it.
	MarkUsed(ctx context.Context, id, clientID string) error
}
