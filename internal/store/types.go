package store

import (
	"time"

	"github.com/wirus-app/wirus-auth/internal/scope"
)

// Platform is a registered third-party client.
type Platform struct {
	ID          string `json:"id"` // max 40 chars, used as client_id
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
	URL         string `json:"url,omitempty"`

	// ClientSecret is stored and compared in plaintext. Known weakness,
	// kept compatible with existing registrations.
	ClientSecret string `json:"client_secret"` // max 256 chars

	// RedirectURI is fixed at registration. When empty the caller must
	// supply one per request.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// DefaultScope is granted when no explicit scope is requested.
	DefaultScope scope.Set `json:"default_scope"`

	// PublicKey is either an inline PEM block or an https URL the key can
	// be fetched from. Used to verify platform-issued tokens.
	PublicKey string `json:"public_key,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// PlatformUpdate is a partial update of a platform's descriptive fields.
// Nil fields are left untouched.
type PlatformUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Logo        *string `json:"logo,omitempty"`
	URL         *string `json:"url,omitempty"`
}

// Pairing records a user's binding to one platform: the platform-side subject
// identifier and the scope the binding was last granted under.
type Pairing struct {
	Subject string    `json:"subject"`
	Scope   scope.Set `json:"scope"`
}

// User is an account supplied by the upstream identity provider, enriched
// with per-platform pairings.
type User struct {
	ID       string `json:"id"` // identity-provider uid
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Location string `json:"location,omitempty"`

	// Platforms maps platform id to the pairing established with it.
	Platforms map[string]Pairing `json:"platforms,omitempty"`
}

// RegistrationCode is a one-shot code redeemed to register a platform.
type RegistrationCode struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"` // "client_registration"
	Used         bool      `json:"used"`
	AllowedScope scope.Set `json:"allowed_scope,omitempty"`

	// ClientID is filled when the code is redeemed.
	ClientID string `json:"client_id,omitempty"`
}
