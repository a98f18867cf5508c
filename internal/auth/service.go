package auth

import (
	"context"
	"net/http"

	"github.com/wirus-app/wirus-auth/internal/scope"
	"github.com/wirus-app/wirus-auth/internal/store"
)

// Grant types accepted by the token endpoint.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantClientCredentials = "client_credentials"
)

// TokenRequest is the body of the token endpoint.
type TokenRequest struct {
	GrantType     string   `json:"grant_type"`
	ClientID      string   `json:"client_id"`
	ClientSecret  string   `json:"client_secret"`
	Code          string   `json:"code"`
	ClientSubject string   `json:"client_subject"`
	Scope         []string `json:"scope"`
}

// TokenResponse is the token endpoint answer. Access tokens never expire,
// signalled by an expires_in of -1 and an absent refresh token.
type TokenResponse struct {
	TokenType    string  `json:"token_type"`
	AccessToken  string  `json:"access_token"`
	ExpiresIn    int64   `json:"expires_in"`
	RefreshToken *string `json:"refresh_token"`
}

// ExchangeRequest carries a platform-signed token plus an optional identity
// token used to establish a new pairing.
type ExchangeRequest struct {
	PlatformToken string
	IDToken       string
}

// ExchangeResult is either an issued token or an explicit no-content answer,
// meaning the platform user is valid but not paired to an app account.
type ExchangeResult struct {
	AccessToken string
	NoContent   bool
}

// AuthorizeRequest is the query of the user-facing authorization endpoint.
type AuthorizeRequest struct {
	ClientID    string
	RedirectURI string
	Scope       string
	State       string
}

// AuthorizeResult carries the redirect location including the issued
// authorization code.
type AuthorizeResult struct {
	Location string
}

// InfoRequest asks for the consent-screen description of a client.
type InfoRequest struct {
	ClientID    string
	RedirectURI string
	Scope       string
}

// InfoResponse describes a client and the scope it would be granted.
type InfoResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Logo             string    `json:"logo"`
	URL              string    `json:"url"`
	RedirectURI      string    `json:"redirect_uri"`
	Scope            scope.Set `json:"scope"`
	ScopeDescription string    `json:"scope_description"`
}

// RegisterRequest registers a new platform against a registration code.
type RegisterRequest struct {
	RegistrationCode string
	ClientID         string   `json:"client_id"`
	ClientSecret     string   `json:"client_secret"`
	RedirectURI      string   `json:"redirect_uri"`
	DefaultScope     []string `json:"default_scope"`
}

// PlatformUpdateRequest carries the self-service editable platform fields.
type PlatformUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Logo        *string `json:"logo"`
	URL         *string `json:"url"`
}

// Service orchestrates the grant flows of the authorization layer.
type Service interface {
	// Token answers the token endpoint for the authorization_code and
	// client_credentials grants.
	Token(ctx context.Context, req TokenRequest) (*TokenResponse, error)

	// ExchangePlatformToken verifies a token signed by a registered
	// platform and exchanges it for an app token of the paired account.
	ExchangePlatformToken(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error)

	// Authorize authenticates the end user behind r and builds the
	// redirect carrying a fresh authorization code.
	Authorize(ctx context.Context, r *http.Request, req AuthorizeRequest) (*AuthorizeResult, error)

	// ClientInfo describes a client for the consent screen.
	ClientInfo(ctx context.Context, req InfoRequest) (*InfoResponse, error)

	// RegisterPlatform consumes a registration code and creates the client.
	RegisterPlatform(ctx context.Context, req RegisterRequest) error

	// GetPlatform returns the platform profile to an access-token bearer
	// holding wirus.platform.read for that platform.
	GetPlatform(ctx context.Context, r *http.Request, platformID string) (*store.Platform, error)

	// UpdatePlatform applies a partial profile update for an access-token
	// bearer holding wirus.platform.write for that platform.
	UpdatePlatform(ctx context.Context, r *http.Request, platformID string, req PlatformUpdateRequest) (*store.Platform, error)
}
