package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wirus-app/wirus-auth/internal/identity"
	"github.com/wirus-app/wirus-auth/internal/observability/logger"
	"github.com/wirus-app/wirus-auth/internal/scope"
	"github.com/wirus-app/wirus-auth/internal/store"
	"github.com/wirus-app/wirus-auth/internal/token"
)

// Verifier authenticates the three caller kinds of the authorization layer:
// registered platforms (client credentials), end users (identity-provider
// tokens) and access-token bearers.
type Verifier struct {
	Store    store.Store
	Identity identity.Verifier
	Tokens   *token.Verifier
	Registry scope.Registry
}

// BearerFromRequest extracts the raw token from the Authorization header,
// falling back to the "authorization" query parameter for user-agent
// redirects that cannot set headers. Headers without the Bearer prefix are
// ignored rather than taken verbatim.
func BearerFromRequest(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") || strings.HasPrefix(h, "bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return r.URL.Query().Get("authorization")
}

// VerifyClientCredentials authenticates a platform by id and secret.
// Secrets are compared in plain text, which is what registered platforms
// currently store.
func (v *Verifier) VerifyClientCredentials(ctx context.Context, clientID, clientSecret string) (*store.Platform, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: client credentials missing", ErrBadRequest)
	}
	platform, err := v.Store.Platforms().Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: client %q does not exist", ErrNotFound, clientID)
		}
		return nil, fmt.Errorf("%w: loading client: %v", ErrInternal, err)
	}
	if platform.ClientSecret != clientSecret {
		logger.From(ctx).Warn("client secret rejected", logger.Layer("auth"), logger.PlatformID(clientID))
		return nil, ErrInvalidCredentials
	}
	return platform, nil
}

// VerifyUserToken validates the bearer token of the request against the
// identity provider. When userID is non-empty the token subject must match
// it; when predicate is non-nil it is applied to the resolved identity and
// a false result is answered as forbidden.
func (v *Verifier) VerifyUserToken(ctx context.Context, r *http.Request, userID string, predicate func(*identity.Identity) bool) (*identity.Identity, error) {
	raw := BearerFromRequest(r)
	if raw == "" {
		return nil, fmt.Errorf("%w: authorization token missing", ErrInvalidToken)
	}
	id, err := v.Identity.VerifyIDToken(ctx, raw)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, fmt.Errorf("%w: identity provider rejected token", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: verifying identity token: %v", ErrInternal, err)
	}
	if userID != "" && id.UID != userID {
		return nil, ErrIdentityMismatch
	}
	if predicate != nil && !predicate(id) {
		return nil, ErrForbidden
	}
	return id, nil
}

// VerifyAccessToken validates the bearer access token of the request for the
// given audience and checks that its granted scope satisfies required.
func (v *Verifier) VerifyAccessToken(r *http.Request, audience string, required scope.Set) (*token.AccessClaims, error) {
	raw := BearerFromRequest(r)
	if raw == "" {
		return nil, fmt.Errorf("%w: authorization token missing", ErrInvalidToken)
	}
	claims, err := v.Tokens.VerifyAccessToken(raw, audience)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(required) > 0 && !v.Registry.Test(claims.Scope, required) {
		return nil, fmt.Errorf("%w: token scope does not cover %s", ErrForbidden, strings.Join(required, " "))
	}
	return claims, nil
}

// UserDataForScope projects the profile fields the granted scope permits.
// The super-scope wirus.user.read discloses all of them. Returns nil when
// nothing is disclosed.
func UserDataForScope(granted scope.Set, user *store.User) *token.UserData {
	all := granted.Contains("wirus.user.read")
	data := &token.UserData{}
	disclosed := false
	if all || granted.Contains("wirus.user.name") {
		data.Name = user.Name
		disclosed = true
	}
	if all || granted.Contains("wirus.user.email") {
		data.Email = user.Email
		disclosed = true
	}
	if all || granted.Contains("wirus.user.location") {
		data.Location = user.Location
		disclosed = true
	}
	if !disclosed {
		return nil
	}
	return data
}
