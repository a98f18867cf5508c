// Package token signs and verifies the three token kinds of the wirus
// authorization layer: authorization codes, access tokens and platform
// identity tokens. All use RS256 with the app key pair; they differ only in
// subject convention and claim shape, so each kind gets its own claims type.
package token

import (
	"errors"
	"strings"

	"github.com/wirus-app/wirus-auth/internal/scope"
)

// Issuer identity carried in the "iss" claim of every app-signed token.
const AppIssuer = "wirus-app"

// Subject conventions per token kind.
const (
	SubjectAuthCode    = "auth_code"
	SubjectAccessToken = "access_token"

	// Identity tokens encode the user id in the subject behind a prefix:
	// "ac:" when a platform pairing exists, "id:" for a bare identity.
	PrefixAccount  = "ac:"
	PrefixIdentity = "id:"
)

// ErrInvalid is wrapped by every verification failure.
var ErrInvalid = errors.New("token: invalid")

// UserData is the user projection embedded in access tokens, limited to the
// fields the granted scope permits.
type UserData struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Location string `json:"location,omitempty"`
}

// AuthCodeClaims is the payload of an authorization code (sub "auth_code").
type AuthCodeClaims struct {
	User          string
	Scope         scope.Set
	ClientSubject string
}

// AccessClaims is the payload of an access token (sub "access_token"). User,
// ClientSubject and Data are empty for anonymous client-credentials grants.
type AccessClaims struct {
	User          string
	Scope         scope.Set
	ClientSubject string
	Data          *UserData
}

// IdentityClaims is the payload of an identity token minted for the
// platform-exchange flow.
type IdentityClaims struct {
	UserID          string
	AccountBound    bool // subject carried the "ac:" prefix
	Method          string
	PlatformSubject string
}

// SplitIdentitySubject decodes an identity-token subject into its user id and
// account-bound flag. ok is false for any other subject shape.
func SplitIdentitySubject(sub string) (userID string, accountBound, ok bool) {
	switch {
	case strings.HasPrefix(sub, PrefixAccount):
		return strings.TrimPrefix(sub, PrefixAccount), true, true
	case strings.HasPrefix(sub, PrefixIdentity):
		return strings.TrimPrefix(sub, PrefixIdentity), false, true
	default:
		return "", false, false
	}
}
