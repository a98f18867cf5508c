package token

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Issuer signs tokens with the app's private key.
type Issuer struct {
	Iss  string
	Keys *KeyPair
}

func NewIssuer(iss string, keys *KeyPair) *Issuer {
	if iss == "" {
		iss = AppIssuer
	}
	return &Issuer{Iss: iss, Keys: keys}
}

// IssueAuthorizationCode mints an authorization code bound to one platform.
// The code carries no exp claim; single use is by convention, not enforced.
func (i *Issuer) IssueAuthorizationCode(c AuthCodeClaims, audience string) (string, error) {
	claims := i.baseClaims(SubjectAuthCode, audience)
	claims["user"] = c.User
	claims["scope"] = []string(c.Scope)
	if c.ClientSubject != "" {
		claims["client_subject"] = c.ClientSubject
	}
	return i.sign(claims)
}

// IssueAccessToken mints an access token. It never expires; refresh is
// unsupported, so expires_in is reported as -1 on the wire.
func (i *Issuer) IssueAccessToken(c AccessClaims, audience string) (string, error) {
	claims := i.baseClaims(SubjectAccessToken, audience)
	claims["scope"] = []string(c.Scope)
	if c.User != "" {
		claims["user"] = c.User
	}
	if c.ClientSubject != "" {
		claims["client_subject"] = c.ClientSubject
	}
	if c.Data != nil {
		claims["data"] = c.Data
	}
	return i.sign(claims)
}

// IssueIdentityToken mints an identity token for the exchange flow. The user
// id travels in the subject: "ac:<uid>" when a pairing exists, "id:<uid>"
// otherwise.
func (i *Issuer) IssueIdentityToken(c IdentityClaims, audience string) (string, error) {
	prefix := PrefixIdentity
	if c.AccountBound {
		prefix = PrefixAccount
	}
	claims := i.baseClaims(prefix+c.UserID, audience)
	if c.Method != "" {
		claims["method"] = c.Method
	}
	if c.PlatformSubject != "" {
		claims["platformSubject"] = c.PlatformSubject
	}
	return i.sign(claims)
}

func (i *Issuer) baseClaims(subject, audience string) jwtv5.MapClaims {
	return jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": subject,
		"aud": audience,
		"iat": time.Now().UTC().Unix(),
	}
}

func (i *Issuer) sign(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.Keys.Private)
}
