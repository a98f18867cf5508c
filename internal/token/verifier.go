package token

import (
	"crypto/rsa"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/wirus-app/wirus-auth/internal/scope"
)

// Verifier checks app-signed tokens against the published public key. Every
// failure wraps ErrInvalid with the literal reason.
type Verifier struct {
	Iss string
	Key *rsa.PublicKey
}

func NewVerifier(iss string, key *rsa.PublicKey) *Verifier {
	if iss == "" {
		iss = AppIssuer
	}
	return &Verifier{Iss: iss, Key: key}
}

// VerifyAuthCode validates an authorization code audienced to one platform.
func (v *Verifier) VerifyAuthCode(raw, audience string) (*AuthCodeClaims, error) {
	claims, err := v.parse(raw, audience, SubjectAuthCode)
	if err != nil {
		return nil, err
	}
	return &AuthCodeClaims{
		User:          stringClaim(claims, "user"),
		Scope:         scopeClaim(claims, "scope"),
		ClientSubject: stringClaim(claims, "client_subject"),
	}, nil
}

// VerifyAccessToken validates an access token audienced to one platform.
func (v *Verifier) VerifyAccessToken(raw, audience string) (*AccessClaims, error) {
	claims, err := v.parse(raw, audience, SubjectAccessToken)
	if err != nil {
		return nil, err
	}
	return &AccessClaims{
		User:          stringClaim(claims, "user"),
		Scope:         scopeClaim(claims, "scope"),
		ClientSubject: stringClaim(claims, "client_subject"),
		Data:          dataClaim(claims, "data"),
	}, nil
}

// VerifyIdentityToken validates an app-issued identity token ("id:"/"ac:"
// subject) audienced to one platform.
func (v *Verifier) VerifyIdentityToken(raw, audience string) (*IdentityClaims, error) {
	claims, err := v.parse(raw, audience, "")
	if err != nil {
		return nil, err
	}
	sub := stringClaim(claims, "sub")
	userID, accountBound, ok := SplitIdentitySubject(sub)
	if !ok {
		return nil, fmt.Errorf("%w: subject %q is not an identity subject", ErrInvalid, sub)
	}
	return &IdentityClaims{
		UserID:          userID,
		AccountBound:    accountBound,
		Method:          stringClaim(claims, "method"),
		PlatformSubject: stringClaim(claims, "platformSubject"),
	}, nil
}

func (v *Verifier) parse(raw, audience, subject string) (jwtv5.MapClaims, error) {
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(v.Iss),
		jwtv5.WithAudience(audience),
	}
	if subject != "" {
		opts = append(opts, jwtv5.WithSubject(subject))
	}
	tok, err := jwtv5.NewParser(opts...).Parse(raw, func(t *jwtv5.Token) (any, error) {
		return v.Key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalid)
	}
	return claims, nil
}

// VerifyPlatformToken validates a token signed by a platform's own key:
// issuer must be the platform id, audience the app identity. The subject is
// the platform-side user subject and may be empty for anonymous tokens.
func VerifyPlatformToken(raw string, key *rsa.PublicKey, platformID, audience string) (string, error) {
	tok, err := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(platformID),
		jwtv5.WithAudience(audience),
	).Parse(raw, func(t *jwtv5.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims type", ErrInvalid)
	}
	return stringClaim(claims, "sub"), nil
}

// UnverifiedIssuer decodes a token without checking its signature and returns
// the issuer claim. The exchange flow uses it to learn which platform's key
// to verify with; nothing else may rely on unverified claims.
func UnverifiedIssuer(raw string) (string, error) {
	var claims jwtv5.MapClaims = jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	iss, err := claims.GetIssuer()
	if err != nil || iss == "" {
		return "", fmt.Errorf("%w: issuer missing", ErrInvalid)
	}
	return iss, nil
}

// --- claim coercion helpers ---

func stringClaim(claims jwtv5.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func scopeClaim(claims jwtv5.MapClaims, key string) scope.Set {
	arr, ok := claims[key].([]any)
	if !ok {
		return nil
	}
	set := scope.Set{}
	for _, v := range arr {
		if s, ok := v.(string); ok {
			set = append(set, s)
		}
	}
	return set
}

func dataClaim(claims jwtv5.MapClaims, key string) *UserData {
	m, ok := claims[key].(map[string]any)
	if !ok {
		return nil
	}
	d := &UserData{}
	d.Name, _ = m["name"].(string)
	d.Email, _ = m["email"].(string)
	d.Location, _ = m["location"].(string)
	return d
}
