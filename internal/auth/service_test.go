package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	memcache "github.com/wirus-app/wirus-auth/internal/cache/memory"
	"github.com/wirus-app/wirus-auth/internal/metrics"
	"github.com/wirus-app/wirus-auth/internal/identity"
	"github.com/wirus-app/wirus-auth/internal/scope"
	"github.com/wirus-app/wirus-auth/internal/store"
	memstore "github.com/wirus-app/wirus-auth/internal/store/memory"
	"github.com/wirus-app/wirus-auth/internal/token"
)

var (
	keyOnce     sync.Once
	appKeys     *token.KeyPair
	platformKey *token.KeyPair
)

func testKeys(t *testing.T) (*token.KeyPair, *token.KeyPair) {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		if appKeys, err = token.Generate(2048); err != nil {
			t.Fatalf("generating app keys: %v", err)
		}
		if platformKey, err = token.Generate(2048); err != nil {
			t.Fatalf("generating platform keys: %v", err)
		}
	})
	return appKeys, platformKey
}

type fakeIdentity map[string]identity.Identity

func (f fakeIdentity) VerifyIDToken(_ context.Context, tok string) (*identity.Identity, error) {
	id, ok := f[tok]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return &id, nil
}

type fixture struct {
	store  *memstore.Store
	svc    Service
	issuer *token.Issuer
	tokens *token.Verifier
	ids    fakeIdentity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keys, _ := testKeys(t)
	st := memstore.New()
	reg := scope.Default()
	issuer := token.NewIssuer(token.AppIssuer, keys)
	tokens := token.NewVerifier(token.AppIssuer, keys.Public)
	ids := fakeIdentity{}
	cred := &Verifier{Store: st, Identity: ids, Tokens: tokens, Registry: reg}
	resolver := token.NewKeyResolver(memcache.New(time.Minute), time.Minute)
	return &fixture{
		store:  st,
		svc:    NewService(st, cred, issuer, tokens, resolver, reg),
		issuer: issuer,
		tokens: tokens,
		ids:    ids,
	}
}

func (f *fixture) seedPlatform(id string, defaultScope scope.Set) {
	// testKeys has run by the time a fixture exists.
	pk := platformKey
	f.store.SeedPlatform(store.Platform{
		ID:           id,
		Name:         "Example",
		ClientSecret: "s3cret",
		RedirectURI:  "https://platform.example/callback",
		DefaultScope: defaultScope,
		PublicKey:    pk.PublicPEM,
	})
}

func (f *fixture) seedUser(id string, pairings map[string]store.Pairing) {
	f.store.SeedUser(store.User{
		ID:        id,
		Name:      "Ada",
		Email:     "ada@example.org",
		Location:  "Berlin",
		Platforms: pairings,
	})
}

// signPlatformToken builds a token the way an integrated platform would:
// signed with the platform key, issued by the platform, addressed to the app.
func signPlatformToken(t *testing.T, platformID, subject string) string {
	t.Helper()
	_, pk := testKeys(t)
	claims := jwtv5.MapClaims{
		"iss": platformID,
		"aud": token.AppIssuer,
		"iat": time.Now().Unix(),
	}
	if subject != "" {
		claims["sub"] = subject
	}
	raw, err := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims).SignedString(pk.Private)
	if err != nil {
		t.Fatalf("signing platform token: %v", err)
	}
	return raw
}

func TestTokenClientCredentialsDefaultScope(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})

	resp, err := f.svc.Token(context.Background(), TokenRequest{
		GrantType:    GrantClientCredentials,
		ClientID:     "shop",
		ClientSecret: "s3cret",
	})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if resp.TokenType != "bearer" || resp.ExpiresIn != -1 || resp.RefreshToken != nil {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	claims, err := f.tokens.VerifyAccessToken(resp.AccessToken, "shop")
	if err != nil {
		t.Fatalf("verifying issued token: %v", err)
	}
	if !claims.Scope.Equal(scope.Set{"wirus.actions.read"}) {
		t.Fatalf("scope = %v", claims.Scope)
	}
	if claims.User != "" || claims.Data != nil {
		t.Fatalf("machine token must not carry user data: %+v", claims)
	}
}

func TestTokenClientCredentialsStripsUserScope(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.user.read", "wirus.actions.read"})

	resp, err := f.svc.Token(context.Background(), TokenRequest{
		GrantType:    GrantClientCredentials,
		ClientID:     "shop",
		ClientSecret: "s3cret",
	})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	claims, err := f.tokens.VerifyAccessToken(resp.AccessToken, "shop")
	if err != nil {
		t.Fatalf("verifying issued token: %v", err)
	}
	for _, sc := range claims.Scope {
		if strings.HasPrefix(sc, "wirus.user") {
			t.Fatalf("user scope leaked into machine token: %v", claims.Scope)
		}
	}
	if !claims.Scope.Contains("wirus.actions.read") {
		t.Fatalf("scope = %v", claims.Scope)
	}
}

func TestTokenClientCredentialsWithSubject(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", map[string]store.Pairing{
		"shop": {Subject: "ext1", Scope: scope.Set{"wirus.actions.read", "wirus.actions.write"}},
	})

	resp, err := f.svc.Token(context.Background(), TokenRequest{
		GrantType:     GrantClientCredentials,
		ClientID:      "shop",
		ClientSecret:  "s3cret",
		ClientSubject: "ext1",
		Scope:         []string{"wirus.actions.get"},
	})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	claims, err := f.tokens.VerifyAccessToken(resp.AccessToken, "shop")
	if err != nil {
		t.Fatalf("verifying issued token: %v", err)
	}
	if claims.User != "u1" || claims.ClientSubject != "ext1" {
		t.Fatalf("claims = %+v", claims)
	}
	// wirus.actions.read narrows to the requested child, the unrequested
	// wirus.actions.write stays as a default grant.
	if !claims.Scope.Equal(scope.Set{"wirus.actions.get", "wirus.actions.write"}) {
		t.Fatalf("scope = %v", claims.Scope)
	}
}

func TestTokenClientCredentialsUnknownSubject(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})

	_, err := f.svc.Token(context.Background(), TokenRequest{
		GrantType:     GrantClientCredentials,
		ClientID:      "shop",
		ClientSecret:  "s3cret",
		ClientSubject: "nobody",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTokenRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})

	cases := []struct {
		name string
		req  TokenRequest
		want error
	}{
		{"missing grant", TokenRequest{ClientID: "shop", ClientSecret: "s3cret"}, ErrBadRequest},
		{"unknown grant", TokenRequest{GrantType: "password", ClientID: "shop", ClientSecret: "s3cret"}, ErrBadRequest},
		{"unknown client", TokenRequest{GrantType: GrantClientCredentials, ClientID: "ghost", ClientSecret: "x"}, ErrNotFound},
		{"wrong secret", TokenRequest{GrantType: GrantClientCredentials, ClientID: "shop", ClientSecret: "nope"}, ErrInvalidCredentials},
	}
	for _, tc := range cases {
		if _, err := f.svc.Token(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestTokenUnknownGrantCountsFailure(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})

	counter := metrics.GrantFailures.WithLabelValues("implicit")
	before := testutil.ToFloat64(counter)

	_, err := f.svc.Token(context.Background(), TokenRequest{
		GrantType:    "implicit",
		ClientID:     "shop",
		ClientSecret: "s3cret",
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Fatalf("grant failures = %v, want %v", got, before+1)
	}
}

func TestTokenAuthorizationCodeCreatesPairing(t *testing.T) {
	f := newFixture(t)
	granted := scope.Set{"wirus.user.name", "wirus.user.email", "wirus.actions.read"}
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", nil)

	code, err := f.issuer.IssueAuthorizationCode(token.AuthCodeClaims{User: "u1", Scope: granted}, "shop")
	if err != nil {
		t.Fatalf("issuing code: %v", err)
	}
	resp, err := f.svc.Token(context.Background(), TokenRequest{
		GrantType:     GrantAuthorizationCode,
		ClientID:      "shop",
		ClientSecret:  "s3cret",
		Code:          code,
		ClientSubject: "ext9",
	})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	claims, err := f.tokens.VerifyAccessToken(resp.AccessToken, "shop")
	if err != nil {
		t.Fatalf("verifying issued token: %v", err)
	}
	if claims.User != "u1" || !claims.Scope.Equal(granted) {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Data == nil || claims.Data.Name != "Ada" || claims.Data.Email != "ada@example.org" {
		t.Fatalf("data = %+v", claims.Data)
	}
	if claims.Data.Location != "" {
		t.Fatalf("location disclosed without scope: %+v", claims.Data)
	}

	user, err := f.store.Users().Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("loading user: %v", err)
	}
	pairing, ok := user.Platforms["shop"]
	if !ok || pairing.Subject != "ext9" || !pairing.Scope.Equal(granted) {
		t.Fatalf("pairing = %+v", user.Platforms)
	}
}

func TestTokenAuthorizationCodeOverwritesPairing(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", map[string]store.Pairing{
		"shop": {Subject: "ext1", Scope: scope.Set{"wirus.user.name"}},
	})

	granted := scope.Set{"wirus.user.name", "wirus.user.email"}
	code, err := f.issuer.IssueAuthorizationCode(token.AuthCodeClaims{
		User:          "u1",
		Scope:         granted,
		ClientSubject: "ext1",
	}, "shop")
	if err != nil {
		t.Fatalf("issuing code: %v", err)
	}
	resp, err := f.svc.Token(context.Background(), TokenRequest{
		GrantType:     GrantAuthorizationCode,
		ClientID:      "shop",
		ClientSecret:  "s3cret",
		Code:          code,
		ClientSubject: "ext1",
	})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	claims, err := f.tokens.VerifyAccessToken(resp.AccessToken, "shop")
	if err != nil {
		t.Fatalf("verifying issued token: %v", err)
	}
	if claims.Data == nil || claims.Data.Name != "Ada" || claims.Data.Email != "ada@example.org" {
		t.Fatalf("data = %+v", claims.Data)
	}

	user, err := f.store.Users().Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("loading user: %v", err)
	}
	pairing, ok := user.Platforms["shop"]
	if !ok || pairing.Subject != "ext1" || !pairing.Scope.Equal(granted) {
		t.Fatalf("pairing = %+v, want scope %v", user.Platforms, granted)
	}
}

func TestTokenAuthorizationCodeSubjectMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", nil)

	code, err := f.issuer.IssueAuthorizationCode(token.AuthCodeClaims{
		User:          "u1",
		Scope:         scope.Set{"wirus.actions.read"},
		ClientSubject: "ext1",
	}, "shop")
	if err != nil {
		t.Fatalf("issuing code: %v", err)
	}
	_, err = f.svc.Token(context.Background(), TokenRequest{
		GrantType:     GrantAuthorizationCode,
		ClientID:      "shop",
		ClientSecret:  "s3cret",
		Code:          code,
		ClientSubject: "ext2",
	})
	if !errors.Is(err, ErrSubjectMismatch) {
		t.Fatalf("err = %v, want ErrSubjectMismatch", err)
	}
}

func TestTokenAuthorizationCodeWrongAudience(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedPlatform("other", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", nil)

	code, err := f.issuer.IssueAuthorizationCode(token.AuthCodeClaims{User: "u1", Scope: scope.Set{"wirus.actions.read"}}, "other")
	if err != nil {
		t.Fatalf("issuing code: %v", err)
	}
	_, err = f.svc.Token(context.Background(), TokenRequest{
		GrantType:     GrantAuthorizationCode,
		ClientID:      "shop",
		ClientSecret:  "s3cret",
		Code:          code,
		ClientSubject: "ext1",
	})
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestExchangeKnownPairing(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", map[string]store.Pairing{"shop": {Subject: "ext1"}})

	res, err := f.svc.ExchangePlatformToken(context.Background(), ExchangeRequest{
		PlatformToken: signPlatformToken(t, "shop", "ext1"),
	})
	if err != nil {
		t.Fatalf("ExchangePlatformToken: %v", err)
	}
	if res.NoContent || res.AccessToken == "" {
		t.Fatalf("result = %+v", res)
	}
	claims, err := f.tokens.VerifyIdentityToken(res.AccessToken, "shop")
	if err != nil {
		t.Fatalf("verifying issued token: %v", err)
	}
	if claims.UserID != "u1" || !claims.AccountBound || claims.PlatformSubject != "ext1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestExchangeEmptySubjectNoContent(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})

	res, err := f.svc.ExchangePlatformToken(context.Background(), ExchangeRequest{
		PlatformToken: signPlatformToken(t, "shop", ""),
	})
	if err != nil {
		t.Fatalf("ExchangePlatformToken: %v", err)
	}
	if !res.NoContent {
		t.Fatalf("result = %+v, want no content", res)
	}
}

func TestExchangeUnpairedWithoutIDToken(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})

	res, err := f.svc.ExchangePlatformToken(context.Background(), ExchangeRequest{
		PlatformToken: signPlatformToken(t, "shop", "stranger"),
	})
	if err != nil {
		t.Fatalf("ExchangePlatformToken: %v", err)
	}
	if !res.NoContent {
		t.Fatalf("result = %+v, want no content", res)
	}
}

func TestExchangeWithIDTokenCreatesPairing(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", nil)

	idTok, err := f.issuer.IssueIdentityToken(token.IdentityClaims{UserID: "u1"}, "shop")
	if err != nil {
		t.Fatalf("issuing identity token: %v", err)
	}
	res, err := f.svc.ExchangePlatformToken(context.Background(), ExchangeRequest{
		PlatformToken: signPlatformToken(t, "shop", "ext7"),
		IDToken:       idTok,
	})
	if err != nil {
		t.Fatalf("ExchangePlatformToken: %v", err)
	}
	if res.NoContent || res.AccessToken == "" {
		t.Fatalf("result = %+v", res)
	}
	user, err := f.store.Users().Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("loading user: %v", err)
	}
	if p, ok := user.Platforms["shop"]; !ok || p.Subject != "ext7" {
		t.Fatalf("pairing = %+v", user.Platforms)
	}
}

func TestExchangeRejectsBoundIDToken(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", nil)

	idTok, err := f.issuer.IssueIdentityToken(token.IdentityClaims{UserID: "u1", AccountBound: true}, "shop")
	if err != nil {
		t.Fatalf("issuing identity token: %v", err)
	}
	_, err = f.svc.ExchangePlatformToken(context.Background(), ExchangeRequest{
		PlatformToken: signPlatformToken(t, "shop", "ext7"),
		IDToken:       idTok,
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestExchangeConflictingPairing(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", map[string]store.Pairing{"shop": {Subject: "other"}})

	idTok, err := f.issuer.IssueIdentityToken(token.IdentityClaims{UserID: "u1"}, "shop")
	if err != nil {
		t.Fatalf("issuing identity token: %v", err)
	}
	_, err = f.svc.ExchangePlatformToken(context.Background(), ExchangeRequest{
		PlatformToken: signPlatformToken(t, "shop", "ext7"),
		IDToken:       idTok,
	})
	if !errors.Is(err, ErrSubjectMismatch) {
		t.Fatalf("err = %v, want ErrSubjectMismatch", err)
	}
}

func TestExchangeUnknownIssuer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ExchangePlatformToken(context.Background(), ExchangeRequest{
		PlatformToken: signPlatformToken(t, "ghost", "ext1"),
	})
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthorizeBuildsRedirect(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.user.read", "wirus.actions.read"})
	f.seedUser("u1", map[string]store.Pairing{"shop": {Subject: "ext1"}})
	f.ids["usertoken"] = identity.Identity{UID: "u1"}

	r := httptest.NewRequest(http.MethodGet, "/api/auth/goto?client_id=shop", nil)
	r.Header.Set("Authorization", "Bearer usertoken")

	res, err := f.svc.Authorize(context.Background(), r, AuthorizeRequest{
		ClientID: "shop",
		Scope:    "wirus.user.name wirus.actions.read",
		State:    "xyz",
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	loc, err := url.Parse(res.Location)
	if err != nil {
		t.Fatalf("parsing location: %v", err)
	}
	if got := loc.Scheme + "://" + loc.Host + loc.Path; got != "https://platform.example/callback" {
		t.Fatalf("redirect target = %q", got)
	}
	q := loc.Query()
	if q.Get("state") != "xyz" || q.Get("client_subject") != "ext1" {
		t.Fatalf("query = %v", q)
	}
	code, err := f.tokens.VerifyAuthCode(q.Get("code"), "shop")
	if err != nil {
		t.Fatalf("verifying code: %v", err)
	}
	want := scope.Set{"wirus.user.name", "wirus.actions.read"}
	if code.User != "u1" || !code.Scope.Equal(want) || code.ClientSubject != "ext1" {
		t.Fatalf("code claims = %+v", code)
	}
}

func TestAuthorizeRejectsForeignRedirect(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.seedUser("u1", nil)
	f.ids["usertoken"] = identity.Identity{UID: "u1"}

	r := httptest.NewRequest(http.MethodGet, "/api/auth/goto", nil)
	r.Header.Set("Authorization", "Bearer usertoken")

	_, err := f.svc.Authorize(context.Background(), r, AuthorizeRequest{
		ClientID:    "shop",
		RedirectURI: "https://evil.example/steal",
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestAuthorizeRejectsUnknownUserToken(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})

	r := httptest.NewRequest(http.MethodGet, "/api/auth/goto", nil)
	r.Header.Set("Authorization", "Bearer nope")

	_, err := f.svc.Authorize(context.Background(), r, AuthorizeRequest{ClientID: "shop"})
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestClientInfo(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.user.name", "wirus.user.email"})

	info, err := f.svc.ClientInfo(context.Background(), InfoRequest{ClientID: "shop"})
	if err != nil {
		t.Fatalf("ClientInfo: %v", err)
	}
	if info.ID != "shop" || info.RedirectURI != "https://platform.example/callback" {
		t.Fatalf("info = %+v", info)
	}
	if info.ScopeDescription != "Name und Email" {
		t.Fatalf("scope description = %q", info.ScopeDescription)
	}
}

func TestRegisterPlatform(t *testing.T) {
	f := newFixture(t)
	f.store.SeedCode(store.RegistrationCode{
		ID:           "reg-1",
		Type:         "client_registration",
		AllowedScope: scope.Set{"wirus.actions.read"},
	})

	req := RegisterRequest{
		RegistrationCode: "reg-1",
		ClientID:         "newshop",
		ClientSecret:     "topsecret",
		RedirectURI:      "https://newshop.example/cb",
		DefaultScope:     []string{"wirus.actions.get"},
	}
	if err := f.svc.RegisterPlatform(context.Background(), req); err != nil {
		t.Fatalf("RegisterPlatform: %v", err)
	}
	p, err := f.store.Platforms().Get(context.Background(), "newshop")
	if err != nil {
		t.Fatalf("loading platform: %v", err)
	}
	if !p.DefaultScope.Equal(scope.Set{"wirus.actions.get"}) {
		t.Fatalf("default scope = %v", p.DefaultScope)
	}

	// The code is burned now.
	req.ClientID = "another"
	if err := f.svc.RegisterPlatform(context.Background(), req); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("reuse err = %v, want ErrBadRequest", err)
	}
}

func TestRegisterPlatformRejectsIllegalScope(t *testing.T) {
	f := newFixture(t)
	f.store.SeedCode(store.RegistrationCode{
		ID:           "reg-1",
		Type:         "client_registration",
		AllowedScope: scope.Set{"wirus.actions.read"},
	})

	err := f.svc.RegisterPlatform(context.Background(), RegisterRequest{
		RegistrationCode: "reg-1",
		ClientID:         "newshop",
		ClientSecret:     "topsecret",
		DefaultScope:     []string{"wirus.platform.write"},
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestRegisterPlatformConflict(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.actions.read"})
	f.store.SeedCode(store.RegistrationCode{
		ID:           "reg-1",
		Type:         "client_registration",
		AllowedScope: scope.Set{"wirus.actions.read"},
	})

	err := f.svc.RegisterPlatform(context.Background(), RegisterRequest{
		RegistrationCode: "reg-1",
		ClientID:         "shop",
		ClientSecret:     "topsecret",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestPlatformSelfService(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.platform.read", "wirus.platform.write"})

	access, err := f.issuer.IssueAccessToken(token.AccessClaims{
		Scope: scope.Set{"wirus.platform.read", "wirus.platform.write"},
	}, "shop")
	if err != nil {
		t.Fatalf("issuing access token: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/api/platform/shop/get", nil)
	r.Header.Set("Authorization", "Bearer "+access)

	p, err := f.svc.GetPlatform(context.Background(), r, "shop")
	if err != nil {
		t.Fatalf("GetPlatform: %v", err)
	}
	if p.ID != "shop" {
		t.Fatalf("platform = %+v", p)
	}

	name := "Renamed"
	p, err = f.svc.UpdatePlatform(context.Background(), r, "shop", PlatformUpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("UpdatePlatform: %v", err)
	}
	if p.Name != "Renamed" {
		t.Fatalf("name = %q", p.Name)
	}
}

func TestPlatformSelfServiceForbidden(t *testing.T) {
	f := newFixture(t)
	f.seedPlatform("shop", scope.Set{"wirus.platform.read"})

	access, err := f.issuer.IssueAccessToken(token.AccessClaims{
		Scope: scope.Set{"wirus.platform.read"},
	}, "shop")
	if err != nil {
		t.Fatalf("issuing access token: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, "/api/platform/shop/update", nil)
	r.Header.Set("Authorization", "Bearer "+access)

	name := "Renamed"
	if _, err := f.svc.UpdatePlatform(context.Background(), r, "shop", PlatformUpdateRequest{Name: &name}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
