package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wirus-app/wirus-auth/internal/metrics"
	"github.com/wirus-app/wirus-auth/internal/observability/logger"
	"github.com/wirus-app/wirus-auth/internal/scope"
	"github.com/wirus-app/wirus-auth/internal/store"
	"github.com/wirus-app/wirus-auth/internal/token"
)

const (
	maxClientIDLen    = 40
	maxSecretLen      = 256
	codeTypeClientReg = "client_registration"
)

type service struct {
	store    store.Store
	verifier *Verifier
	issuer   *token.Issuer
	tokens   *token.Verifier
	keys     *token.KeyResolver
	registry scope.Registry
	now      func() time.Time
}

// NewService wires the grant flows against their dependencies.
func NewService(st store.Store, verifier *Verifier, issuer *token.Issuer, tokens *token.Verifier, keys *token.KeyResolver, registry scope.Registry) Service {
	return &service{
		store:    st,
		verifier: verifier,
		issuer:   issuer,
		tokens:   tokens,
		keys:     keys,
		registry: registry,
		now:      time.Now,
	}
}

func (s *service) Token(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.Token"), logger.Grant(req.GrantType))

	if req.GrantType == "" {
		return nil, fmt.Errorf("%w: grant type is missing", ErrBadRequest)
	}
	platform, err := s.verifier.VerifyClientCredentials(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		metrics.GrantFailures.WithLabelValues(req.GrantType).Inc()
		return nil, err
	}

	var claims token.AccessClaims
	switch req.GrantType {
	case GrantAuthorizationCode:
		c, err := s.tokenFromCode(ctx, platform, req)
		if err != nil {
			metrics.GrantFailures.WithLabelValues(req.GrantType).Inc()
			return nil, err
		}
		claims = *c
	case GrantClientCredentials:
		c, err := s.tokenFromClientCredentials(ctx, platform, req)
		if err != nil {
			metrics.GrantFailures.WithLabelValues(req.GrantType).Inc()
			return nil, err
		}
		claims = *c
	default:
		metrics.GrantFailures.WithLabelValues(req.GrantType).Inc()
		return nil, fmt.Errorf("%w: unknown grant type %q", ErrBadRequest, req.GrantType)
	}

	access, err := s.issuer.IssueAccessToken(claims, platform.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: signing access token: %v", ErrInternal, err)
	}
	metrics.TokensIssued.WithLabelValues("access").Inc()
	log.Info("access token issued", logger.PlatformID(platform.ID), logger.UserID(claims.User), logger.Scope(claims.Scope))
	return &TokenResponse{
		TokenType:    "bearer",
		AccessToken:  access,
		ExpiresIn:    -1,
		RefreshToken: nil,
	}, nil
}

// tokenFromCode redeems an authorization code for the claims of the access
// token. Redeeming refreshes the stored pairing when subject or scope moved.
func (s *service) tokenFromCode(ctx context.Context, platform *store.Platform, req TokenRequest) (*token.AccessClaims, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("%w: authorization code is missing", ErrBadRequest)
	}
	if req.ClientSubject == "" {
		return nil, fmt.Errorf("%w: client subject is missing", ErrBadRequest)
	}
	code, err := s.tokens.VerifyAuthCode(req.Code, platform.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: verifying authorization code: %v", ErrInvalidToken, err)
	}
	user, err := s.store.Users().Get(ctx, code.User)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user in authorization code", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: loading user: %v", ErrInternal, err)
	}
	if code.ClientSubject != "" && code.ClientSubject != req.ClientSubject {
		return nil, ErrSubjectMismatch
	}

	pairing, paired := user.Platforms[platform.ID]
	if !paired || pairing.Subject != req.ClientSubject || !pairing.Scope.Equal(code.Scope) {
		err := s.store.Users().SetPairing(ctx, user.ID, platform.ID, store.Pairing{
			Subject: req.ClientSubject,
			Scope:   code.Scope,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: storing pairing: %v", ErrInternal, err)
		}
	}

	return &token.AccessClaims{
		User:          code.User,
		Scope:         code.Scope,
		ClientSubject: code.ClientSubject,
		Data:          UserDataForScope(code.Scope, user),
	}, nil
}

// tokenFromClientCredentials issues machine-to-machine claims. An optional
// client subject selects the paired user whose grant bounds the scope;
// without one the platform default scope is the ceiling. User profile
// scopes are stripped because no consent backs them on this grant.
func (s *service) tokenFromClientCredentials(ctx context.Context, platform *store.Platform, req TokenRequest) (*token.AccessClaims, error) {
	var user *store.User
	allowed := platform.DefaultScope
	if req.ClientSubject != "" {
		u, err := s.store.Users().GetByPlatformSubject(ctx, platform.ID, req.ClientSubject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: no user associated with the provided client subject", ErrNotFound)
			}
			return nil, fmt.Errorf("%w: resolving client subject: %v", ErrInternal, err)
		}
		user = u
		allowed = u.Platforms[platform.ID].Scope
	}

	granted := allowed
	if len(req.Scope) > 0 {
		granted = s.registry.Bind(req.Scope, allowed)
	}
	filtered := make(scope.Set, 0, len(granted))
	for _, sc := range granted {
		if strings.HasPrefix(sc, "wirus.user") {
			continue
		}
		filtered = append(filtered, sc)
	}

	claims := &token.AccessClaims{Scope: filtered}
	if user != nil {
		claims.User = user.ID
		claims.ClientSubject = req.ClientSubject
		claims.Data = UserDataForScope(filtered, user)
	}
	return claims, nil
}

func (s *service) ExchangePlatformToken(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.ExchangePlatformToken"))

	if req.PlatformToken == "" {
		return nil, fmt.Errorf("%w: authorization token missing", ErrBadRequest)
	}
	iss, err := token.UnverifiedIssuer(req.PlatformToken)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding token: %v", ErrInvalidToken, err)
	}
	platform, err := s.store.Platforms().Get(ctx, iss)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: authentication token has unknown issuer %q", ErrInvalidToken, iss)
		}
		return nil, fmt.Errorf("%w: loading platform: %v", ErrInternal, err)
	}
	key, err := s.keys.Resolve(ctx, platform.ID, platform.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving platform key: %v", ErrInternal, err)
	}
	subject, err := token.VerifyPlatformToken(req.PlatformToken, key, platform.ID, token.AppIssuer)
	if err != nil {
		return nil, fmt.Errorf("%w: verifying platform token: %v", ErrInvalidToken, err)
	}
	if subject == "" {
		return &ExchangeResult{NoContent: true}, nil
	}

	user, err := s.store.Users().GetByPlatformSubject(ctx, platform.ID, subject)
	switch {
	case err == nil:
		return s.issueExchangeToken(platform.ID, user.ID, subject, log)
	case errors.Is(err, store.ErrNotFound):
		// Not paired yet. Without an identity token that is the final answer.
	default:
		return nil, fmt.Errorf("%w: resolving pairing: %v", ErrInternal, err)
	}
	if req.IDToken == "" {
		return &ExchangeResult{NoContent: true}, nil
	}

	id, err := s.tokens.VerifyIdentityToken(req.IDToken, platform.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: verifying identity token: %v", ErrInvalidToken, err)
	}
	if id.AccountBound {
		return nil, fmt.Errorf("%w: identity token must carry an unbound subject", ErrBadRequest)
	}
	user, err = s.store.Users().Get(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user in identity token", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: loading user: %v", ErrInternal, err)
	}
	if id.PlatformSubject != "" && id.PlatformSubject != subject {
		return nil, ErrSubjectMismatch
	}

	if pairing, ok := user.Platforms[platform.ID]; ok {
		if pairing.Subject != subject {
			return nil, ErrSubjectMismatch
		}
	} else {
		if err := s.store.Users().SetPairing(ctx, user.ID, platform.ID, store.Pairing{Subject: subject}); err != nil {
			return nil, fmt.Errorf("%w: storing pairing: %v", ErrInternal, err)
		}
		log.Info("pairing created", logger.PlatformID(platform.ID), logger.UserID(user.ID))
	}
	return s.issueExchangeToken(platform.ID, user.ID, subject, log)
}

func (s *service) issueExchangeToken(platformID, userID, subject string, log *zap.Logger) (*ExchangeResult, error) {
	access, err := s.issuer.IssueIdentityToken(token.IdentityClaims{
		UserID:          userID,
		AccountBound:    true,
		PlatformSubject: subject,
	}, platformID)
	if err != nil {
		return nil, fmt.Errorf("%w: signing token: %v", ErrInternal, err)
	}
	metrics.TokensIssued.WithLabelValues("identity").Inc()
	log.Info("platform token exchanged", logger.PlatformID(platformID), logger.UserID(userID))
	return &ExchangeResult{AccessToken: access}, nil
}

func (s *service) Authorize(ctx context.Context, r *http.Request, req AuthorizeRequest) (*AuthorizeResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.Authorize"))

	id, err := s.verifier.VerifyUserToken(ctx, r, "", nil)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().Get(ctx, id.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %q does not exist", ErrNotFound, id.UID)
		}
		return nil, fmt.Errorf("%w: loading user: %v", ErrInternal, err)
	}
	platform, redirect, granted, err := s.resolveClient(ctx, req.ClientID, req.RedirectURI, req.Scope)
	if err != nil {
		return nil, err
	}

	code := token.AuthCodeClaims{User: user.ID, Scope: granted}
	if pairing, ok := user.Platforms[platform.ID]; ok {
		code.ClientSubject = pairing.Subject
	}
	raw, err := s.issuer.IssueAuthorizationCode(code, platform.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: signing authorization code: %v", ErrInternal, err)
	}
	metrics.TokensIssued.WithLabelValues("auth_code").Inc()

	var loc strings.Builder
	loc.WriteString(redirect)
	loc.WriteString("?scope=")
	loc.WriteString(scope.Encode(granted))
	if code.ClientSubject != "" {
		loc.WriteString("&client_subject=")
		loc.WriteString(url.QueryEscape(code.ClientSubject))
	}
	if req.State != "" {
		loc.WriteString("&state=")
		loc.WriteString(url.QueryEscape(req.State))
	}
	loc.WriteString("&code=")
	loc.WriteString(raw)

	log.Info("authorization code issued", logger.PlatformID(platform.ID), logger.UserID(user.ID), logger.Scope(granted))
	return &AuthorizeResult{Location: loc.String()}, nil
}

func (s *service) ClientInfo(ctx context.Context, req InfoRequest) (*InfoResponse, error) {
	platform, redirect, granted, err := s.resolveClient(ctx, req.ClientID, req.RedirectURI, req.Scope)
	if err != nil {
		return nil, err
	}
	return &InfoResponse{
		ID:               platform.ID,
		Name:             platform.Name,
		Description:      platform.Description,
		Logo:             platform.Logo,
		URL:              platform.URL,
		RedirectURI:      redirect,
		Scope:            granted,
		ScopeDescription: s.registry.Describe(granted),
	}, nil
}

// resolveClient loads the platform, settles the effective redirect URI and
// binds the requested scope against the platform default scope.
func (s *service) resolveClient(ctx context.Context, clientID, redirectURI, rawScope string) (*store.Platform, string, scope.Set, error) {
	if clientID == "" {
		return nil, "", nil, fmt.Errorf("%w: client id is missing", ErrBadRequest)
	}
	platform, err := s.store.Platforms().Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", nil, fmt.Errorf("%w: client %q does not exist", ErrNotFound, clientID)
		}
		return nil, "", nil, fmt.Errorf("%w: loading client: %v", ErrInternal, err)
	}

	redirect := platform.RedirectURI
	if redirect != "" {
		if redirectURI != "" && redirectURI != redirect {
			return nil, "", nil, fmt.Errorf("%w: illegal redirect uri", ErrBadRequest)
		}
	} else {
		if redirectURI == "" {
			return nil, "", nil, fmt.Errorf("%w: redirect uri is missing", ErrBadRequest)
		}
		if !validRedirectURI(redirectURI) {
			return nil, "", nil, fmt.Errorf("%w: illegal redirect uri", ErrBadRequest)
		}
		redirect = redirectURI
	}

	granted := platform.DefaultScope
	if rawScope != "" {
		granted = s.registry.Bind(scope.Parse(rawScope), platform.DefaultScope)
	}
	return platform, redirect, granted, nil
}

func (s *service) RegisterPlatform(ctx context.Context, req RegisterRequest) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.RegisterPlatform"))

	switch {
	case req.RegistrationCode == "":
		return fmt.Errorf("%w: registration code is missing", ErrBadRequest)
	case req.ClientID == "":
		return fmt.Errorf("%w: client id is missing", ErrBadRequest)
	case len(req.ClientID) > maxClientIDLen:
		return fmt.Errorf("%w: client id exceeds %d characters", ErrBadRequest, maxClientIDLen)
	case req.ClientSecret == "":
		return fmt.Errorf("%w: client secret is missing", ErrBadRequest)
	case len(req.ClientSecret) > maxSecretLen:
		return fmt.Errorf("%w: client secret exceeds %d characters", ErrBadRequest, maxSecretLen)
	}
	if req.RedirectURI != "" && !validRedirectURI(req.RedirectURI) {
		return fmt.Errorf("%w: illegal redirect uri", ErrBadRequest)
	}

	code, err := s.store.Codes().Get(ctx, req.RegistrationCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: registration code does not exist", ErrNotFound)
		}
		return fmt.Errorf("%w: loading registration code: %v", ErrInternal, err)
	}
	if code.Used || code.Type != codeTypeClientReg {
		return fmt.Errorf("%w: registration code cannot be used", ErrBadRequest)
	}

	defaultScope := code.AllowedScope
	if len(req.DefaultScope) > 0 {
		reachable := s.registry.Expand(code.AllowedScope, true)
		for _, sc := range req.DefaultScope {
			if !reachable.Contains(sc) && !code.AllowedScope.Contains(sc) {
				return fmt.Errorf("%w: illegal scope %q", ErrBadRequest, sc)
			}
		}
		defaultScope = s.registry.Bind(req.DefaultScope, code.AllowedScope)
	}

	err = s.store.Platforms().Create(ctx, &store.Platform{
		ID:           req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
		DefaultScope: defaultScope,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: client %q already exists", ErrConflict, req.ClientID)
		}
		return fmt.Errorf("%w: creating client: %v", ErrInternal, err)
	}
	if err := s.store.Codes().MarkUsed(ctx, code.ID, req.ClientID); err != nil {
		return fmt.Errorf("%w: consuming registration code: %v", ErrInternal, err)
	}
	log.Info("platform registered", logger.PlatformID(req.ClientID), logger.Scope(defaultScope))
	return nil
}

func (s *service) GetPlatform(ctx context.Context, r *http.Request, platformID string) (*store.Platform, error) {
	if _, err := s.verifier.VerifyAccessToken(r, platformID, scope.Set{"wirus.platform.read"}); err != nil {
		return nil, err
	}
	platform, err := s.store.Platforms().Get(ctx, platformID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: platform %q does not exist", ErrNotFound, platformID)
		}
		return nil, fmt.Errorf("%w: loading platform: %v", ErrInternal, err)
	}
	return platform, nil
}

func (s *service) UpdatePlatform(ctx context.Context, r *http.Request, platformID string, req PlatformUpdateRequest) (*store.Platform, error) {
	if _, err := s.verifier.VerifyAccessToken(r, platformID, scope.Set{"wirus.platform.write"}); err != nil {
		return nil, err
	}
	if err := validatePlatformUpdate(req); err != nil {
		return nil, err
	}
	err := s.store.Platforms().Update(ctx, platformID, store.PlatformUpdate{
		Name:        req.Name,
		Description: req.Description,
		Logo:        req.Logo,
		URL:         req.URL,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: platform %q does not exist", ErrNotFound, platformID)
		}
		return nil, fmt.Errorf("%w: updating platform: %v", ErrInternal, err)
	}
	platform, err := s.store.Platforms().Get(ctx, platformID)
	if err != nil {
		return nil, fmt.Errorf("%w: reloading platform: %v", ErrInternal, err)
	}
	logger.From(ctx).Info("platform updated", logger.Layer("service"), logger.Op("auth.UpdatePlatform"), logger.PlatformID(platformID))
	return platform, nil
}

func validatePlatformUpdate(req PlatformUpdateRequest) error {
	if req.Name != nil && len(*req.Name) > maxClientIDLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrBadRequest, maxClientIDLen)
	}
	if req.Description != nil && len(*req.Description) > 500 {
		return fmt.Errorf("%w: description exceeds 500 characters", ErrBadRequest)
	}
	if req.Logo != nil && *req.Logo != "" && !validRedirectURI(*req.Logo) {
		return fmt.Errorf("%w: logo must be a valid url", ErrBadRequest)
	}
	if req.URL != nil && *req.URL != "" && !validRedirectURI(*req.URL) {
		return fmt.Errorf("%w: url must be a valid url", ErrBadRequest)
	}
	return nil
}

func validRedirectURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
