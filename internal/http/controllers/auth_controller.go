// Package controllers translates the HTTP surface into service calls. The
// controllers stay thin: parse, delegate, map errors.
package controllers

import (
	"net/http"
	"strings"

	"github.com/wirus-app/wirus-auth/internal/auth"
	httpx "github.com/wirus-app/wirus-auth/internal/http"
	"github.com/wirus-app/wirus-auth/internal/observability/logger"
	"github.com/wirus-app/wirus-auth/internal/scope"
)

// AuthController handles the platform-facing /api/auth endpoints.
type AuthController struct {
	service   auth.Service
	registry  scope.Registry
	publicPEM string
}

func NewAuthController(s auth.Service, registry scope.Registry, publicPEM string) *AuthController {
	return &AuthController{service: s, registry: registry, publicPEM: publicPEM}
}

// Token handles POST /api/auth/token.
func (c *AuthController) Token(w http.ResponseWriter, r *http.Request) {
	var req auth.TokenRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	resp, err := c.service.Token(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Info handles GET /api/auth/info, the consent screen's client lookup.
func (c *AuthController) Info(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	info, err := c.service.ClientInfo(r.Context(), auth.InfoRequest{
		ClientID:    q.Get("client_id"),
		RedirectURI: q.Get("redirect_uri"),
		Scope:       q.Get("scope"),
	})
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

// Goto handles GET /api/auth/goto: issues an authorization code for the
// authenticated user and answers with a 303 redirect to the platform.
func (c *AuthController) Goto(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := c.service.Authorize(r.Context(), r, auth.AuthorizeRequest{
		ClientID:    q.Get("client_id"),
		RedirectURI: q.Get("redirect_uri"),
		Scope:       q.Get("scope"),
		State:       q.Get("state"),
	})
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	logger.From(r.Context()).Debug("redirecting to platform", logger.Layer("controller"))
	http.Redirect(w, r, res.Location, http.StatusSeeOther)
}

// Register handles POST /api/auth/register. The registration code travels in
// the query, the client profile in the body.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	req.RegistrationCode = r.URL.Query().Get("registration_code")
	req.ClientID = strings.TrimSpace(req.ClientID)
	if err := c.service.RegisterPlatform(r.Context(), req); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "created"})
}

// PublicKey serves the app public key as PEM so platforms can verify tokens
// issued by the app.
func (c *AuthController) PublicKey(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(c.publicPEM))
}

// Scopes handles GET /api/auth/scopes and lists the scope registry.
func (c *AuthController) Scopes(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, c.registry)
}
