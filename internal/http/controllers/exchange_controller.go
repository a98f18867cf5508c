package controllers

import (
	"net/http"

	"github.com/wirus-app/wirus-auth/internal/auth"
	httpx "github.com/wirus-app/wirus-auth/internal/http"
)

// ExchangeController handles the legacy /auth endpoints platforms call
// directly with their own signed tokens.
type ExchangeController struct {
	service auth.Service
}

func NewExchangeController(s auth.Service) *ExchangeController {
	return &ExchangeController{service: s}
}

// Exchange handles GET /auth/token. The platform token travels as bearer,
// an optional identity token as the idToken query parameter. A valid
// platform user without an app pairing answers 204.
func (c *ExchangeController) Exchange(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.ExchangePlatformToken(r.Context(), auth.ExchangeRequest{
		PlatformToken: auth.BearerFromRequest(r),
		IDToken:       r.URL.Query().Get("idToken"),
	})
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if res.NoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, auth.TokenResponse{
		TokenType:   "bearer",
		AccessToken: res.AccessToken,
		ExpiresIn:   -1,
	})
}
