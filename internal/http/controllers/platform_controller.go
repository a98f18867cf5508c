package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wirus-app/wirus-auth/internal/auth"
	httpx "github.com/wirus-app/wirus-auth/internal/http"
	"github.com/wirus-app/wirus-auth/internal/scope"
	"github.com/wirus-app/wirus-auth/internal/store"
)

// PlatformController handles the platform self-service endpoints. Access is
// gated by an access token scoped to the platform in the path.
type PlatformController struct {
	service auth.Service
}

func NewPlatformController(s auth.Service) *PlatformController {
	return &PlatformController{service: s}
}

// platformView is the public projection; the client secret never leaves the
// store.
type platformView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Logo         string    `json:"logo"`
	URL          string    `json:"url"`
	RedirectURI  string    `json:"redirect_uri"`
	DefaultScope scope.Set `json:"default_scope"`
}

func viewOf(p *store.Platform) platformView {
	return platformView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Logo:         p.Logo,
		URL:          p.URL,
		RedirectURI:  p.RedirectURI,
		DefaultScope: p.DefaultScope,
	}
}

// Get handles GET /api/platform/{platformID}/get.
func (c *PlatformController) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "platformID")
	p, err := c.service.GetPlatform(r.Context(), r, id)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(p))
}

// Update handles POST /api/platform/{platformID}/update.
func (c *PlatformController) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "platformID")
	var req auth.PlatformUpdateRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	p, err := c.service.UpdatePlatform(r.Context(), r, id, req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(p))
}
