package controllers

import (
	"net/http"

	httpx "github.com/wirus-app/wirus-auth/internal/http"
	"github.com/wirus-app/wirus-auth/internal/observability/logger"
	"github.com/wirus-app/wirus-auth/internal/store"
)

// HealthController answers liveness probes, checking store reachability.
type HealthController struct {
	store store.Store
}

func NewHealthController(st store.Store) *HealthController {
	return &HealthController{store: st}
}

func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if err := c.store.Ping(r.Context()); err != nil {
		logger.From(r.Context()).Warn("store unreachable", logger.Err(err))
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
