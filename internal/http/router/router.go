// Package router assembles the HTTP surface of the authorization layer.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wirus-app/wirus-auth/internal/auth"
	"github.com/wirus-app/wirus-auth/internal/http/controllers"
	"github.com/wirus-app/wirus-auth/internal/http/middlewares"
	"github.com/wirus-app/wirus-auth/internal/scope"
	"github.com/wirus-app/wirus-auth/internal/store"
)

// Deps carries everything the routes need.
type Deps struct {
	Auth        auth.Service
	Store       store.Store
	Registry    scope.Registry
	PublicPEM   string
	CORSOrigins []string
}

// New builds the router with all endpoints mounted.
func New(d Deps) http.Handler {
	authCtl := controllers.NewAuthController(d.Auth, d.Registry, d.PublicPEM)
	exchangeCtl := controllers.NewExchangeController(d.Auth)
	platformCtl := controllers.NewPlatformController(d.Auth)
	healthCtl := controllers.NewHealthController(d.Store)

	r := chi.NewRouter()
	r.Use(middlewares.RequestID)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Recover)
	r.Use(middlewares.CORS(d.CORSOrigins))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/token", authCtl.Token)
		r.Get("/info", authCtl.Info)
		r.Get("/goto", authCtl.Goto)
		r.Post("/register", authCtl.Register)
		r.Get("/public_key", authCtl.PublicKey)
		r.Get("/scopes", authCtl.Scopes)
	})

	// Legacy paths platforms integrate against.
	r.Route("/auth", func(r chi.Router) {
		r.Get("/token", exchangeCtl.Exchange)
		r.Get("/public_key", authCtl.PublicKey)
	})

	r.Route("/api/platform/{platformID}", func(r chi.Router) {
		r.Get("/get", platformCtl.Get)
		r.Post("/update", platformCtl.Update)
	})

	r.Get("/healthz", healthCtl.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
