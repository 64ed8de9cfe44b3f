package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/middleware"
	"github.com/MrEthical07/tokenauth/provider"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Options wires the router.
type Options struct {
	Engine    *tokenauth.Engine
	Providers *provider.Registry
	Logger    *slog.Logger
	// Middlewares run before routing, after request id and panic recovery.
	Middlewares []func(http.Handler) http.Handler
}

// Handler holds the dependencies shared by every route.
type Handler struct {
	engine    *tokenauth.Engine
	cfg       tokenauth.Config
	providers *provider.Registry
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewRouter returns a chi router with every tokenauth route mounted.
// The dev login route is only mounted when Config.DevLogin.Enabled is set.
func NewRouter(opts Options) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		engine:    opts.Engine,
		cfg:       opts.Engine.Config(),
		providers: opts.Providers,
		logger:    logger,
		validate:  validator.New(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer)
	for _, mw := range opts.Middlewares {
		r.Use(mw)
	}
	r.Get("/oauth2/authorization/{provider}", h.Authorize)
	r.Get(callbackPath+"/{provider}", h.Callback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/reissue", h.Reissue)
			r.Post("/logout", h.Logout)
			if h.cfg.DevLogin.Enabled {
				r.Get("/test/login", h.DevLogin)
			}
		})
		r.With(middleware.Guard(opts.Engine)).Get("/users/me", h.Me)
	})

	return r
}
