// Package http exposes the gearshop policy core over a JSON REST API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gearshop/gearshop"
)

// Options tunes the HTTP surface; zero values fall back to sane defaults.
type Options struct {
	Logger logr.Logger
	// LoginRatePerMinute bounds login attempts per client address.
	// Zero disables the limiter.
	LoginRatePerMinute int
	LoginRateBurst     int
}

type Server struct {
	client  *gearshop.Client
	logger  logr.Logger
	limiter *loginLimiter
}

// NewHandler builds the full route tree around a configured client.
func NewHandler(client *gearshop.Client, options Options) http.Handler {
	server := &Server{
		client:  client,
		logger:  resolveLogger(options.Logger),
		limiter: newLoginLimiter(options.LoginRatePerMinute, options.LoginRateBurst),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(instrument)

	router.Get("/healthz", server.handleHealth)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", server.handleRegister)
			auth.With(server.rateLimitLogin).Post("/login", server.handleLogin)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(server.requireAuth)
			users.Get("/me", server.handleAccount)
			users.Patch("/me", server.handleUpdateProfile)
			users.Delete("/me", server.handleDeleteAccount)
			users.Get("/all", server.handleListAccounts)
			users.Patch("/role", server.handleChangeRole)
		})

		api.Route("/products", func(products chi.Router) {
			products.Get("/", server.handleListProducts)
			products.Get("/sort", server.handleSortProducts)
			products.Get("/search", server.handleSearchProducts)
			products.Get("/{id}", server.handleProduct)

			products.Group(func(authed chi.Router) {
				authed.Use(server.requireAuth)
				authed.Post("/", server.handleCreateProduct)
				authed.Get("/mine", server.handleMyProducts)
				authed.Delete("/purge", server.handlePurge)
				authed.Patch("/{id}", server.handleUpdateProduct)
				authed.Delete("/{id}", server.handleDeleteProduct)
			})
		})
	})

	return router
}

func resolveLogger(logger logr.Logger) logr.Logger {
	if logger.GetSink() == nil {
		return logr.Discard()
	}
	return logger
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
