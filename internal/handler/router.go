// Package handler provides the HTTP API of Sigil.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/prn-tf/sigil/internal/service"
)

// Router wires the API routes.
type Router struct {
	sessionHandler    *SessionHandler
	diagnosticHandler *DiagnosticHandler
	sessionService    *service.SessionService
	loginLimiter      *RateLimiter
	logger            zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	SessionHandler    *SessionHandler
	DiagnosticHandler *DiagnosticHandler
	SessionService    *service.SessionService
	LoginLimiter      *RateLimiter
	Logger            zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		sessionHandler:    config.SessionHandler,
		diagnosticHandler: config.DiagnosticHandler,
		sessionService:    config.SessionService,
		loginLimiter:      config.LoginLimiter,
		logger:            config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(rt.logger))

	// Health check (no auth)
	r.Get("/healthz", rt.handleHealth)

	r.Route("/api/admin", func(r chi.Router) {
		login := http.HandlerFunc(rt.sessionHandler.Login)
		if rt.loginLimiter != nil {
			r.With(rt.loginLimiter.Middleware).Post("/login", login)
		} else {
			r.Post("/login", login)
		}
		r.Post("/logout", rt.sessionHandler.Logout)
		r.Get("/session", rt.sessionHandler.Session)
	})

	r.With(RequireAdmin(rt.sessionService)).Get("/api/health/r2", rt.diagnosticHandler.R2)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: rt.logger}),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(r)
}

// handleHealth handles liveness checks.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
