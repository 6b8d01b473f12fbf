package server

import (
	"github.com/gorilla/mux"

	"pdf-qr-hub/internal/auth"
	"pdf-qr-hub/internal/infrastructure/config"
	"pdf-qr-hub/internal/middleware"
)

// Server represents the HTTP server with configured middleware
type Server struct {
	Router *mux.Router
}

// New creates a new server instance and attaches middlewares
func New(cfg *config.Config, authn *auth.Authenticator) *Server {
	router := mux.NewRouter()

	// Order matters: request id first, CORS (preflight), logging,
	// panic recovery, then the auth gate.
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CorsMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.ErrorHandlerMiddleware)
	router.Use(middleware.AuthMiddleware(authn, cfg.AuthRequired()))

	return &Server{
		Router: router,
	}
}
