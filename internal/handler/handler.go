package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"pdf-qr-hub/internal/auth"
	"pdf-qr-hub/internal/infrastructure/config"
	"pdf-qr-hub/internal/infrastructure/di"
	"pdf-qr-hub/internal/middleware"
)

// Response is the JSON envelope every API endpoint uses.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

const (
	// maxUploadFiles caps how many PDFs a single upload request may carry.
	maxUploadFiles = 10
	// maxUploadBytes is the per-file size limit (50 MiB).
	maxUploadBytes = 50 << 20
)

var (
	appContainer *di.Container
	appConfig    *config.Config
	appAuth      *auth.Authenticator
)

// RegisterRoutes wires all API endpoints onto the router.
func RegisterRoutes(router *mux.Router, cfg *config.Config, container *di.Container, authn *auth.Authenticator) {
	appConfig = cfg
	appContainer = container
	appAuth = authn

	api := router.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/health", healthCheckHandler).Methods("GET")
	api.HandleFunc("/auth/login", loginHandler).Methods("POST")
	api.HandleFunc("/pdf/{id}", downloadPDFHandler).Methods("GET")
	api.HandleFunc("/qr/{id}", downloadQRHandler).Methods("GET")
	api.HandleFunc("/file-info/{id}", fileInfoHandler).Methods("GET")

	// Admin endpoints
	api.HandleFunc("/auth/logout", logoutHandler).Methods("POST")
	api.HandleFunc("/auth/check", checkAuthHandler).Methods("GET")
	api.HandleFunc("/upload", uploadHandler).Methods("POST")
	api.HandleFunc("/files", listFilesHandler).Methods("GET")
	api.HandleFunc("/file/{id}", deleteFileHandler).Methods("DELETE")
	api.HandleFunc("/stats", statsHandler).Methods("GET")

	// QR code images are served as static assets.
	router.PathPrefix("/uploads/qrcodes/").Handler(
		http.StripPrefix("/uploads/qrcodes/", http.FileServer(http.Dir(cfg.QRDir()))))
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   appConfig.Application.Version,
	})
}

// requestOrigin resolves the absolute origin used when building public URLs.
// A configured base URL takes precedence over what the request reports.
func requestOrigin(r *http.Request) string {
	if appConfig != nil && appConfig.Application.BaseURL != "" {
		return strings.TrimRight(appConfig.Application.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func requestActor(r *http.Request) string {
	if s := middleware.SessionFromContext(r.Context()); s != nil {
		return s.Username
	}
	return "anonymous"
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: true,
		Data:    data,
	})
}

func writeSuccessMessage(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   message,
	})
}

func writeErrorWithCode(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   code,
		Message: message,
	})
}

func writeErrorWithCodeDetails(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(struct {
		Response
		Details map[string]interface{} `json:"details,omitempty"`
	}{
		Response: Response{
			Success: false,
			Error:   code,
			Message: message,
		},
		Details: details,
	})
}
