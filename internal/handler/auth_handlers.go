package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pdf-qr-hub/internal/auth"
	"pdf-qr-hub/internal/logger"
	"pdf-qr-hub/internal/middleware"
)

// loginHandler validates the admin credentials and mints a bearer token.
func loginHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	session, err := appAuth.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			writeErrorWithCode(w, http.StatusBadRequest, "MISSING_FIELDS", "Username and password are required")
		case errors.Is(err, auth.ErrInvalidOTP):
			logger.GetLogger().LogUserLogin(req.Username, r.RemoteAddr, false)
			writeErrorWithCode(w, http.StatusUnauthorized, "INVALID_OTP", "Invalid one-time code")
		default:
			logger.GetLogger().LogUserLogin(req.Username, r.RemoteAddr, false)
			writeErrorWithCode(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
		}
		return
	}

	logger.GetLogger().LogUserLogin(req.Username, r.RemoteAddr, true)
	writeSuccessMessage(w, http.StatusOK, "Login successful", map[string]interface{}{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt.Format(time.RFC3339),
	})
}

// logoutHandler invalidates the presented bearer token.
func logoutHandler(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeErrorWithCode(w, http.StatusBadRequest, "MISSING_TOKEN", "No session token provided")
		return
	}

	if s := middleware.SessionFromContext(r.Context()); s != nil {
		logger.GetLogger().InfoCtx(logger.EventLogout, "user logged out", nil, "",
			r.Context().Value(middleware.RequestIDKey), s.Username)
	}

	appAuth.Logout(token)
	writeSuccessMessage(w, http.StatusOK, "Logged out successfully", nil)
}

// checkAuthHandler reports whether the request carries a valid session.
// Reaching the handler means the auth gate accepted the request, so it
// only has to describe who the caller is.
func checkAuthHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"authenticated": true,
	}
	if s := middleware.SessionFromContext(r.Context()); s != nil {
		data["username"] = s.Username
		data["expiresAt"] = s.ExpiresAt.Format(time.RFC3339)
	}
	writeJSONResponse(w, http.StatusOK, data)
}
