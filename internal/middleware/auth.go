package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"pdf-qr-hub/internal/auth"
	"pdf-qr-hub/internal/authz"
)

// SessionKey carries the authenticated *auth.Session in the request context.
const SessionKey ctxKey = "session"

// AuthMiddleware resolves the caller's role from the bearer token and
// enforces the route policy. With requireAuth disabled every caller is
// treated as admin (single code path, no separate unauthenticated routing).
func AuthMiddleware(authn *auth.Authenticator, requireAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CORS preflight passes through
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			role := authz.RoleAnonymous
			if !requireAuth {
				role = authz.RoleAdmin
			}

			if token := BearerToken(r); token != "" {
				if session := authn.Check(token); session != nil {
					role = authz.RoleAdmin
					ctx := context.WithValue(r.Context(), SessionKey, session)
					r = r.WithContext(ctx)
				}
			}

			if !authz.Allowed(role, r.URL.Path, r.Method) {
				writeUnauthorizedResponse(w, "AUTHENTICATION_REQUIRED")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header, or "".
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// SessionFromContext returns the authenticated session, or nil.
func SessionFromContext(ctx context.Context) *auth.Session {
	if v := ctx.Value(SessionKey); v != nil {
		if s, ok := v.(*auth.Session); ok {
			return s
		}
	}
	return nil
}

// writeUnauthorizedResponse writes the unified 401 JSON body
func writeUnauthorizedResponse(w http.ResponseWriter, errorType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	response := map[string]interface{}{
		"success": false,
		"error":   errorType,
		"message": getErrorMessage(errorType),
	}

	json.NewEncoder(w).Encode(response)
}

func getErrorMessage(errorType string) string {
	messages := map[string]string{
		"AUTHENTICATION_REQUIRED": "Authentication required",
		"SESSION_EXPIRED":         "Session expired",
	}

	if msg, exists := messages[errorType]; exists {
		return msg
	}
	return "Authentication failed"
}
