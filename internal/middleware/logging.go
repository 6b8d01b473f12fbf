package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"pdf-qr-hub/internal/logger"
)

// LoggingMiddleware records structured request/response events
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the writer to capture the status code
		wrapper := &responseWrapper{
			ResponseWriter: w,
			statusCode:     200,
		}

		requestID := r.Context().Value(RequestIDKey)

		var actor string
		if session := SessionFromContext(r.Context()); session != nil {
			actor = session.Username
		}

		l := logger.GetLogger()
		if l != nil {
			details := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"user_agent":  r.UserAgent(),
				"remote_addr": getClientIP(r),
			}
			l.InfoCtx(
				logger.EventAPIRequest,
				fmt.Sprintf("API request: %s %s", r.Method, r.URL.Path),
				details,
				"API_REQUEST",
				requestID,
				actor,
			)
		}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		if l != nil {
			details := map[string]interface{}{
				"method":        r.Method,
				"path":          r.URL.Path,
				"status_code":   wrapper.statusCode,
				"response_time": duration.Milliseconds(),
			}

			message := fmt.Sprintf("API response: %s %s [%d] (%dms)", r.Method, r.URL.Path, wrapper.statusCode, duration.Milliseconds())

			switch {
			case wrapper.statusCode >= 500:
				l.ErrorCtx(logger.EventAPIResponse, message, details, "API_RESPONSE_SERVER_ERROR", requestID, actor)
			case wrapper.statusCode >= 400:
				l.WarnCtx(logger.EventAPIResponse, message, details, "API_RESPONSE_ERROR", requestID, actor)
			default:
				l.InfoCtx(logger.EventAPIResponse, message, details, "API_RESPONSE", requestID, actor)
			}
		}
	})
}

// responseWrapper captures the response status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP resolves the client address behind proxies
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// X-Forwarded-For may hold multiple IPs, take the first
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}

	return ip
}
