package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"consolerent-backend/internal/config"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/security"
)

// AuthMiddleware enforces the security level configured for the matched route.
// Public routes still attach claims when a valid token is presented, so
// quotes can include the caller's tier discount.
func AuthMiddleware(verifier security.TokenVerifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := ""
			if route := mux.CurrentRoute(r); route != nil {
				name = route.GetName()
			}
			level := config.RequiredLevel(name)

			token := extractToken(r)
			if level == config.SecurityPublic {
				if token != "" {
					if claims, err := verifier.ValidateToken(token); err == nil {
						r = r.WithContext(withClaims(r.Context(), claims))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			if token == "" {
				writeError(w, http.StatusUnauthorized, "authorization token is not provided", nil)
				return
			}
			claims, err := verifier.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token: "+err.Error(), nil)
				return
			}
			if level == config.SecurityAdmin && !claims.IsAdmin() {
				writeError(w, http.StatusForbidden, "admin role required", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs one line per request with the route name.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := ""
		if cur := mux.CurrentRoute(r); cur != nil {
			route = cur.GetName()
		}
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
