// ABOUTME: Bearer-token middleware for the protected HTTP surface
// ABOUTME: Extracts the token, verifies it, and attaches the principal to the request context

package httpapi

import (
	"net/http"
	"strings"

	"github.com/ChrisTracy/gate-opener/internal/auth"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// requireToken verifies the bearer token and attaches the resulting
// principal to the request context. Every verification failure is reported
// identically; the real reason is logged only, so callers cannot probe token
// structure.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
		if errMsg != "" {
			s.logger.Debug("token extraction failed", "reason", errMsg)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		principal, err := s.verifier.Verify(token)
		if err != nil {
			s.logger.Debug("token verification failed", "reason", err)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}
