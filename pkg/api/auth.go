// Static bearer-token auth for the text ingestion endpoint.
//
// Requests must carry one of:
//
//	Authorization: Bearer <api_token>
//	X-API-Key: <api_token>
//
// Satellite WebSocket connections are intentionally not token-gated; the
// text endpoint is the only authenticated surface.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/grvsrs/groundstation/pkg/logger"
)

// authMiddleware wraps a handler with bearer token checking. An empty token
// disables auth (development mode) with a startup warning.
func authMiddleware(apiToken string, next http.Handler) http.Handler {
	if apiToken == "" {
		logger.WarnC("auth", "API token not set — text endpoint auth DISABLED")
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if !tokenValid(token, apiToken) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ground-station"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "unauthorized — bearer token required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken pulls the token from the Authorization or X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// tokenValid does a constant-time comparison to prevent timing attacks.
func tokenValid(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
