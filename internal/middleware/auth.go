package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-dashboard/internal/auth"
)

// protectedPrefix is the path prefix whose mutating requests need
// credentials.
const protectedPrefix = "/api/"

// Realm is the Basic authentication realm announced on failures.
const Realm = "inventory"

// mutatingMethods are the HTTP methods that change the inventory.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Auth returns a middleware that authenticates mutating API requests.
// Reads, health checks, metrics, CORS preflight and the dashboard WebSocket stay
// public. A nil authenticator disables the check.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if authenticator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requiresAuth(r) {
				next.ServeHTTP(w, r)
				return
			}

			id, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("request_id", getRequestID(r)),
					zap.Error(err),
				)
				writeAuthError(w, authenticator.Method(), err)
				return
			}

			annotate(r, func(info *requestInfo) { info.subject = id.Subject })
			logger.Debug("authentication successful",
				zap.String("subject", id.Subject),
				zap.String("method", string(id.Method)),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// requiresAuth reports whether r changes the inventory.
func requiresAuth(r *http.Request) bool {
	return mutatingMethods[r.Method] && strings.HasPrefix(r.URL.Path, protectedPrefix)
}

// writeAuthError writes a 401 response with a WWW-Authenticate challenge.
func writeAuthError(w http.ResponseWriter, method auth.Method, err error) {
	w.Header().Set("WWW-Authenticate", challenge(method, err))
	writeJSONError(w, http.StatusUnauthorized, err.Error())
}

// challenge picks the WWW-Authenticate value for the configured method and
// the failure.
func challenge(method auth.Method, err error) string {
	basic := `Basic realm="` + Realm + `"`

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return basic
	case errors.Is(err, auth.ErrInvalidAPIKey):
		return "API-Key"
	}

	switch method {
	case auth.MethodBasic:
		return basic
	case auth.MethodAPIKey:
		return "API-Key"
	default:
		return basic + ", API-Key"
	}
}
