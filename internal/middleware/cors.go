package middleware

import (
	"net/http"
	"strings"
)

// OriginPolicy decides which browser origins may call the API and open
// the dashboard WebSocket.
type OriginPolicy struct {
	origins  map[string]bool
	wildcard bool
}

// NewOriginPolicy builds a policy from the configured origins. "*" allows
// every origin.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{origins: make(map[string]bool, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			p.wildcard = true
		}
		p.origins[origin] = true
	}
	return p
}

// Allows reports whether origin may be served.
func (p *OriginPolicy) Allows(origin string) bool {
	return p.wildcard || p.origins[origin]
}

// CORS answers preflight requests and sets the CORS headers for allowed
// origins. Listed origins may send credentials; with "*" they may not,
// as browsers reject that combination. A preflight from an origin the
// policy refuses gets a 403 API error.
func CORS(policy *OriginPolicy, allowedMethods []string, allowedHeaders []string) Middleware {
	methods := strings.Join(allowedMethods, ", ")
	headers := strings.Join(allowedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")
			preflight := r.Method == http.MethodOptions

			switch {
			case origin == "":
			case !policy.Allows(origin):
				if preflight {
					writeJSONError(w, http.StatusForbidden, "origin not allowed")
					return
				}
			default:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if !policy.wildcard {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
