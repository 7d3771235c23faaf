// Package auth authenticates callers that modify the inventory.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Method names an authentication mode.
type Method string

const (
	// MethodNone disables authentication.
	MethodNone Method = "none"
	// MethodBasic is HTTP Basic authentication against bcrypt hashes.
	MethodBasic Method = "basic"
	// MethodAPIKey is authentication with the X-API-Key header.
	MethodAPIKey Method = "apikey"
	// MethodMulti accepts either Basic credentials or an API key.
	MethodMulti Method = "multi"
)

// Identity is the authenticated caller.
type Identity struct {
	Method  Method
	Subject string
}

// Authenticator validates a request and returns the caller identity.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
	Method() Method
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownMethod      = errors.New("unknown auth method")
)

// ParseMethod converts s into a Method. The empty string means MethodNone.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodNone, nil
	case MethodNone, MethodBasic, MethodAPIKey, MethodMulti:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Credentials holds the configured secrets for every method.
type Credentials struct {
	// BasicUsers is "user:bcrypt-hash" pairs separated by commas.
	BasicUsers string
	// APIKeys is "key:name" pairs separated by commas.
	APIKeys string
}

// New builds the authenticator for method. It returns nil for MethodNone.
func New(method Method, creds Credentials) (Authenticator, error) {
	switch method {
	case MethodNone, "":
		return nil, nil //nolint:nilnil // no authenticator is a valid configuration
	case MethodBasic:
		basic, err := NewBasicAuthenticator(creds.BasicUsers)
		if err != nil {
			return nil, err
		}
		return basic, nil
	case MethodAPIKey:
		apiKey, err := NewAPIKeyAuthenticator(creds.APIKeys)
		if err != nil {
			return nil, err
		}
		return apiKey, nil
	case MethodMulti:
		return newMulti(creds)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// newMulti combines whichever of basic and API key auth has credentials.
func newMulti(creds Credentials) (Authenticator, error) {
	var authenticators []Authenticator

	if strings.TrimSpace(creds.BasicUsers) != "" {
		basic, err := NewBasicAuthenticator(creds.BasicUsers)
		if err != nil {
			return nil, err
		}
		authenticators = append(authenticators, basic)
	}

	if strings.TrimSpace(creds.APIKeys) != "" {
		apiKey, err := NewAPIKeyAuthenticator(creds.APIKeys)
		if err != nil {
			return nil, err
		}
		authenticators = append(authenticators, apiKey)
	}

	if len(authenticators) == 0 {
		return nil, errors.New("multi auth: at least one of basic users or API keys is required")
	}

	return NewMultiAuthenticator(authenticators...), nil
}

// parsePairs splits "a:b,c:d" into a map. what names the entry kind in
// error messages.
func parsePairs(config, what string) (map[string]string, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s: config must not be empty", what)
	}

	pairs := make(map[string]string)
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		// Bcrypt hashes contain '$' but never ':', so the first colon
		// separates the pair.
		left, right, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%s: invalid entry format, expected name:value", what)
		}

		left = strings.TrimSpace(left)
		right = strings.TrimSpace(right)
		if left == "" || right == "" {
			return nil, fmt.Errorf("%s: both sides of an entry must be set", what)
		}

		pairs[left] = right
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s: no valid entries found", what)
	}

	return pairs, nil
}

// contextKey is the type for context keys in this package.
type contextKey string

// identityKey is the context key for Identity.
const identityKey contextKey = "identity"

// FromContext retrieves the caller identity from the context.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
