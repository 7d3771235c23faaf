package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the HTTP header name for API key authentication.
const APIKeyHeader = "X-API-Key"

type apiKey struct {
	value []byte
	name  string
}

// APIKeyAuthenticator authenticates requests by the X-API-Key header.
type APIKeyAuthenticator struct {
	keys []apiKey
}

// NewAPIKeyAuthenticator creates an API key authenticator from a
// configuration string in the format "key1:name1,key2:name2".
func NewAPIKeyAuthenticator(keysConfig string) (*APIKeyAuthenticator, error) {
	pairs, err := parsePairs(keysConfig, "apikey auth")
	if err != nil {
		return nil, err
	}

	keys := make([]apiKey, 0, len(pairs))
	for value, name := range pairs {
		keys = append(keys, apiKey{value: []byte(value), name: name})
	}

	return &APIKeyAuthenticator{keys: keys}, nil
}

// Authenticate compares the presented key with every configured key in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return nil, ErrUnauthenticated
	}

	var match *apiKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare([]byte(presented), a.keys[i].value) == 1 {
			match = &a.keys[i]
		}
	}

	if match == nil {
		return nil, ErrInvalidAPIKey
	}

	return &Identity{Method: MethodAPIKey, Subject: match.name}, nil
}

// Method returns the authentication method type.
func (a *APIKeyAuthenticator) Method() Method {
	return MethodAPIKey
}
