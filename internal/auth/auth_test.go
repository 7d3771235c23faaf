package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vyrodovalexey/inventory-dashboard/internal/auth"
)

func TestParseMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    auth.Method
		wantErr bool
	}{
		{input: "", want: auth.MethodNone},
		{input: "none", want: auth.MethodNone},
		{input: "basic", want: auth.MethodBasic},
		{input: " APIKEY ", want: auth.MethodAPIKey},
		{input: "multi", want: auth.MethodMulti},
		{input: "oidc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			// Act
			got, err := auth.ParseMethod(tt.input)

			// Assert
			if tt.wantErr {
				if !errors.Is(err, auth.ErrUnknownMethod) {
					t.Errorf("ParseMethod() error = %v, want ErrUnknownMethod", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMethod() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMethod() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	hash := generateBcryptHash(t, "secret")

	tests := []struct {
		name       string
		method     auth.Method
		creds      auth.Credentials
		wantNil    bool
		wantMethod auth.Method
		wantErr    bool
	}{
		{name: "none", method: auth.MethodNone, wantNil: true},
		{
			name:       "basic",
			method:     auth.MethodBasic,
			creds:      auth.Credentials{BasicUsers: "admin:" + hash},
			wantMethod: auth.MethodBasic,
		},
		{name: "basic without users", method: auth.MethodBasic, wantErr: true},
		{
			name:       "apikey",
			method:     auth.MethodAPIKey,
			creds:      auth.Credentials{APIKeys: "k1:ci"},
			wantMethod: auth.MethodAPIKey,
		},
		{name: "apikey without keys", method: auth.MethodAPIKey, wantErr: true},
		{
			name:       "multi with both",
			method:     auth.MethodMulti,
			creds:      auth.Credentials{BasicUsers: "admin:" + hash, APIKeys: "k1:ci"},
			wantMethod: auth.MethodMulti,
		},
		{
			name:       "multi with keys only",
			method:     auth.MethodMulti,
			creds:      auth.Credentials{APIKeys: "k1:ci"},
			wantMethod: auth.MethodMulti,
		},
		{name: "multi without credentials", method: auth.MethodMulti, wantErr: true},
		{
			name:    "multi with broken basic users",
			method:  auth.MethodMulti,
			creds:   auth.Credentials{BasicUsers: "nocolon", APIKeys: "k1:ci"},
			wantErr: true,
		},
		{name: "unknown", method: "kerberos", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Act
			authenticator, err := auth.New(tt.method, tt.creds)

			// Assert
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if tt.wantNil {
				if authenticator != nil {
					t.Errorf("New() = %v, want nil", authenticator)
				}
				return
			}
			if authenticator == nil {
				t.Fatal("New() returned nil authenticator")
			}
			if authenticator.Method() != tt.wantMethod {
				t.Errorf("Method() = %s, want %s", authenticator.Method(), tt.wantMethod)
			}
		})
	}
}

func TestWithIdentityAndFromContext(t *testing.T) {
	t.Parallel()

	// Arrange
	id := &auth.Identity{Method: auth.MethodAPIKey, Subject: "ci"}

	// Act
	ctx := auth.WithIdentity(context.Background(), id)
	got, ok := auth.FromContext(ctx)

	// Assert
	if !ok {
		t.Fatal("FromContext() ok = false, want true")
	}
	if got != id {
		t.Errorf("FromContext() = %+v, want %+v", got, id)
	}
}

func TestFromContext_EmptyContext(t *testing.T) {
	t.Parallel()

	got, ok := auth.FromContext(context.Background())

	if ok || got != nil {
		t.Errorf("FromContext() = %v, %v; want nil, false", got, ok)
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	errs := []error{
		auth.ErrUnauthenticated,
		auth.ErrInvalidAPIKey,
		auth.ErrInvalidCredentials,
		auth.ErrUnknownMethod,
	}

	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
