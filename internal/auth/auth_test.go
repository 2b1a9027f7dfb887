package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/meetly/signal-server/internal/config"
)

func TestCredentialFromRequest(t *testing.T) {
	t.Run("authorization header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer tok-123")

		cred, err := CredentialFromRequest(r)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if cred != "tok-123" {
			t.Fatalf("cred=%q, want tok-123", cred)
		}
	})

	t.Run("header scheme is case-insensitive", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "bearer tok-123")

		cred, err := CredentialFromRequest(r)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if cred != "tok-123" {
			t.Fatalf("cred=%q", cred)
		}
	})

	t.Run("query fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token=tok-q", nil)

		cred, err := CredentialFromRequest(r)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if cred != "tok-q" {
			t.Fatalf("cred=%q, want tok-q", cred)
		}
	})

	t.Run("header wins over query", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token=tok-q", nil)
		r.Header.Set("Authorization", "Bearer tok-h")

		cred, err := CredentialFromRequest(r)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if cred != "tok-h" {
			t.Fatalf("cred=%q, want tok-h", cred)
		}
	})

	t.Run("non-bearer scheme falls through to query", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token=tok-q", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		cred, err := CredentialFromRequest(r)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if cred != "tok-q" {
			t.Fatalf("cred=%q, want tok-q", cred)
		}
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		if _, err := CredentialFromRequest(r); !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("err=%v, want ErrMissingCredentials", err)
		}
	})
}

func TestNewVerifier(t *testing.T) {
	v, err := NewVerifier(config.Config{AuthMode: config.AuthModeJWT, JWTSecret: "s"})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	if _, ok := v.(*JWTVerifier); !ok {
		t.Fatalf("verifier type %T, want *JWTVerifier", v)
	}

	if _, err := NewVerifier(config.Config{AuthMode: config.AuthModeNone}); err == nil {
		t.Fatalf("expected error for auth_mode=none (no verifier needed)")
	}
}
