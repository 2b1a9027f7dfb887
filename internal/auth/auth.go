package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/meetly/signal-server/internal/config"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Identity is the verified principal behind a connection.
type Identity struct {
	UserID string
}

// Verifier validates the opaque bearer token presented at connection time.
// Implementations have no side effects beyond returning a verdict.
type Verifier interface {
	Verify(credential string) (Identity, error)
}

func NewVerifier(cfg config.Config) (Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		return NewJWTVerifier(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// CredentialFromRequest extracts the bearer token from an upgrade request.
// The Authorization header is preferred; the "token" query parameter is the
// fallback for browser WebSocket clients, which cannot set headers.
func CredentialFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			if tok := strings.TrimSpace(h[len(prefix):]); tok != "" {
				return tok, nil
			}
		}
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, nil
	}
	return "", ErrMissingCredentials
}

// IsUnauthorized reports whether err should be treated as an authentication
// failure rather than an internal error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrInvalidCredentials)
}
