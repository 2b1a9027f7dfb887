package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims matches the tokens minted by the account service: the user
// identifier lives in a custom "id" claim, with "sub" as a fallback.
type tokenClaims struct {
	ID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256-signed bearer tokens against a shared secret.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (v *JWTVerifier) Verify(credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, ErrMissingCredentials
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidCredentials
	}

	userID := claims.ID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{UserID: userID}, nil
}
