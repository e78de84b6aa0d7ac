package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	chathub_errors "chathub/pkg/errors"
)

// AccessClaims are the claims the external auth service puts in its tokens.
// This hub only verifies; issuance lives elsewhere.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Verifier validates externally issued bearer tokens and extracts the user id.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses the token and returns the authenticated user id. Any parse,
// signature, or expiry failure collapses to ErrUnauthorized; callers reject
// the handshake or request without detail leakage.
func (v *Verifier) Verify(tokenString string) (uuid.UUID, *AccessClaims, error) {
	if tokenString == "" {
		return uuid.Nil, nil, chathub_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, chathub_errors.ErrUnauthorized
		}
		return v.secret, nil
	})
	if err != nil {
		return uuid.Nil, nil, chathub_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, nil, chathub_errors.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, nil, chathub_errors.ErrUnauthorized
	}

	return userID, claims, nil
}
