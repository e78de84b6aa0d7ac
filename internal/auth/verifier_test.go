package auth

import (
	"testing"
	"time"

	chathub_errors "chathub/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims AccessClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier("secret")
	want := uuid.New()
	token := signToken(t, "secret", AccessClaims{
		UserID:   want.String(),
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	userID, claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, want, userID)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyRejections(t *testing.T) {
	v := NewVerifier("secret")
	valid := AccessClaims{
		UserID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"wrong secret": signToken(t, "other", valid),
		"expired": signToken(t, "secret", AccessClaims{
			UserID: uuid.New().String(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}),
		"bad user id": signToken(t, "secret", AccessClaims{
			UserID: "not-a-uuid",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := v.Verify(token)
			assert.ErrorIs(t, err, chathub_errors.ErrUnauthorized)
		})
	}
}
