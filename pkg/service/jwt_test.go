package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "workitem-system/pkg/errors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestActorFromToken(t *testing.T) {
	svc := NewJWTService(testSecret, zap.NewNop())
	userID := uuid.New()

	signed := signToken(t, testSecret, Claims{
		UserID: userID.String(),
		Email:  "analyst@example.com",
		Role:   "IMPLEMENTATION_ANALYST",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	actor, err := svc.ActorFromToken(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, actor.ID)
	assert.Equal(t, "analyst@example.com", actor.Email)
	assert.Equal(t, "IMPLEMENTATION_ANALYST", actor.Role)
}

func TestActorFromTokenExpired(t *testing.T) {
	svc := NewJWTService(testSecret, zap.NewNop())
	signed := signToken(t, testSecret, Claims{
		UserID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err := svc.ActorFromToken(signed)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestActorFromTokenWrongSecret(t *testing.T) {
	svc := NewJWTService(testSecret, zap.NewNop())
	signed := signToken(t, "another-secret", Claims{
		UserID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err := svc.ActorFromToken(signed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestActorFromTokenGarbage(t *testing.T) {
	svc := NewJWTService(testSecret, zap.NewNop())

	_, err := svc.ActorFromToken("not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	// Valid signature but unparseable subject.
	signed := signToken(t, testSecret, Claims{
		UserID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err = svc.ActorFromToken(signed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
