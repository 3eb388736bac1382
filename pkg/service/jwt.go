package service

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"workitem-system/internal/entities"
	apperrors "workitem-system/pkg/errors"
)

// Claims is what the identity provider puts into an access token. Token
// issuance happens elsewhere; this service only verifies.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type JWTService interface {
	ActorFromToken(tokenString string) (entities.Actor, error)
}

type jwtService struct {
	secretKey []byte
	logger    *zap.Logger
}

func NewJWTService(secretKey string, logger *zap.Logger) JWTService {
	return &jwtService{secretKey: []byte(secretKey), logger: logger}
}

func (s *jwtService) ActorFromToken(tokenString string) (entities.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return entities.Actor{}, apperrors.ErrTokenExpired
		}
		return entities.Actor{}, apperrors.ErrInvalidToken
	}
	if !token.Valid {
		return entities.Actor{}, apperrors.ErrInvalidToken
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return entities.Actor{}, apperrors.ErrInvalidToken
	}
	return entities.Actor{ID: id, Email: claims.Email, Role: claims.Role}, nil
}
