package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fled-backend/internal/auth/domain"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HS256 tokens signed with a shared secret
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a JWTVerifier; the secret must not be empty
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, rawToken string) (*domain.Identity, error) {
	token, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	uid, _ := claims["user_id"].(string)
	if uid == "" {
		uid, _ = claims["sub"].(string)
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return &domain.Identity{UID: uid, Email: email, Role: role}, nil
}

// Sign issues a token for identity valid for ttl
func (v *JWTVerifier) Sign(identity *domain.Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": identity.UID,
		"email":   identity.Email,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	if identity.Role != "" {
		claims["role"] = identity.Role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
