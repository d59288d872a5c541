package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/fundlink/chat-service/internal/domain"
)

var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrSessionRevoked = errors.New("session has been revoked")
)

// Claims are the JWT claims issued by the marketplace auth layer.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Validator checks bearer credentials presented at connection time.
// Validation is two-step: the JWT signature and expiry, then the Redis
// session store. The auth layer keeps the currently issued token under
// token:{userID}; a login elsewhere replaces it, so older tokens are
// rejected at the next connection attempt.
type Validator struct {
	secret    []byte
	client    *redis.Client
	keyPrefix string
}

func NewValidator(secret string, client *redis.Client, keyPrefix string) *Validator {
	if keyPrefix == "" {
		keyPrefix = "token:"
	}
	return &Validator{
		secret:    []byte(secret),
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Validate authenticates a bearer token and returns the identity it carries.
// A failed validation is fatal to the connection attempt; there is no retry.
func (v *Validator) Validate(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	stored, err := v.client.Get(ctx, fmt.Sprintf("%s%d", v.keyPrefix, claims.UserID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	if stored != token {
		return nil, ErrSessionRevoked
	}

	identity := &domain.Identity{
		ID:    claims.UserID,
		Role:  claims.Role,
		Name:  claims.Name,
		Email: claims.Email,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
