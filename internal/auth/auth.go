// Package auth выпускает и проверяет JWT вызывающих и переносит их личность в context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

var (
	ErrTokenMissing = errors.New("authorization token is missing")
	ErrTokenInvalid = errors.New("authorization token is invalid")
)

// Identity описывает проверенную личность вызывающего.
type Identity struct {
	UserID     string
	Role       domain.Role
	BusinessID string
}

// Actor переводит личность в актора доменных сервисов.
func (i Identity) Actor() domain.Actor {
	return domain.Actor{UserID: i.UserID, Role: i.Role, BusinessID: i.BusinessID}
}

// Claims содержит поля токена.
type Claims struct {
	Role       string `json:"role"`
	BusinessID string `json:"business_id,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator подписывает и проверяет токены HS256.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator создаёт Authenticator с общим секретом.
func NewAuthenticator(secret string) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Authenticator{secret: []byte(secret), now: time.Now}, nil
}

// Issue выпускает токен для identity со сроком ttl.
func (a *Authenticator) Issue(identity Identity, ttl time.Duration) (string, error) {
	if identity.UserID == "" || !identity.Role.Valid() || identity.Role == domain.RoleSystem {
		return "", fmt.Errorf("issue token for %q/%q: %w", identity.UserID, identity.Role, ErrTokenInvalid)
	}
	now := a.now()
	claims := Claims{
		Role:       string(identity.Role),
		BusinessID: identity.BusinessID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись, срок действия и роль.
func (a *Authenticator) Parse(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrTokenMissing
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrTokenInvalid
	}

	identity := Identity{
		UserID:     claims.Subject,
		Role:       domain.Role(claims.Role),
		BusinessID: claims.BusinessID,
	}
	// Роль system выдаётся только внутренним процессам.
	if identity.UserID == "" || !identity.Role.Valid() || identity.Role == domain.RoleSystem {
		return Identity{}, fmt.Errorf("%w: bad subject or role", ErrTokenInvalid)
	}
	return identity, nil
}

// BearerToken извлекает токен из значения "Bearer <token>".
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrTokenMissing
	}
	return strings.TrimSpace(token), nil
}

type identityKey struct{}

// WithIdentity кладёт личность в context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// FromContext возвращает личность вызывающего.
func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
