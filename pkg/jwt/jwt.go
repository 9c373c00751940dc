// Package jwt signs and validates the token that carries a browser's
// CurrentUser record between requests.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/party-queue-system/pkg/models"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Name        string `json:"name"`
	SessionCode string `json:"session_code"`
	IsHost      bool   `json:"is_host"`
	jwt.RegisteredClaims
}

func (c *Claims) User() models.CurrentUser {
	return models.CurrentUser{
		Name:        c.Name,
		SessionCode: c.SessionCode,
		IsHost:      c.IsHost,
	}
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager returns a manager signing with HS256. A zero ttl issues tokens without expiry.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) GenerateToken(user models.CurrentUser) (string, error) {
	now := m.now()
	claims := Claims{
		Name:        user.Name,
		SessionCode: user.SessionCode,
		IsHost:      user.IsHost,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Subject:  user.SessionCode,
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
