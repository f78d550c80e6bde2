// Package session establishes and clears the caller's session. The command
// layer only sees the Establisher contract; the gin-bound implementation
// issues a signed JWT cookie.
package session

import (
	"fmt"
	"time"

	"github.com/arkplatform/user-service/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the session payload for an authenticated caller.
type Identity struct {
	UserID   string
	Mail     string
	Elevated bool
}

// Establisher sets or clears the current caller's session.
type Establisher interface {
	Set(identity Identity) error
	Clear()
}

// Manager creates request-scoped Establishers backed by JWT cookies.
type Manager struct {
	ttl time.Duration
}

func NewManager(ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{ttl: ttl}
}

// Bind returns an Establisher operating on one request's response.
func (m *Manager) Bind(c *gin.Context) Establisher {
	return &ginSession{c: c, ttl: m.ttl}
}

type ginSession struct {
	c   *gin.Context
	ttl time.Duration
}

func (s *ginSession) Set(identity Identity) error {
	claims := middleware.Claims{
		UserID:   identity.UserID,
		Mail:     identity.Mail,
		Elevated: identity.Elevated,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	s.c.SetCookie(middleware.SessionCookie, signed, int(s.ttl.Seconds()), "/", "", false, true)
	return nil
}

func (s *ginSession) Clear() {
	s.c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
}
