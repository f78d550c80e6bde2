package middleware

import (
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie carrying the session token for browser
// clients; API clients use the Authorization header instead.
const SessionCookie = "ark_session"

var (
	jwtSecretOnce sync.Once
	jwtSecretVal  []byte
)

// MustInitJWTSecret resolves the JWT secret at startup so a missing secret
// fails the process before it starts serving.
func MustInitJWTSecret() {
	_ = jwtSecret()
}

func jwtSecret() []byte {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			panic("JWT_SECRET environment variable is not set")
		}
		jwtSecretVal = []byte(secret)
	})
	return jwtSecretVal
}

// JWTSecret exposes the resolved secret to the session manager for signing.
func JWTSecret() []byte {
	return jwtSecret()
}

// Claims is the session token payload. Elevated marks admin-provisioned
// callers allowed to use the bulk path.
type Claims struct {
	UserID   string `json:"userId"`
	Mail     string `json:"mail"`
	Elevated bool   `json:"elevated"`
	jwt.RegisteredClaims
}

// AuthMiddleware authenticates via bearer token or session cookie and places
// the caller identity into the gin context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString, _ = c.Cookie(SessionCookie)
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Authentication required",
			})
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			return jwtSecret(), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("mail", claims.Mail)
		c.Set("elevated", claims.Elevated)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// GetUserID returns the authenticated caller's user ID.
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		return "", false
	}
	return userID.(string), true
}

// IsElevated reports whether the caller holds the elevated capability.
func IsElevated(c *gin.Context) bool {
	elevated, exists := c.Get("elevated")
	if !exists {
		return false
	}
	v, ok := elevated.(bool)
	return ok && v
}
