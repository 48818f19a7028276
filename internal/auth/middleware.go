package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const headerName = "Authorization"

// Guard gates write and administrative routes behind a single shared secret.
// There is no per-user identity, expiry or scope.
type Guard struct {
	secret string
}

// NewGuard returns a guard comparing bearer tokens against secret. An empty
// secret rejects every request.
func NewGuard(secret string) *Guard {
	return &Guard{secret: strings.TrimSpace(secret)}
}

// Middleware validates bearer tokens and aborts with 401 on mismatch.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Allow(extractToken(c)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "a valid access token is required",
			})
			return
		}
		c.Next()
	}
}

// Allow reports whether token matches the configured secret.
func (g *Guard) Allow(token string) bool {
	if g == nil || g.secret == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(g.secret)) == 1
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader(headerName)
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
