// README: JWT bearer auth middleware. Puts the caller's id and role on the
// request context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	callerIDKey   = "caller_id"
	callerRoleKey = "caller_role"
)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates an HS256 bearer token and stores the subject and role claims
// for the handlers.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		var cl claims
		token, err := jwt.ParseWithClaims(parts[1], &cl, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || cl.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(callerIDKey, cl.Subject)
		c.Set(callerRoleKey, cl.Role)
		c.Next()
	}
}

// CallerID returns the authenticated subject, or "" when unauthenticated.
func CallerID(c *gin.Context) string {
	return c.GetString(callerIDKey)
}

// CallerRole returns the role claim, or "" when absent.
func CallerRole(c *gin.Context) string {
	return c.GetString(callerRoleKey)
}
