package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/clinic/internal/service"
)

const principalKey = "principal"

// RequireAuth validates the bearer token and stores the principal on the
// request context.
func RequireAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}

		principal, err := auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequirePermission gates the route on a role capability.
func RequirePermission(action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if !service.Authorize(principal, action, resource) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal set by RequireAuth.
func GetPrincipal(c *gin.Context) service.Principal {
	value, _ := c.Get(principalKey)
	principal, _ := value.(service.Principal)
	return principal
}
