package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scribble/token"
)

// ContextUserID is the gin context key holding the authenticated user id.
const ContextUserID = "userId"

// RequireAuth validates the bearer token and stores the user id in the
// request context.
func RequireAuth(tokens token.Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// Fall back to a query parameter for clients that cannot set
			// headers.
			if tok := c.Query("token"); tok != "" {
				authHeader = "Bearer " + tok
			}
		}
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be: Bearer <token>"})
			return
		}

		userID, err := tokens.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
