package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suryanarayanrenjith/stock-portfolio/internal/auth"
)

// Keys set on the gin context by the auth middleware.
const (
	ctxUserID       = "user_id"
	ctxSessionToken = "session_token"
)

// AuthRequired gates a route group on a live session. The bearer token must
// carry a valid signature and still be registered in the session store.
func AuthRequired(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthenticated.Error()})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		userID, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthenticated.Error()})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxSessionToken, token)
		c.Next()
	}
}
