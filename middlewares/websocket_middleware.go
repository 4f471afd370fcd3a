package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StaffTokenMiddleware guards the staff feed with a shared token passed as
// ?token=, since browsers cannot set headers on websocket upgrades.
func StaffTokenMiddleware(staffToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if staffToken == "" {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		token := c.Query("token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(staffToken)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
