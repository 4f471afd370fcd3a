package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health -> GET /healthz
func Health(env, port string, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":     true,
			"env":    env,
			"uptime": time.Since(started).Seconds(),
			"port":   port,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
