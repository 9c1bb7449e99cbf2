package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/npuflow/component"
)

// Readiness answers 200 once no component is unhealthy, so a load balancer
// only routes batches after the model is loaded. The body names the
// components holding readiness back.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var waiting []string
		for _, h := range check(c.Request.Context(), checker) {
			if h.Status == component.StatusUnhealthy {
				waiting = append(waiting, h.Name)
			}
		}
		if len(waiting) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "service": serviceName, "waiting_on": waiting})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName})
	}
}
