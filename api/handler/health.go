package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/duel/engine"
	"github.com/use-agent/duel/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// PoolStatser reports browser page pool usage. The scraper implements it.
type PoolStatser interface {
	Stats() models.PoolStats
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when more than 80% of browser pages are active. pool may
// be nil when the browser strategies are disabled.
func Health(registry *engine.Registry, pool PoolStatser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.PoolStats
		if pool != nil {
			stats = pool.Stats()
		}

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			Strategies: registry.IDs(),
			PoolStats:  stats,
			Version:    Version,
		})
	}
}
