package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/duel/api/handler"
	"github.com/use-agent/duel/api/middleware"
	"github.com/use-agent/duel/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(rc *handler.Racer, pool handler.PoolStatser, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(rc.Registry, pool, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.GET("/strategies", rc.ListStrategies())
	protected.POST("/race", rc.PostRace())
	protected.POST("/race/stream", rc.StreamRace())
	protected.GET("/races/:id", rc.GetRace())

	return r
}
