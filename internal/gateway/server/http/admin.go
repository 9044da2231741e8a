package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/edgegw/internal/gateway"
	"github.com/vyrodovalexey/edgegw/internal/gateway/server/http/middleware"
	"github.com/vyrodovalexey/edgegw/internal/observability"
)

// AdminOptions configures the admin routes.
type AdminOptions struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Levels  *observability.LevelSwitch
	Gateway *gateway.Gateway
}

// RegisterAdminRoutes installs /metrics, /loglevel and /health.
//
// /loglevel answers GET with the current level and accepts PUT with
// {"level":"debug"}.
func RegisterAdminRoutes(engine *gin.Engine, opts AdminOptions) {
	engine.Use(middleware.Recovery(opts.Logger))

	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	if opts.Levels != nil {
		levels := gin.WrapH(opts.Levels.Handler())
		engine.GET("/loglevel", levels)
		engine.PUT("/loglevel", levels)
	}

	engine.GET("/health", func(c *gin.Context) {
		var snap *gateway.Snapshot
		if opts.Gateway != nil {
			snap = opts.Gateway.Snapshot()
		}
		if snap == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"generation":  snap.Generation,
			"loadedAt":    snap.LoadedAt,
			"environment": snap.Config.Environment,
		})
	})
}
