package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/edgegw/internal/auth/jwt"
	"github.com/vyrodovalexey/edgegw/internal/docs"
	"github.com/vyrodovalexey/edgegw/internal/gateway"
	"github.com/vyrodovalexey/edgegw/internal/gateway/server/http/middleware"
	"github.com/vyrodovalexey/edgegw/internal/observability"
)

const (
	// snapshotKey is the gin context key for the request's snapshot.
	snapshotKey = "gatewaySnapshot"

	routeDocs     = "docs"
	routeUpstream = "upstream"
)

// RouteOptions configures the public routes.
type RouteOptions struct {
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	ServiceName string
}

// RegisterGatewayRoutes installs the middleware chain and the catch-all
// handler on engine. Each request loads the current snapshot once.
// Outside production, GET requests for the documentation paths are
// served without authentication; everything else must carry a valid
// bearer token and is handed to the routing engine.
func RegisterGatewayRoutes(engine *gin.Engine, gw *gateway.Gateway, opts RouteOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine.Use(
		middleware.Logging(logger),
		middleware.Recovery(logger),
		middleware.Tracing(opts.ServiceName),
		middleware.Metrics(opts.Metrics),
	)

	engine.NoRoute(
		loadSnapshot(gw),
		serveDocs(logger),
		middleware.Auth(middleware.AuthConfig{
			Logger: logger,
			Validator: func(c *gin.Context) *jwt.Validator {
				return snapshotFrom(c).Validator
			},
		}),
		forward,
	)
}

func loadSnapshot(gw *gateway.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := gw.Snapshot()
		if snap == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"Message": "Gateway is starting"})
			return
		}
		c.Set(snapshotKey, snap)
		c.Next()
	}
}

func snapshotFrom(c *gin.Context) *gateway.Snapshot {
	if v, ok := c.Get(snapshotKey); ok {
		if snap, ok := v.(*gateway.Snapshot); ok {
			return snap
		}
	}
	return &gateway.Snapshot{}
}

// serveDocs answers documentation requests outside production and
// passes every other request on.
func serveDocs(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := snapshotFrom(c)
		if snap.Config == nil || snap.Docs == nil || snap.Config.IsProduction() {
			c.Next()
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}

		version, key, isDocs := matchDocsPath(snap.Config.Docs.PathToSwaggerGenerator, c.Request.URL.Path)
		if !isDocs {
			c.Next()
			return
		}

		c.Set(middleware.RouteKey, routeDocs)
		defer c.Abort()

		if key == "" {
			c.JSON(http.StatusOK, snap.Docs.Index())
			return
		}

		body, err := snap.Docs.Document(c.Request.Context(), key, version)
		if err != nil {
			status := http.StatusBadGateway
			message := "Document unavailable"
			if errors.Is(err, docs.ErrUnknownDocument) {
				status = http.StatusNotFound
				message = "Document not found"
			}
			logger.Warn("documentation request failed",
				zap.String("key", key),
				zap.String("version", version),
				zap.Int("status", status),
				zap.Error(err),
				zap.String("requestID", middleware.GetRequestID(c)),
			)
			c.JSON(status, gin.H{"Message": message})
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// matchDocsPath reports whether path is the docs index (empty key) or a
// {route}/{version}/{key} document path.
func matchDocsPath(route, path string) (version, key string, ok bool) {
	route = "/" + strings.Trim(route, "/")
	if route == "/" {
		return "", "", false
	}

	path = strings.TrimSuffix(path, "/")
	if strings.EqualFold(path, route) {
		return "", "", true
	}
	if len(path) <= len(route) || !strings.EqualFold(path[:len(route)], route) || path[len(route)] != '/' {
		return "", "", false
	}

	parts := strings.Split(path[len(route)+1:], "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// forward hands the request to the routing engine.
func forward(c *gin.Context) {
	c.Set(middleware.RouteKey, routeUpstream)

	handler := snapshotFrom(c).Handler
	if handler == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"Message": "No routes configured"})
		return
	}
	handler.ServeHTTP(c.Writer, c.Request)
}
