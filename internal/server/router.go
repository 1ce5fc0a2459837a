package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wheelcity-backend/internal/analyses"
	"wheelcity-backend/internal/config"
	"wheelcity-backend/internal/health"
	"wheelcity-backend/internal/images"
	"wheelcity-backend/internal/metrics"
	"wheelcity-backend/internal/places"
	"wheelcity-backend/internal/server/middleware"
	"wheelcity-backend/internal/server/respond"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config          config.Config
	ImagesHandler   *images.Handler
	AnalysesHandler *analyses.Handler
	PlacesHandler   *places.Handler
	Health          *health.Service
}

// NewRouter constructs the gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	internalOnly := middleware.InternalKey(deps.Config.InternalAPIKey)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Check(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	deps.ImagesHandler.RegisterRoutes(api, internalOnly)
	deps.AnalysesHandler.RegisterRoutes(api)
	deps.PlacesHandler.RegisterRoutes(api, internalOnly)

	r.GET("/metrics", metrics.Handler())

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
