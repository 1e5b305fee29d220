package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/config"
	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/metrics"
	"github.com/aqeluk/THYNKAPI/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const healthCheckTimeout = 2 * time.Second

// healthChecker is satisfied by the store and every identity cache.
type healthChecker interface {
	Health(ctx context.Context) error
}

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db healthChecker,
	identityCache healthChecker,
	h handlerSet,
	recorder core.Recorder,
) *gin.Engine {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", createHealthCheckHandler(db, identityCache))
	setupMetricsEndpoint(r, cfg)
	setupSwagger(r, cfg)
	setupAllRoutes(r, h)

	logServerStartup(cfg)

	return r
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupSwagger serves the API docs outside production
func setupSwagger(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		return
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	log.Printf("Swagger UI enabled at: %s/swagger/index.html", cfg.BaseURL)
}

// setupAllRoutes configures all application routes
func setupAllRoutes(r *gin.Engine, h handlerSet) {
	r.POST("/login", h.auth.Login)
	r.GET("/providers", h.oauth.Providers)

	// Provider keys share the first path segment with the static routes above.
	r.GET("/:provider/authorize", h.oauth.Authorize)
	r.GET("/:provider/redirect", h.oauth.Redirect)

	users := r.Group("/users")
	{
		users.POST("/registration", h.user.Register)
		users.GET("/verification", h.user.Verify)
		users.POST("/request", h.user.RequestPasswordReset)
		users.PUT("/reset", h.user.ResetPassword)
		users.GET("/me", middleware.RequireBearer(h.resolver), h.user.Me)
	}
}

// createHealthCheckHandler creates health check endpoint handler
// healthCheck godoc
//
//	@Summary		Health check
//	@Description	Check server, database and identity cache health status
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	object{status=string,database=string,cache=string}	"Service is healthy"
//	@Failure		503	{object}	object{status=string,database=string,cache=string}	"Service is unhealthy"
//	@Router			/health [get]
func createHealthCheckHandler(db, identityCache healthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		body := gin.H{
			"status":   "healthy",
			"database": "connected",
			"cache":    "connected",
		}
		if err := db.Health(ctx); err != nil {
			log.Printf("[Health] database check failed: %v", err)
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "disconnected"
		}
		// A cache outage degrades performance only; identities are still read from the database.
		if err := identityCache.Health(ctx); err != nil {
			log.Printf("[Health] identity cache check failed: %v", err)
			body["cache"] = "disconnected"
		}
		c.JSON(status, body)
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	log.Printf("Gin mode: %s", ginModeLogMessage[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("THYNKAPI identity service starting on %s", cfg.ServerAddr)
	log.Printf("Password login: POST %s/login", cfg.BaseURL)
	log.Printf("Provider list: GET %s/providers", cfg.BaseURL)
}
