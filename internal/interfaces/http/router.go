// Package http wires the gin engine of the autofragment API server.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/autofragment/internal/interfaces/http/handlers"
	"github.com/turtacn/autofragment/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	FragmentHandler *handlers.FragmentHandler
	ResultHandler   *handlers.ResultHandler
	HealthHandler   *handlers.HealthHandler

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.AppMetrics
	Logging          *middleware.LoggingConfig

	// MaxBodySize caps request bodies; zero disables the cap.
	MaxBodySize int64
	// Mode is the gin mode: "debug", "release" or "test".
	Mode string
}

// NewRouter constructs the gin engine serving the API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.Logging != nil {
		logCfg = *cfg.Logging
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware ---
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, logCfg))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	api.Use(middleware.BodyLimit(cfg.MaxBodySize))
	registerFragmentRoutes(api, cfg.FragmentHandler)
	registerResultRoutes(api, cfg.ResultHandler)

	return r
}

// registerFragmentRoutes mounts the decomposition endpoints under /fragments.
func registerFragmentRoutes(r *gin.RouterGroup, h *handlers.FragmentHandler) {
	if h == nil {
		return
	}
	fr := r.Group("/fragments")
	fr.POST("/decompose", h.Decompose)
	fr.POST("/count", h.Count)
}

// registerResultRoutes mounts the stored-result endpoints under /results.
func registerResultRoutes(r *gin.RouterGroup, h *handlers.ResultHandler) {
	if h == nil {
		return
	}
	rr := r.Group("/results")
	rr.GET("", h.List)
	rr.GET("/:runID", h.Get)
	rr.GET("/:runID/matrix", h.Matrix)
	rr.GET("/:runID/download", h.Download)
}

//Personal.AI order the ending
