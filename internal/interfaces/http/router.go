package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-MMP/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-MMP/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Mode is the gin mode: debug, release or test.
	Mode string

	// Handlers
	RunHandler    *handlers.RunHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	Logging LoggingSettings

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.MMPMetrics
	MetricsPath      string
}

// LoggingSettings toggles and tunes request logging.
type LoggingSettings struct {
	Disabled bool
	middleware.LoggingConfig
}

// NewRouter constructs the complete HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()

	// --- Global middleware (applied to every request) ---
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if !cfg.Logging.Disabled {
		lc := cfg.Logging.LoggingConfig
		if lc.SkipPaths == nil {
			lc = middleware.DefaultLoggingConfig()
		}
		r.Use(middleware.RequestLogging(cfg.Logger, lc))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}

	// --- Metrics ---
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	if cfg.RunHandler != nil {
		cfg.RunHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Code: "NOT_FOUND", Message: "route not found"})
	})
	return r
}

//Personal.AI order the ending
