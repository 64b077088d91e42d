package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/middleware"
	"github.com/medrec/clinic-api/pkg/logger"
)

// Handler is anything that can hang routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit rate.Limit
	RateBurst int
}

type Router struct {
	engine  *gin.Engine
	metrics *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func initRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
	}
}

// New wires middleware and routes. authH goes behind Attach only, so
// logout stays idempotent for anonymous callers; every entity handler
// goes behind RequireAuth.
func New(log *logger.Logger, auth *middleware.AuthMiddleware, cfg Config,
	authH Handler, entityHandlers ...Handler) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	m := initRouterMetrics()
	engine.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		observe(m),
	)
	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	engine.GET("/health", handler.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")

	authGroup := api.Group("")
	authGroup.Use(auth.Attach())
	authH.RegisterRoutes(authGroup)

	protected := api.Group("")
	protected.Use(auth.RequireAuth())
	for _, h := range entityHandlers {
		h.RegisterRoutes(protected)
	}

	return &Router{engine: engine, metrics: m}
}

func observe(m *routerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
