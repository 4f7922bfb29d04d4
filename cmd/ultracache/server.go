package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comuniza/ultracache/pkg/cache"
	"github.com/comuniza/ultracache/pkg/observability"
)

// requestIDHeader is the header carrying the per-request correlation ID.
const requestIDHeader = "X-Request-ID"

// newOpsServer builds the operational HTTP server: health, stats and
// Prometheus metrics. It is not a data-plane surface; collaborating
// services embed the cache as a library and only operators talk to this
// endpoint.
func newOpsServer(addr string, svc *cache.Service, logger observability.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(requestLogMiddleware(logger))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cache.GetCacheMetrics().MustRegister(registry)
	cache.GetCacheMetrics().Init()

	engine.GET("/healthz", func(c *gin.Context) {
		stats := svc.Stats()
		status := http.StatusOK
		if !stats.Tier2Available {
			// Degraded but serving: Tier 1 still answers.
			c.JSON(status, gin.H{"status": "degraded", "tier2": "unavailable"})
			return
		}
		c.JSON(status, gin.H{"status": "ok"})
	})

	engine.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Stats())
	})

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// requestIDMiddleware assigns a request ID when the client did not send one
// and echoes it back on the response.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// requestLogMiddleware logs completed requests at debug level.
func requestLogMiddleware(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("ops request",
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.Int("status", c.Writer.Status()),
			observability.String("requestID", c.GetString("requestID")),
			observability.Duration("duration", time.Since(start)))
	}
}
