package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/core/distribution"
	"github.com/jakechorley/oncall-roster/pkg/db"
	"github.com/jakechorley/oncall-roster/pkg/rosterfile"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Cfg    *config.Config
	Logger *zap.Logger

	// Store persists runs requested with persist=true; nil disables persistence
	Store db.Database

	// Registry backs /metrics and the engine collector shared by every request
	Registry *prometheus.Registry
	Metrics  *distribution.PrometheusCollector
}

// New creates a handler with its own metrics registry
func New(cfg *config.Config, logger *zap.Logger, store db.Database) *Handler {
	reg := prometheus.NewRegistry()
	return &Handler{
		Cfg:      cfg,
		Logger:   logger,
		Store:    store,
		Registry: reg,
		Metrics:  distribution.NewPrometheus(reg, "roster"),
	}
}

// Register adds every route to the engine
func (h *Handler) Register(r *gin.Engine) {
	r.Use(h.RequestLogger())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "On-call roster distribution service",
		})
	})
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.POST("/distribute", h.Distribute)
		api.POST("/critical-periods", h.CriticalPeriods)
		api.POST("/combinations", h.Combinations)
	}
}

// RequestLogger logs every request once it completes
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.Logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// Health reports whether the service is up and whether runs can be stored
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"storage": h.Store != nil,
	})
}

// bindRoster decodes and validates the JSON roster document in the request body,
// answering 400 itself when it cannot
func bindRoster(c *gin.Context) (*rosterfile.Document, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	doc, err := rosterfile.ParseJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return doc, true
}

// querySeed reads the optional seed query parameter, answering 400 itself when malformed
func querySeed(c *gin.Context) (*uint64, bool) {
	raw, ok := c.GetQuery("seed")
	if !ok {
		return nil, true
	}
	seed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid seed %q", raw)})
		return nil, false
	}
	return &seed, true
}
