package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/services"
)

// Distribute runs the engine over the roster in the body. Runs are dry unless
// persist=true is passed and a store is configured.
func (h *Handler) Distribute(c *gin.Context) {
	seed, ok := querySeed(c)
	if !ok {
		return
	}
	persist, _ := strconv.ParseBool(c.DefaultQuery("persist", "false"))
	reset, _ := strconv.ParseBool(c.DefaultQuery("reset", "false"))
	if persist && h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no database configured"})
		return
	}

	doc, ok := bindRoster(c)
	if !ok {
		return
	}

	var store services.DistributeStore
	if persist {
		store = h.Store
	}

	result, err := services.DistributeRoster(c.Request.Context(), store, nil, h.Cfg, h.Logger, doc, services.DistributeOptions{
		Seed:    seed,
		DryRun:  !persist,
		Reset:   reset,
		Metrics: h.Metrics,
	})
	if err != nil {
		h.Logger.Warn("Distribution failed", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newDistributionResponse(result))
}

// CriticalPeriods lists the critical periods of the roster in the body
func (h *Handler) CriticalPeriods(c *gin.Context) {
	seed, ok := querySeed(c)
	if !ok {
		return
	}
	doc, ok := bindRoster(c)
	if !ok {
		return
	}

	result, err := services.CriticalPeriods(c.Request.Context(), nil, h.Cfg, h.Logger, doc, seed)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newCriticalPeriodsResponse(result))
}

// Combinations reports combination feasibility for the roster in the body
func (h *Handler) Combinations(c *gin.Context) {
	doc, ok := bindRoster(c)
	if !ok {
		return
	}

	report, err := services.AnalyzeCombinations(c.Request.Context(), nil, h.Cfg, h.Logger, doc)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newCombinationsResponse(report))
}
