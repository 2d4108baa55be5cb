package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/capacitylab/fleet-advisor/internal/lifecycle"
	"github.com/capacitylab/fleet-advisor/internal/orchestrator"
	"github.com/capacitylab/fleet-advisor/pkg/config"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// Advisor is the pipeline surface the HTTP layer reads from and triggers.
// Implemented by the orchestrator.
type Advisor interface {
	RecentSamples(n int) []models.MetricSample
	LatestSample() (models.MetricSample, bool)
	Summary(n int) models.SampleSummary
	Forecast() ([]float64, []bool, models.Recommendation, error)
	Snapshot(ctx context.Context) models.StateSnapshot
	History(limit int) []models.ScalingEvent
	RunCycle(ctx context.Context) (*models.ScalingDecision, *models.ExecutionResult, error)
	Rollback(ctx context.Context) (*models.ExecutionResult, error)
	Policy() config.Policy
	ModelTrained() bool
}

type AdvisorHandler struct {
	advisor Advisor
	config  *config.APIConfig
}

func NewAdvisorHandler(advisor Advisor, cfg *config.APIConfig) *AdvisorHandler {
	return &AdvisorHandler{advisor: advisor, config: cfg}
}

func (h *AdvisorHandler) defaultLimit() int {
	if h.config != nil && h.config.DefaultLimit > 0 {
		return h.config.DefaultLimit
	}
	return 100
}

func (h *AdvisorHandler) maxLimit() int {
	if h.config != nil && h.config.MaxLimit > 0 {
		return h.config.MaxLimit
	}
	return 1000
}

func (h *AdvisorHandler) parseLimit(c *gin.Context) int {
	limit := h.defaultLimit()
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > h.maxLimit() {
		limit = h.maxLimit()
	}
	return limit
}

func (h *AdvisorHandler) GetRecentSamples(c *gin.Context) {
	limit := h.parseLimit(c)
	samples := h.advisor.RecentSamples(limit)

	c.JSON(http.StatusOK, gin.H{
		"data":  samples,
		"count": len(samples),
	})
}

func (h *AdvisorHandler) GetLatestSample(c *gin.Context) {
	sample, ok := h.advisor.LatestSample()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no samples collected yet"})
		return
	}
	c.JSON(http.StatusOK, sample)
}

func (h *AdvisorHandler) GetSummary(c *gin.Context) {
	window := 50
	if raw := c.Query("window"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			window = v
		}
	}
	c.JSON(http.StatusOK, h.advisor.Summary(window))
}

func (h *AdvisorHandler) GetForecast(c *gin.Context) {
	predictions, anomalies, rec, err := h.advisor.Forecast()
	if err != nil {
		if errors.Is(err, orchestrator.ErrInsufficientSamples) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate forecast"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions":    predictions,
		"anomalies":      anomalies,
		"recommendation": rec,
		"model_trained":  h.advisor.ModelTrained(),
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *AdvisorHandler) GetScalingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.advisor.Snapshot(c.Request.Context()))
}

func (h *AdvisorHandler) GetScalingEvents(c *gin.Context) {
	limit := h.parseLimit(c)
	events := h.advisor.History(limit)

	c.JSON(http.StatusOK, gin.H{
		"data":  events,
		"count": len(events),
	})
}

// Evaluate triggers one full decision cycle on demand.
func (h *AdvisorHandler) Evaluate(c *gin.Context) {
	decision, result, err := h.advisor.RunCycle(c.Request.Context())
	if err != nil {
		if errors.Is(err, orchestrator.ErrInsufficientSamples) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		return
	}

	resp := gin.H{"decision": decision}
	if result != nil {
		resp["execution"] = result
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdvisorHandler) Rollback(c *gin.Context) {
	result, err := h.advisor.Rollback(c.Request.Context())
	if err != nil {
		if errors.Is(err, lifecycle.ErrNoEventsToRollback) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rollback failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdvisorHandler) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.advisor.Policy())
}
