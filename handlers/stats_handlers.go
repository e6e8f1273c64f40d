package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"devfolio/api/models"
)

// StatsProvider computes the aggregated dashboard report for a window.
type StatsProvider interface {
	ComputeStats(ctx context.Context, windowDays int) (*models.StatsReport, error)
}

type StatsHandlers struct {
	Stats StatsProvider
}

func NewStatsHandlers(provider StatsProvider) *StatsHandlers {
	return &StatsHandlers{Stats: provider}
}

// GetStats returns the dashboard report. days=0 (the default) means all
// time. A failed aggregation yields a null report with a 200 so the
// dashboard renders its empty state instead of partial numbers.
func (h *StatsHandlers) GetStats(c *gin.Context) {
	windowDays := 0
	if daysParam := c.Query("days"); daysParam != "" {
		parsed, err := strconv.Atoi(daysParam)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'days' parameter. Must be a non-negative integer."})
			return
		}
		windowDays = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	report, err := h.Stats.ComputeStats(ctx, windowDays)
	if err != nil {
		log.Printf("Error computing stats for %d-day window: %v", windowDays, err)
		c.JSON(http.StatusOK, gin.H{"stats": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": report})
}
