package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionClearer removes all session rows and reports how many were deleted.
type SessionClearer interface {
	DeleteAll(ctx context.Context) (int64, error)
}

// TrafficClearer removes all page-view and event rows and reports the
// per-table counts.
type TrafficClearer interface {
	TruncateAll(ctx context.Context) (views uint64, events uint64, err error)
}

// CacheInvalidator drops cached stats reports after a clear. May be nil.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

type AdminHandlers struct {
	Sessions SessionClearer
	Traffic  TrafficClearer
	Cache    CacheInvalidator
}

func NewAdminHandlers(sessions SessionClearer, traffic TrafficClearer, cache CacheInvalidator) *AdminHandlers {
	return &AdminHandlers{
		Sessions: sessions,
		Traffic:  traffic,
		Cache:    cache,
	}
}

type clearRequest struct {
	Confirm bool `json:"confirm"`
}

// ClearAnalytics deletes every session, page view, and event. The delete is
// irreversible, so the caller must send {"confirm": true}; clearing
// already-empty tables succeeds with zero counts.
func (h *AdminHandlers) ClearAnalytics(c *gin.Context) {
	var req clearRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Clearing analytics data requires explicit confirmation"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	views, events, err := h.Traffic.TruncateAll(ctx)
	if err != nil {
		log.Printf("Error clearing traffic data: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to clear analytics data"})
		return
	}

	sessions, err := h.Sessions.DeleteAll(ctx)
	if err != nil {
		log.Printf("Error clearing sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to clear analytics data"})
		return
	}

	if h.Cache != nil {
		h.Cache.Invalidate(ctx)
	}

	log.Printf("Analytics data cleared: %d sessions, %d page views, %d events", sessions, views, events)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All analytics data cleared",
		"cleared": gin.H{
			"sessions":  sessions,
			"pageViews": views,
			"events":    events,
		},
	})
}
