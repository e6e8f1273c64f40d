package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"devfolio/api/geo"
	"devfolio/api/models"
	"devfolio/api/utils"
)

// sessionCookieName carries the visitor's opaque session token. Clients
// that strip cookies fall back to a fresh token per request, which
// fragments their sessions but never blocks tracking.
const sessionCookieName = "visitor_session"

const sessionCookieMaxAge = int(365 * 24 * time.Hour / time.Second)

// SessionWriter is the session-store surface the tracker writes through.
type SessionWriter interface {
	EnsureSession(ctx context.Context, session *models.Session) error
	Touch(ctx context.Context, sessionID string, countView bool, at time.Time) error
}

// TrafficWriter is the traffic-store surface the tracker writes through.
type TrafficWriter interface {
	InsertPageView(ctx context.Context, view models.PageView) error
	InsertEvent(ctx context.Context, event models.Event) error
}

type TrackHandlers struct {
	Sessions SessionWriter
	Traffic  TrafficWriter
	Geo      geo.Resolver
}

func NewTrackHandlers(sessions SessionWriter, traffic TrafficWriter, resolver geo.Resolver) *TrackHandlers {
	return &TrackHandlers{
		Sessions: sessions,
		Traffic:  traffic,
		Geo:      resolver,
	}
}

// resolveSessionID returns the visitor's session token, preferring one the
// client presents in the body, then the session cookie, and minting a fresh
// token (and setting the cookie) otherwise.
func (h *TrackHandlers) resolveSessionID(c *gin.Context, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	if token, err := c.Cookie(sessionCookieName); err == nil && token != "" {
		return token
	}

	token := utils.GenerateSessionToken()
	c.SetCookie(sessionCookieName, token, sessionCookieMaxAge, "/", "", false, true)
	return token
}

// RecordPageView tracks one navigation. Tracking is best-effort: every
// store or lookup failure is logged and swallowed, and the response is 202
// regardless, so analytics can never degrade the visitor-facing site.
func (h *TrackHandlers) RecordPageView(c *gin.Context) {
	var req models.PageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sessionID := h.resolveSessionID(c, req.SessionID)
	userAgent := c.Request.UserAgent()
	location := h.Geo.Resolve(c.ClientIP())
	now := time.Now().UTC()
	pagePath := utils.NormalizePagePath(req.PagePath)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	session := &models.Session{
		SessionID:       sessionID,
		DeviceType:      utils.ClassifyDevice(userAgent),
		Browser:         utils.ClassifyBrowser(userAgent),
		OperatingSystem: utils.ClassifyOS(userAgent),
		Country:         location.Country,
		City:            location.City,
		Referrer:        req.Referrer,
		FirstVisitAt:    now,
		LastActivityAt:  now,
	}
	if err := h.Sessions.EnsureSession(ctx, session); err != nil {
		log.Printf("Error ensuring session %s: %v", sessionID, err)
	}
	if err := h.Sessions.Touch(ctx, sessionID, true, now); err != nil {
		log.Printf("Error touching session %s: %v", sessionID, err)
	}

	view := models.PageView{
		ViewID:          uuid.New().String(),
		SessionID:       sessionID,
		PagePath:        pagePath,
		PageTitle:       req.PageTitle,
		Referrer:        req.Referrer,
		UserAgent:       userAgent,
		DeviceType:      session.DeviceType,
		Browser:         session.Browser,
		OperatingSystem: session.OperatingSystem,
		Country:         location.Country,
		City:            location.City,
		CreatedAt:       now,
	}
	if err := h.Traffic.InsertPageView(ctx, view); err != nil {
		log.Printf("Error inserting page view for session %s: %v", sessionID, err)
	}

	c.JSON(http.StatusAccepted, gin.H{"sessionId": sessionID})
}

// RecordEvent tracks one custom interaction. Unlike page views, events do
// not materialize a session or resolve geolocation; they only refresh the
// session's activity timestamp.
func (h *TrackHandlers) RecordEvent(c *gin.Context) {
	var req models.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	eventData, err := models.EncodeEventData(req.EventType, req.EventData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := h.resolveSessionID(c, req.SessionID)
	now := time.Now().UTC()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Sessions.Touch(ctx, sessionID, false, now); err != nil {
		log.Printf("Error touching session %s: %v", sessionID, err)
	}

	event := models.Event{
		EventID:   uuid.New().String(),
		SessionID: sessionID,
		EventType: req.EventType,
		EventData: eventData,
		PagePath:  utils.NormalizePagePath(req.PagePath),
		CreatedAt: now,
	}
	if err := h.Traffic.InsertEvent(ctx, event); err != nil {
		log.Printf("Error inserting event %s for session %s: %v", req.EventType, sessionID, err)
	}

	c.JSON(http.StatusAccepted, gin.H{"sessionId": sessionID})
}
