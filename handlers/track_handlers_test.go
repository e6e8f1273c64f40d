package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devfolio/api/geo"
	"devfolio/api/models"
)

type touchCall struct {
	sessionID string
	countView bool
}

type fakeSessionWriter struct {
	ensured []*models.Session
	touches []touchCall
	err     error
}

func (f *fakeSessionWriter) EnsureSession(_ context.Context, session *models.Session) error {
	f.ensured = append(f.ensured, session)
	return f.err
}

func (f *fakeSessionWriter) Touch(_ context.Context, sessionID string, countView bool, _ time.Time) error {
	f.touches = append(f.touches, touchCall{sessionID: sessionID, countView: countView})
	return f.err
}

type fakeTrafficWriter struct {
	views  []models.PageView
	events []models.Event
	err    error
}

func (f *fakeTrafficWriter) InsertPageView(_ context.Context, view models.PageView) error {
	f.views = append(f.views, view)
	return f.err
}

func (f *fakeTrafficWriter) InsertEvent(_ context.Context, event models.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func newTrackRouter(sessions *fakeSessionWriter, traffic *fakeTrafficWriter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTrackHandlers(sessions, traffic, geo.NoopResolver{})
	r := gin.New()
	r.POST("/api/track/pageview", h.RecordPageView)
	r.POST("/api/track/event", h.RecordEvent)
	return r
}

func postTrack(t *testing.T, r *gin.Engine, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecordPageViewWithClientToken(t *testing.T) {
	sessions := &fakeSessionWriter{}
	traffic := &fakeTrafficWriter{}
	r := newTrackRouter(sessions, traffic)

	w := postTrack(t, r, "/api/track/pageview", models.PageViewRequest{
		SessionID: "client-token",
		PagePath:  "/projects/",
		PageTitle: "Projects",
		Referrer:  "https://example.com/",
	}, nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"sessionId": "client-token"}`, w.Body.String())

	require.Len(t, sessions.ensured, 1)
	ensured := sessions.ensured[0]
	assert.Equal(t, "client-token", ensured.SessionID)
	assert.Equal(t, models.DeviceDesktop, ensured.DeviceType)
	assert.Equal(t, models.BrowserChrome, ensured.Browser)
	assert.Equal(t, models.OSWindows, ensured.OperatingSystem)
	assert.Equal(t, "https://example.com/", ensured.Referrer)

	require.Len(t, sessions.touches, 1)
	assert.Equal(t, touchCall{sessionID: "client-token", countView: true}, sessions.touches[0])

	require.Len(t, traffic.views, 1)
	view := traffic.views[0]
	assert.Equal(t, "/projects", view.PagePath)
	assert.Equal(t, "Projects", view.PageTitle)
	assert.NotEmpty(t, view.ViewID)
}

func TestRecordPageViewMintsTokenAndSetsCookie(t *testing.T) {
	sessions := &fakeSessionWriter{}
	traffic := &fakeTrafficWriter{}
	r := newTrackRouter(sessions, traffic)

	w := postTrack(t, r, "/api/track/pageview", models.PageViewRequest{PagePath: "/"}, nil)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, resp.SessionID, sessionCookie.Value)
}

func TestRecordPageViewReusesCookieToken(t *testing.T) {
	sessions := &fakeSessionWriter{}
	traffic := &fakeTrafficWriter{}
	r := newTrackRouter(sessions, traffic)

	w := postTrack(t, r, "/api/track/pageview", models.PageViewRequest{PagePath: "/#contact"}, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-token"})
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"sessionId": "cookie-token"}`, w.Body.String())
	require.Len(t, traffic.views, 1)
	assert.Equal(t, "/#contact", traffic.views[0].PagePath)
}

func TestRecordPageViewMissingPath(t *testing.T) {
	r := newTrackRouter(&fakeSessionWriter{}, &fakeTrafficWriter{})

	w := postTrack(t, r, "/api/track/pageview", map[string]string{"pageTitle": "Nowhere"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordPageViewSwallowsStoreErrors(t *testing.T) {
	sessions := &fakeSessionWriter{err: assert.AnError}
	traffic := &fakeTrafficWriter{err: assert.AnError}
	r := newTrackRouter(sessions, traffic)

	w := postTrack(t, r, "/api/track/pageview", models.PageViewRequest{PagePath: "/"}, nil)

	// Tracking failures never surface to the visitor.
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRecordEvent(t *testing.T) {
	sessions := &fakeSessionWriter{}
	traffic := &fakeTrafficWriter{}
	r := newTrackRouter(sessions, traffic)

	w := postTrack(t, r, "/api/track/event", models.EventRequest{
		SessionID: "client-token",
		EventType: "theme_toggle",
		PagePath:  "/",
		EventData: map[string]any{"theme": "dark"},
	}, nil)

	assert.Equal(t, http.StatusAccepted, w.Code)

	// Events refresh activity without counting a view or creating a session.
	assert.Empty(t, sessions.ensured)
	require.Len(t, sessions.touches, 1)
	assert.Equal(t, touchCall{sessionID: "client-token", countView: false}, sessions.touches[0])

	require.Len(t, traffic.events, 1)
	event := traffic.events[0]
	assert.Equal(t, "theme_toggle", event.EventType)
	assert.JSONEq(t, `{"theme": "dark"}`, string(event.EventData))
	assert.NotEmpty(t, event.EventID)
}

func TestRecordEventRejectsUndeclaredAttributes(t *testing.T) {
	traffic := &fakeTrafficWriter{}
	r := newTrackRouter(&fakeSessionWriter{}, traffic)

	w := postTrack(t, r, "/api/track/event", models.EventRequest{
		EventType: "theme_toggle",
		EventData: map[string]any{"theme": "dark", "injected": "x"},
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, traffic.events)
}

func TestRecordEventMissingType(t *testing.T) {
	r := newTrackRouter(&fakeSessionWriter{}, &fakeTrafficWriter{})

	w := postTrack(t, r, "/api/track/event", map[string]string{"pagePath": "/"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
