package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devfolio/api/models"
)

type fakeSessions struct {
	sessions   uint64
	bounced    uint64
	avgSeconds float64
	devices    []models.RankedStat
	perDay     map[string]uint64
	err        error

	lastSince time.Time
}

func (f *fakeSessions) CountSessions(_ context.Context, since time.Time) (uint64, error) {
	f.lastSince = since
	return f.sessions, f.err
}

func (f *fakeSessions) CountBounced(_ context.Context, since time.Time) (uint64, error) {
	return f.bounced, f.err
}

func (f *fakeSessions) AvgSessionSeconds(_ context.Context, since time.Time) (float64, error) {
	return f.avgSeconds, f.err
}

func (f *fakeSessions) DeviceBreakdown(_ context.Context, since time.Time) ([]models.RankedStat, error) {
	return f.devices, f.err
}

func (f *fakeSessions) SessionsPerDay(_ context.Context, since time.Time) (map[string]uint64, error) {
	return f.perDay, f.err
}

type fakeTraffic struct {
	views        uint64
	events       uint64
	topPages     []models.RankedStat
	topCountries []models.RankedStat
	topEvents    []models.RankedStat
	viewsPerDay  map[string]uint64
	recentViews  []models.PageView
	recentEvents []models.Event
	err          error

	lastSince      time.Time
	pageLimit      uint64
	eventLimit     uint64
	countryLimit   uint64
	recentRequests []uint64
}

func (f *fakeTraffic) CountPageViews(_ context.Context, since time.Time) (uint64, error) {
	f.lastSince = since
	return f.views, f.err
}

func (f *fakeTraffic) CountEvents(_ context.Context, since time.Time) (uint64, error) {
	return f.events, f.err
}

func (f *fakeTraffic) TopPages(_ context.Context, since time.Time, limit uint64) ([]models.RankedStat, error) {
	f.pageLimit = limit
	return f.topPages, f.err
}

func (f *fakeTraffic) TopCountries(_ context.Context, since time.Time, limit uint64) ([]models.RankedStat, error) {
	f.countryLimit = limit
	return f.topCountries, f.err
}

func (f *fakeTraffic) TopEvents(_ context.Context, since time.Time, limit uint64) ([]models.RankedStat, error) {
	f.eventLimit = limit
	return f.topEvents, f.err
}

func (f *fakeTraffic) ViewsPerDay(_ context.Context, since time.Time) (map[string]uint64, error) {
	return f.viewsPerDay, f.err
}

func (f *fakeTraffic) RecentPageViews(_ context.Context, limit uint64) ([]models.PageView, error) {
	f.recentRequests = append(f.recentRequests, limit)
	return f.recentViews, f.err
}

func (f *fakeTraffic) RecentEvents(_ context.Context, limit uint64) ([]models.Event, error) {
	return f.recentEvents, f.err
}

type fakeCache struct {
	stored map[int]*models.StatsReport
}

func (f *fakeCache) GetReport(_ context.Context, windowDays int) *models.StatsReport {
	return f.stored[windowDays]
}

func (f *fakeCache) SetReport(_ context.Context, windowDays int, report *models.StatsReport) {
	if f.stored == nil {
		f.stored = make(map[int]*models.StatsReport)
	}
	f.stored[windowDays] = report
}

func newTestAggregator(sessions *fakeSessions, traffic *fakeTraffic, now time.Time) *Aggregator {
	a := NewAggregator(sessions, traffic, nil)
	a.now = func() time.Time { return now }
	return a
}

func TestComputeStatsAllTimeWindowHasNoLowerBound(t *testing.T) {
	sessions := &fakeSessions{}
	traffic := &fakeTraffic{}
	a := newTestAggregator(sessions, traffic, time.Now())

	_, err := a.ComputeStats(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, sessions.lastSince.IsZero())
	assert.True(t, traffic.lastSince.IsZero())
}

func TestComputeStatsWindowedLowerBound(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sessions := &fakeSessions{}
	traffic := &fakeTraffic{}
	a := newTestAggregator(sessions, traffic, now)

	_, err := a.ComputeStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), sessions.lastSince)
	assert.Equal(t, now.Add(-7*24*time.Hour), traffic.lastSince)
}

func TestComputeStatsBounceRate(t *testing.T) {
	t.Run("zero sessions yields zero", func(t *testing.T) {
		a := newTestAggregator(&fakeSessions{}, &fakeTraffic{}, time.Now())

		report, err := a.ComputeStats(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, report.BounceRate)
	})

	t.Run("rounds to one decimal", func(t *testing.T) {
		sessions := &fakeSessions{sessions: 3, bounced: 1}
		a := newTestAggregator(sessions, &fakeTraffic{}, time.Now())

		report, err := a.ComputeStats(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, 33.3, report.BounceRate)
	})
}

func TestComputeStatsAvgSessionTimeFormat(t *testing.T) {
	sessions := &fakeSessions{sessions: 2, avgSeconds: 185}
	a := newTestAggregator(sessions, &fakeTraffic{}, time.Now())

	report, err := a.ComputeStats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "3m 5s", report.AvgSessionTime)
}

func TestComputeStatsBreakdownsAndLabels(t *testing.T) {
	sessions := &fakeSessions{
		sessions: 10,
		devices: []models.RankedStat{
			{Name: "desktop", Count: 7},
			{Name: "mobile", Count: 3},
		},
	}
	traffic := &fakeTraffic{
		views:  20,
		events: 8,
		topPages: []models.RankedStat{
			{Name: "/", Count: 12},
			{Name: "/projects", Count: 8},
		},
		topEvents: []models.RankedStat{
			{Name: "form_submission", Count: 6},
			{Name: "theme_toggle", Count: 2},
		},
		topCountries: []models.RankedStat{
			{Name: "Germany", Count: 15},
			{Name: "", Count: 5},
		},
	}
	a := newTestAggregator(sessions, traffic, time.Now())

	report, err := a.ComputeStats(context.Background(), 0)
	require.NoError(t, err)

	// Top-N limits are forwarded to the store queries.
	assert.Equal(t, uint64(5), traffic.pageLimit)
	assert.Equal(t, uint64(8), traffic.eventLimit)
	assert.Equal(t, uint64(5), traffic.countryLimit)

	// The root path displays as Home; page percentages are of total views.
	assert.Equal(t, models.RankedStat{Name: "Home", Count: 12, Percentage: 60}, report.TopPages[0])
	assert.Equal(t, models.RankedStat{Name: "/projects", Count: 8, Percentage: 40}, report.TopPages[1])

	// Device percentages are of unique visitors.
	assert.Equal(t, models.RankedStat{Name: "desktop", Count: 7, Percentage: 70}, report.DeviceTypes[0])

	// Event names are titleized; percentages are of total events.
	assert.Equal(t, models.RankedStat{Name: "Form Submission", Count: 6, Percentage: 75}, report.TopEvents[0])
	assert.Equal(t, models.RankedStat{Name: "Theme Toggle", Count: 2, Percentage: 25}, report.TopEvents[1])

	// Missing countries display as Unknown; percentages are of total views.
	assert.Equal(t, models.RankedStat{Name: "Germany", Count: 15, Percentage: 75}, report.TopCountries[0])
	assert.Equal(t, models.RankedStat{Name: "Unknown", Count: 5, Percentage: 25}, report.TopCountries[1])
}

func TestComputeStatsTrafficSeriesMergesAndSorts(t *testing.T) {
	sessions := &fakeSessions{
		perDay: map[string]uint64{
			"2025-06-14": 2,
			"2025-06-12": 1,
		},
	}
	traffic := &fakeTraffic{
		viewsPerDay: map[string]uint64{
			"2025-06-14": 9,
			"2025-06-13": 4,
		},
	}
	a := newTestAggregator(sessions, traffic, time.Now())

	report, err := a.ComputeStats(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, []models.TrafficPoint{
		{Date: "2025-06-12", Views: 0, Sessions: 1},
		{Date: "2025-06-13", Views: 4, Sessions: 0},
		{Date: "2025-06-14", Views: 9, Sessions: 2},
	}, report.TrafficData)
}

func TestComputeStatsRecentActivityFeed(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	traffic := &fakeTraffic{
		recentViews: []models.PageView{
			{PagePath: "/", Country: "Germany", City: "Berlin", CreatedAt: now.Add(-2 * time.Minute)},
			{PagePath: "/projects", CreatedAt: now.Add(-10 * time.Minute)},
		},
		recentEvents: []models.Event{
			{EventType: "download_click", CreatedAt: now.Add(-5 * time.Minute)},
		},
	}
	a := newTestAggregator(&fakeSessions{}, traffic, now)

	report, err := a.ComputeStats(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, report.RecentActivity, 3)

	assert.Equal(t, "Visited Home", report.RecentActivity[0].Action)
	assert.Equal(t, "Berlin, Germany", report.RecentActivity[0].Location)
	assert.Equal(t, "2 minutes ago", report.RecentActivity[0].TimeAgo)

	assert.Equal(t, "Download Click", report.RecentActivity[1].Action)
	assert.Equal(t, "Event", report.RecentActivity[1].Location)

	assert.Equal(t, "Visited /projects", report.RecentActivity[2].Action)
	assert.Equal(t, "Unknown", report.RecentActivity[2].Location)
}

func TestComputeStatsRecentActivityTruncated(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	traffic := &fakeTraffic{}
	for i := 0; i < 10; i++ {
		traffic.recentViews = append(traffic.recentViews, models.PageView{
			PagePath:  "/projects",
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
		traffic.recentEvents = append(traffic.recentEvents, models.Event{
			EventType: "theme_toggle",
			CreatedAt: now.Add(-time.Duration(i) * time.Second),
		})
	}
	a := newTestAggregator(&fakeSessions{}, traffic, now)

	report, err := a.ComputeStats(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, report.RecentActivity, 10)
	for i := 1; i < len(report.RecentActivity); i++ {
		assert.False(t, report.RecentActivity[i].Timestamp.After(report.RecentActivity[i-1].Timestamp))
	}
}

func TestComputeStatsAbortsOnReadError(t *testing.T) {
	t.Run("session read failure", func(t *testing.T) {
		sessions := &fakeSessions{err: errors.New("connection refused")}
		a := newTestAggregator(sessions, &fakeTraffic{}, time.Now())

		report, err := a.ComputeStats(context.Background(), 0)
		require.Error(t, err)
		assert.Nil(t, report)
	})

	t.Run("traffic read failure", func(t *testing.T) {
		traffic := &fakeTraffic{err: errors.New("connection refused")}
		a := newTestAggregator(&fakeSessions{}, traffic, time.Now())

		report, err := a.ComputeStats(context.Background(), 0)
		require.Error(t, err)
		assert.Nil(t, report)
	})
}

func TestComputeStatsUsesCache(t *testing.T) {
	cached := &models.StatsReport{TotalViews: 99}
	c := &fakeCache{stored: map[int]*models.StatsReport{7: cached}}
	a := NewAggregator(&fakeSessions{}, &fakeTraffic{}, c)

	report, err := a.ComputeStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Same(t, cached, report)
}

func TestComputeStatsStoresInCache(t *testing.T) {
	c := &fakeCache{}
	a := NewAggregator(&fakeSessions{sessions: 1}, &fakeTraffic{views: 2}, c)

	report, err := a.ComputeStats(context.Background(), 0)
	require.NoError(t, err)
	assert.Same(t, report, c.stored[0])
}
