// Package stats computes the dashboard's aggregated view of raw tracking
// data. A report is assembled from independent reads of the session and
// traffic stores; if any read fails the whole computation aborts and the
// dashboard renders its empty state instead of partial numbers.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"devfolio/api/models"
	"devfolio/api/utils"
)

const (
	topPagesLimit     = 5
	topEventsLimit    = 8
	topCountriesLimit = 5
	recentFeedLimit   = 10

	homePageLabel = "Home"
	unknownLabel  = "Unknown"
	eventMarker   = "Event"
)

// SessionSource is the session-store surface the aggregator reads.
type SessionSource interface {
	CountSessions(ctx context.Context, since time.Time) (uint64, error)
	CountBounced(ctx context.Context, since time.Time) (uint64, error)
	AvgSessionSeconds(ctx context.Context, since time.Time) (float64, error)
	DeviceBreakdown(ctx context.Context, since time.Time) ([]models.RankedStat, error)
	SessionsPerDay(ctx context.Context, since time.Time) (map[string]uint64, error)
}

// TrafficSource is the traffic-store surface the aggregator reads.
type TrafficSource interface {
	CountPageViews(ctx context.Context, since time.Time) (uint64, error)
	CountEvents(ctx context.Context, since time.Time) (uint64, error)
	TopPages(ctx context.Context, since time.Time, limit uint64) ([]models.RankedStat, error)
	TopCountries(ctx context.Context, since time.Time, limit uint64) ([]models.RankedStat, error)
	TopEvents(ctx context.Context, since time.Time, limit uint64) ([]models.RankedStat, error)
	ViewsPerDay(ctx context.Context, since time.Time) (map[string]uint64, error)
	RecentPageViews(ctx context.Context, limit uint64) ([]models.PageView, error)
	RecentEvents(ctx context.Context, limit uint64) ([]models.Event, error)
}

// ReportCache holds computed reports for a short TTL. Implementations treat
// every failure as a miss.
type ReportCache interface {
	GetReport(ctx context.Context, windowDays int) *models.StatsReport
	SetReport(ctx context.Context, windowDays int, report *models.StatsReport)
}

type Aggregator struct {
	sessions SessionSource
	traffic  TrafficSource
	cache    ReportCache
	now      func() time.Time
}

func NewAggregator(sessions SessionSource, traffic TrafficSource, cache ReportCache) *Aggregator {
	return &Aggregator{
		sessions: sessions,
		traffic:  traffic,
		cache:    cache,
		now:      time.Now,
	}
}

// windowStart converts the dashboard's day window into a created_at lower
// bound. Zero days means all time and yields the zero Time, which the
// stores treat as no bound.
func (a *Aggregator) windowStart(windowDays int) time.Time {
	if windowDays <= 0 {
		return time.Time{}
	}
	return a.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// percentage of count against total, one decimal. Zero total yields zero.
func percentage(count, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(count) / float64(total) * 100)
}

// ComputeStats assembles the full dashboard report for the window.
func (a *Aggregator) ComputeStats(ctx context.Context, windowDays int) (*models.StatsReport, error) {
	if a.cache != nil {
		if cached := a.cache.GetReport(ctx, windowDays); cached != nil {
			return cached, nil
		}
	}

	since := a.windowStart(windowDays)

	totalViews, err := a.traffic.CountPageViews(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("total views: %w", err)
	}
	uniqueVisitors, err := a.sessions.CountSessions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("unique visitors: %w", err)
	}
	bounced, err := a.sessions.CountBounced(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("bounced sessions: %w", err)
	}
	avgSeconds, err := a.sessions.AvgSessionSeconds(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("average session time: %w", err)
	}
	totalEvents, err := a.traffic.CountEvents(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("total events: %w", err)
	}

	topPages, err := a.traffic.TopPages(ctx, since, topPagesLimit)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}
	for i := range topPages {
		topPages[i].Name = pageLabel(topPages[i].Name)
		topPages[i].Percentage = percentage(topPages[i].Count, totalViews)
	}

	deviceTypes, err := a.sessions.DeviceBreakdown(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("device breakdown: %w", err)
	}
	for i := range deviceTypes {
		deviceTypes[i].Percentage = percentage(deviceTypes[i].Count, uniqueVisitors)
	}

	topEvents, err := a.traffic.TopEvents(ctx, since, topEventsLimit)
	if err != nil {
		return nil, fmt.Errorf("top events: %w", err)
	}
	for i := range topEvents {
		topEvents[i].Name = utils.TitleizeKey(topEvents[i].Name)
		topEvents[i].Percentage = percentage(topEvents[i].Count, totalEvents)
	}

	topCountries, err := a.traffic.TopCountries(ctx, since, topCountriesLimit)
	if err != nil {
		return nil, fmt.Errorf("top countries: %w", err)
	}
	for i := range topCountries {
		if topCountries[i].Name == "" {
			topCountries[i].Name = unknownLabel
		}
		topCountries[i].Percentage = percentage(topCountries[i].Count, totalViews)
	}

	trafficData, err := a.trafficSeries(ctx, since)
	if err != nil {
		return nil, err
	}

	recentActivity, err := a.recentActivity(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.StatsReport{
		TotalViews:     totalViews,
		UniqueVisitors: uniqueVisitors,
		BounceRate:     percentage(bounced, uniqueVisitors),
		AvgSessionTime: utils.FormatSessionDuration(avgSeconds),
		TopPages:       topPages,
		DeviceTypes:    deviceTypes,
		TopEvents:      topEvents,
		TopCountries:   topCountries,
		TrafficData:    trafficData,
		RecentActivity: recentActivity,
	}

	if a.cache != nil {
		a.cache.SetReport(ctx, windowDays, report)
	}
	return report, nil
}

// trafficSeries pairs each calendar date's page views with the sessions
// that started on that date, ascending by date.
func (a *Aggregator) trafficSeries(ctx context.Context, since time.Time) ([]models.TrafficPoint, error) {
	viewsByDay, err := a.traffic.ViewsPerDay(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("views per day: %w", err)
	}
	sessionsByDay, err := a.sessions.SessionsPerDay(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("sessions per day: %w", err)
	}

	dates := make(map[string]struct{}, len(viewsByDay))
	for d := range viewsByDay {
		dates[d] = struct{}{}
	}
	for d := range sessionsByDay {
		dates[d] = struct{}{}
	}

	series := make([]models.TrafficPoint, 0, len(dates))
	for d := range dates {
		series = append(series, models.TrafficPoint{
			Date:     d,
			Views:    viewsByDay[d],
			Sessions: sessionsByDay[d],
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// recentActivity merges the newest page views and events into one feed,
// newest first, capped at recentFeedLimit.
func (a *Aggregator) recentActivity(ctx context.Context) ([]models.ActivityItem, error) {
	views, err := a.traffic.RecentPageViews(ctx, recentFeedLimit)
	if err != nil {
		return nil, fmt.Errorf("recent page views: %w", err)
	}
	events, err := a.traffic.RecentEvents(ctx, recentFeedLimit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}

	now := a.now()
	feed := make([]models.ActivityItem, 0, len(views)+len(events))
	for _, v := range views {
		feed = append(feed, models.ActivityItem{
			Action:    "Visited " + pageLabel(v.PagePath),
			Location:  viewLocation(v),
			TimeAgo:   utils.TimeAgo(v.CreatedAt, now),
			Timestamp: v.CreatedAt,
		})
	}
	for _, e := range events {
		feed = append(feed, models.ActivityItem{
			Action:    utils.TitleizeKey(e.EventType),
			Location:  eventMarker,
			TimeAgo:   utils.TimeAgo(e.CreatedAt, now),
			Timestamp: e.CreatedAt,
		})
	}

	sort.Slice(feed, func(i, j int) bool { return feed[i].Timestamp.After(feed[j].Timestamp) })
	if len(feed) > recentFeedLimit {
		feed = feed[:recentFeedLimit]
	}
	return feed, nil
}

func pageLabel(path string) string {
	if path == "/" || path == "" {
		return homePageLabel
	}
	return path
}

func viewLocation(v models.PageView) string {
	switch {
	case v.City != "" && v.Country != "":
		return v.City + ", " + v.Country
	case v.Country != "":
		return v.Country
	default:
		return unknownLabel
	}
}
