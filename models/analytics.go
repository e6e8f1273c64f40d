package models

import (
	"encoding/json"
	"time"
)

// DeviceType is the device class inferred from a User-Agent string.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
)

// Browser is the browser family inferred from a User-Agent string.
type Browser string

const (
	BrowserChrome  Browser = "Chrome"
	BrowserFirefox Browser = "Firefox"
	BrowserSafari  Browser = "Safari"
	BrowserEdge    Browser = "Edge"
	BrowserOther   Browser = "Other"
)

// OperatingSystem is the OS family inferred from a User-Agent string.
type OperatingSystem string

const (
	OSWindows OperatingSystem = "Windows"
	OSMacOS   OperatingSystem = "macOS"
	OSLinux   OperatingSystem = "Linux"
	OSAndroid OperatingSystem = "Android"
	OSIOS     OperatingSystem = "iOS"
	OSOther   OperatingSystem = "Other"
)

// Session is one browser's continuous visit sequence. Exactly one row exists
// per session token; last_activity_at and page_views_count are the only
// fields mutated after creation.
type Session struct {
	ID              int64           `json:"id"`
	SessionID       string          `json:"sessionId"`
	DeviceType      DeviceType      `json:"deviceType"`
	Browser         Browser         `json:"browser"`
	OperatingSystem OperatingSystem `json:"operatingSystem"`
	Country         string          `json:"country,omitempty"`
	City            string          `json:"city,omitempty"`
	Referrer        string          `json:"referrer,omitempty"`
	FirstVisitAt    time.Time       `json:"firstVisitAt"`
	LastActivityAt  time.Time       `json:"lastActivityAt"`
	PageViewsCount  int64           `json:"pageViewsCount"`
}

// PageView is one tracked navigation. Immutable once written.
type PageView struct {
	ViewID          string          `json:"viewId"`
	SessionID       string          `json:"sessionId"`
	PagePath        string          `json:"pagePath"`
	PageTitle       string          `json:"pageTitle"`
	Referrer        string          `json:"referrer"`
	UserAgent       string          `json:"userAgent"`
	DeviceType      DeviceType      `json:"deviceType"`
	Browser         Browser         `json:"browser"`
	OperatingSystem OperatingSystem `json:"operatingSystem"`
	Country         string          `json:"country,omitempty"`
	City            string          `json:"city,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Event is one discrete tracked interaction. Immutable once written.
type Event struct {
	EventID   string          `json:"eventId"`
	SessionID string          `json:"sessionId"`
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
	PagePath  string          `json:"pagePath"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PageViewRequest is the tracking payload for a navigation.
type PageViewRequest struct {
	SessionID string `json:"sessionId"`
	PagePath  string `json:"pagePath" binding:"required"`
	PageTitle string `json:"pageTitle"`
	Referrer  string `json:"referrer"`
}

// EventRequest is the tracking payload for a custom interaction.
type EventRequest struct {
	SessionID string         `json:"sessionId"`
	EventType string         `json:"eventType" binding:"required"`
	PagePath  string         `json:"pagePath"`
	EventData map[string]any `json:"eventData,omitempty"`
}

// RankedStat is one group-count-percentage entry of a breakdown.
type RankedStat struct {
	Name       string  `json:"name"`
	Count      uint64  `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TrafficPoint pairs one calendar date's page views with the sessions that
// started on that date.
type TrafficPoint struct {
	Date     string `json:"date"`
	Views    uint64 `json:"views"`
	Sessions uint64 `json:"sessions"`
}

// ActivityItem is one entry of the recent-activity feed.
type ActivityItem struct {
	Action    string    `json:"action"`
	Location  string    `json:"location"`
	TimeAgo   string    `json:"timeAgo"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsReport is the aggregated dashboard view over one window.
type StatsReport struct {
	TotalViews     uint64         `json:"totalViews"`
	UniqueVisitors uint64         `json:"uniqueVisitors"`
	BounceRate     float64        `json:"bounceRate"`
	AvgSessionTime string         `json:"avgSessionTime"`
	TopPages       []RankedStat   `json:"topPages"`
	DeviceTypes    []RankedStat   `json:"deviceTypes"`
	TopEvents      []RankedStat   `json:"topEvents"`
	TopCountries   []RankedStat   `json:"topCountries"`
	TrafficData    []TrafficPoint `json:"trafficData"`
	RecentActivity []ActivityItem `json:"recentActivity"`
}
