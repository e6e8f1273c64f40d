package store

import (
	"context"
	"fmt"
	"time"

	"devfolio/api/database"
	"devfolio/api/models"
)

// TrafficStore persists page views and custom events in ClickHouse. Both
// tables are append-only; rows are immutable once written and removed only
// by the operator's bulk clear.
type TrafficStore struct {
	DB *database.ClickHouseClient
}

func NewTrafficStore(chClient *database.ClickHouseClient) *TrafficStore {
	return &TrafficStore{DB: chClient}
}

func (s *TrafficStore) InsertPageView(ctx context.Context, view models.PageView) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO analytics_page_views (
			view_id, session_id, page_path, page_title, referrer, user_agent,
			device_type, browser, operating_system, country, city, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page view insert: %w", err)
	}

	err = batch.Append(
		view.ViewID,
		view.SessionID,
		view.PagePath,
		view.PageTitle,
		view.Referrer,
		view.UserAgent,
		string(view.DeviceType),
		string(view.Browser),
		string(view.OperatingSystem),
		view.Country,
		view.City,
		view.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append page view: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert page view: %w", err)
	}
	return nil
}

func (s *TrafficStore) InsertEvent(ctx context.Context, event models.Event) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO analytics_events (
			event_id, session_id, event_type, event_data, page_path, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}

	err = batch.Append(
		event.EventID,
		event.SessionID,
		event.EventType,
		string(event.EventData),
		event.PagePath,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// windowClause renders the optional lower bound on created_at. A zero since
// means all time.
func windowClause(since time.Time) (string, []any) {
	if since.IsZero() {
		return "", nil
	}
	return " WHERE created_at >= ?", []any{since}
}

func (s *TrafficStore) countRows(ctx context.Context, table string, since time.Time) (uint64, error) {
	clause, args := windowClause(since)
	var count uint64
	err := s.DB.Conn.QueryRow(ctx, "SELECT count() FROM "+table+clause, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

func (s *TrafficStore) CountPageViews(ctx context.Context, since time.Time) (uint64, error) {
	return s.countRows(ctx, "analytics_page_views", since)
}

func (s *TrafficStore) CountEvents(ctx context.Context, since time.Time) (uint64, error) {
	return s.countRows(ctx, "analytics_events", since)
}

func (s *TrafficStore) topN(ctx context.Context, column, table string, since time.Time, limit uint64) ([]models.RankedStat, error) {
	clause, args := windowClause(since)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s, count() AS total
		FROM %s%s
		GROUP BY %s
		ORDER BY total DESC
		LIMIT ?
	`, column, table, clause, column)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top %s: %w", column, err)
	}
	defer rows.Close()

	var results []models.RankedStat
	for rows.Next() {
		var stat models.RankedStat
		if err := rows.Scan(&stat.Name, &stat.Count); err != nil {
			return nil, fmt.Errorf("scanning top %s row: %w", column, err)
		}
		results = append(results, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top %s rows: %w", column, err)
	}
	return results, nil
}

// TopPages returns page-view counts grouped by path, descending.
func (s *TrafficStore) TopPages(ctx context.Context, since time.Time, limit uint64) ([]models.RankedStat, error) {
	return s.topN(ctx, "page_path", "analytics_page_views", since, limit)
}

// TopCountries returns page-view counts grouped by country, descending.
// Empty countries (failed or local lookups) come back as empty names; the
// aggregator relabels them.
func (s *TrafficStore) TopCountries(ctx context.Context, since time.Time, limit uint64) ([]models.RankedStat, error) {
	return s.topN(ctx, "country", "analytics_page_views", since, limit)
}

// TopEvents returns event counts grouped by event type, descending.
func (s *TrafficStore) TopEvents(ctx context.Context, since time.Time, limit uint64) ([]models.RankedStat, error) {
	return s.topN(ctx, "event_type", "analytics_events", since, limit)
}

// ViewsPerDay returns page-view counts keyed by calendar date.
func (s *TrafficStore) ViewsPerDay(ctx context.Context, since time.Time) (map[string]uint64, error) {
	clause, args := windowClause(since)
	query := `
		SELECT toDate(created_at) AS day, count() AS views
		FROM analytics_page_views` + clause + `
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query views per day: %w", err)
	}
	defer rows.Close()

	results := make(map[string]uint64)
	for rows.Next() {
		var day time.Time
		var views uint64
		if err := rows.Scan(&day, &views); err != nil {
			return nil, fmt.Errorf("scanning views per day row: %w", err)
		}
		results[day.Format("2006-01-02")] = views
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating views per day rows: %w", err)
	}
	return results, nil
}

// RecentPageViews returns the newest page views, newest first.
func (s *TrafficStore) RecentPageViews(ctx context.Context, limit uint64) ([]models.PageView, error) {
	query := `
		SELECT page_path, country, city, created_at
		FROM analytics_page_views
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.DB.Conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent page views: %w", err)
	}
	defer rows.Close()

	var results []models.PageView
	for rows.Next() {
		var view models.PageView
		if err := rows.Scan(&view.PagePath, &view.Country, &view.City, &view.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning recent page view row: %w", err)
		}
		results = append(results, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent page view rows: %w", err)
	}
	return results, nil
}

// RecentEvents returns the newest events, newest first.
func (s *TrafficStore) RecentEvents(ctx context.Context, limit uint64) ([]models.Event, error) {
	query := `
		SELECT event_type, page_path, created_at
		FROM analytics_events
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.DB.Conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	var results []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.EventType, &event.PagePath, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning recent event row: %w", err)
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent event rows: %w", err)
	}
	return results, nil
}

// TruncateAll removes every page view and event. Returns the number of rows
// each table held before truncation; truncating empty tables succeeds.
func (s *TrafficStore) TruncateAll(ctx context.Context) (views uint64, events uint64, err error) {
	views, err = s.CountPageViews(ctx, time.Time{})
	if err != nil {
		return 0, 0, err
	}
	events, err = s.CountEvents(ctx, time.Time{})
	if err != nil {
		return 0, 0, err
	}

	if err := s.DB.Conn.Exec(ctx, `TRUNCATE TABLE analytics_page_views`); err != nil {
		return 0, 0, fmt.Errorf("failed to truncate page views: %w", err)
	}
	if err := s.DB.Conn.Exec(ctx, `TRUNCATE TABLE analytics_events`); err != nil {
		return 0, 0, fmt.Errorf("failed to truncate events: %w", err)
	}
	return views, events, nil
}
