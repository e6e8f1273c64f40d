package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"devfolio/api/models"
)

var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// SessionStore persists visitor sessions in Postgres. Sessions are the only
// analytics entity mutated after creation, and session_id carries a UNIQUE
// constraint so concurrent first-visit inserts collapse to one row.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// EnsureSession creates the session row on first observed activity. The
// insert is conditional on the session_id unique constraint, so two
// near-simultaneous page loads from the same browser race safely: one
// insert wins, the other is a no-op.
func (s *SessionStore) EnsureSession(ctx context.Context, session *models.Session) error {
	query, args, err := psq.Insert("analytics_sessions").
		Columns("session_id", "device_type", "browser", "operating_system",
			"country", "city", "referrer", "first_visit_at", "last_activity_at", "page_views_count").
		Values(session.SessionID, session.DeviceType, session.Browser, session.OperatingSystem,
			session.Country, session.City, session.Referrer, session.FirstVisitAt, session.LastActivityAt, 0).
		Suffix("ON CONFLICT (session_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("building session insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

// Touch records activity on a session: bumps last_activity_at and, for page
// views, increments the view counter the bounce rate is derived from.
func (s *SessionStore) Touch(ctx context.Context, sessionID string, countView bool, at time.Time) error {
	update := psq.Update("analytics_sessions").
		Set("last_activity_at", at).
		Where(sq.Eq{"session_id": sessionID})
	if countView {
		update = update.Set("page_views_count", sq.Expr("page_views_count + 1"))
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("building session touch: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to touch session %s: %w", sessionID, err)
	}
	return nil
}

// withWindow adds the aggregation-window lower bound. A zero since means
// all time.
func withWindow(b sq.SelectBuilder, column string, since time.Time) sq.SelectBuilder {
	if since.IsZero() {
		return b
	}
	return b.Where(sq.GtOrEq{column: since})
}

// CountSessions returns the number of sessions whose first visit falls in
// the window (the dashboard's unique-visitor count).
func (s *SessionStore) CountSessions(ctx context.Context, since time.Time) (uint64, error) {
	query, args, err := withWindow(psq.Select("COUNT(*)").From("analytics_sessions"), "first_visit_at", since).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building session count: %w", err)
	}

	var count uint64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// CountBounced returns the number of in-window sessions with exactly one
// page view.
func (s *SessionStore) CountBounced(ctx context.Context, since time.Time) (uint64, error) {
	query, args, err := withWindow(
		psq.Select("COUNT(*)").From("analytics_sessions").Where(sq.Eq{"page_views_count": 1}),
		"first_visit_at", since,
	).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building bounce count: %w", err)
	}

	var count uint64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bounced sessions: %w", err)
	}
	return count, nil
}

// AvgSessionSeconds returns the mean session duration in seconds across
// in-window sessions, with each session's duration floored at zero.
func (s *SessionStore) AvgSessionSeconds(ctx context.Context, since time.Time) (float64, error) {
	query, args, err := withWindow(
		psq.Select("COALESCE(AVG(GREATEST(EXTRACT(EPOCH FROM (last_activity_at - first_visit_at)), 0)), 0)").
			From("analytics_sessions"),
		"first_visit_at", since,
	).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building avg session duration: %w", err)
	}

	var avg float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to compute average session duration: %w", err)
	}
	return avg, nil
}

// DeviceBreakdown returns session counts grouped by device type, descending.
// Percentages are filled in by the aggregator.
func (s *SessionStore) DeviceBreakdown(ctx context.Context, since time.Time) ([]models.RankedStat, error) {
	query, args, err := withWindow(
		psq.Select("device_type", "COUNT(*) AS sessions").
			From("analytics_sessions").
			GroupBy("device_type").
			OrderBy("sessions DESC"),
		"first_visit_at", since,
	).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building device breakdown: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query device breakdown: %w", err)
	}
	defer rows.Close()

	var results []models.RankedStat
	for rows.Next() {
		var stat models.RankedStat
		if err := rows.Scan(&stat.Name, &stat.Count); err != nil {
			return nil, fmt.Errorf("scanning device breakdown row: %w", err)
		}
		results = append(results, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device breakdown rows: %w", err)
	}
	return results, nil
}

// SessionsPerDay returns, keyed by calendar date, the number of sessions
// whose first visit falls on that date.
func (s *SessionStore) SessionsPerDay(ctx context.Context, since time.Time) (map[string]uint64, error) {
	query, args, err := withWindow(
		psq.Select("date_trunc('day', first_visit_at) AS day", "COUNT(*) AS sessions").
			From("analytics_sessions").
			GroupBy("day").
			OrderBy("day ASC"),
		"first_visit_at", since,
	).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building sessions per day: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions per day: %w", err)
	}
	defer rows.Close()

	results := make(map[string]uint64)
	for rows.Next() {
		var day time.Time
		var count uint64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scanning sessions per day row: %w", err)
		}
		results[day.Format("2006-01-02")] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions per day rows: %w", err)
	}
	return results, nil
}

// DeleteAll removes every session row. Deleting from an empty table is a
// successful no-op.
func (s *SessionStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analytics_sessions`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear sessions: %w", err)
	}
	cleared, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared sessions: %w", err)
	}
	return cleared, nil
}
