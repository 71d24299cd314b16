package sqlite

import (
	"context"
	"fmt"

	"github.com/stemlabtz/stemquote/internal/storage"
)

// GetAnalytics builds the admin dashboard report: user counts by role,
// session status counts, the ten most-used activities, and the session
// creation trend over the last twelve months.
func (s *SQLiteStore) GetAnalytics(ctx context.Context) (*storage.Analytics, error) {
	report := &storage.Analytics{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
	if err != nil {
		return nil, fmt.Errorf("analytics users: %w", err)
	}
	for rows.Next() {
		var rc storage.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		report.Users = append(report.Users, rc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(CASE WHEN status = 'approved' THEN 1 END),
		        COUNT(CASE WHEN status = 'pending' THEN 1 END),
		        COUNT(CASE WHEN status = 'rejected' THEN 1 END),
		        COUNT(CASE WHEN status = 'draft' THEN 1 END)
		 FROM sessions`,
	).Scan(&report.Sessions.Total, &report.Sessions.Approved, &report.Sessions.Pending,
		&report.Sessions.Rejected, &report.Sessions.Draft)
	if err != nil {
		return nil, fmt.Errorf("analytics sessions: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT a.name, a.category, COUNT(sa.activity_id)
		 FROM session_activities sa
		 JOIN activities a ON a.id = sa.activity_id
		 GROUP BY a.id, a.name, a.category
		 ORDER BY COUNT(sa.activity_id) DESC
		 LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("analytics top activities: %w", err)
	}
	for rows.Next() {
		var au storage.ActivityUsage
		if err := rows.Scan(&au.Name, &au.Category, &au.UsageCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan activity usage: %w", err)
		}
		report.TopActivities = append(report.TopActivities, au)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m', created_at, 'unixepoch') AS month, COUNT(*)
		 FROM sessions
		 WHERE created_at >= strftime('%s', 'now', '-12 months')
		 GROUP BY month
		 ORDER BY month ASC`)
	if err != nil {
		return nil, fmt.Errorf("analytics monthly: %w", err)
	}
	for rows.Next() {
		var mc storage.MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan month count: %w", err)
		}
		report.MonthlyActivity = append(report.MonthlyActivity, mc)
	}
	rows.Close()
	return report, rows.Err()
}
