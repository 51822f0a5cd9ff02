package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslost/lostfound/internal/model"
)

// GetStats aggregates user and item counts. Items created at or after since
// count as recent.
func GetStats(ctx context.Context, db *sql.DB, since time.Time) (*model.Stats, error) {
	s := &model.Stats{}

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(is_blocked = 0), 0),
		        COALESCE(SUM(is_blocked = 1), 0),
		        COALESCE(SUM(role = 'admin'), 0)
		 FROM users`,
	).Scan(&s.Users.Total, &s.Users.Active, &s.Users.Blocked, &s.Users.Admins)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(type = 'lost'), 0),
		        COALESCE(SUM(type = 'found'), 0),
		        COALESCE(SUM(is_approved = 1), 0),
		        COALESCE(SUM(is_approved = 0), 0),
		        COALESCE(SUM(status = 'resolved'), 0),
		        COALESCE(SUM(created_at >= ?), 0)
		 FROM items`, since.UTC(),
	).Scan(&s.Items.Total, &s.Items.Lost, &s.Items.Found, &s.Items.Approved,
		&s.Items.PendingApprovals, &s.Items.Resolved, &s.Items.RecentItems)
	if err != nil {
		return nil, fmt.Errorf("counting items: %w", err)
	}

	return s, nil
}
