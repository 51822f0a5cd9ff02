package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslost/lostfound/internal/model"
)

// CreateNotification stores an unread notification.
func CreateNotification(ctx context.Context, db *sql.DB, userID, itemID int64, message string) (*model.Notification, error) {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, item_id, message, is_read, created_at) VALUES (?, ?, ?, 0, ?)`,
		userID, itemID, message, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting notification id: %w", err)
	}

	return &model.Notification{
		ID:        id,
		UserID:    userID,
		ItemID:    itemID,
		Message:   message,
		CreatedAt: now,
	}, nil
}

// GetNotification returns a notification by ID.
func GetNotification(ctx context.Context, db *sql.DB, id int64) (*model.Notification, error) {
	n := &model.Notification{}
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, item_id, message, is_read, created_at FROM notifications WHERE id = ?`, id,
	).Scan(&n.ID, &n.UserID, &n.ItemID, &n.Message, &n.IsRead, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns a user's notifications newest first with their
// subject item attached, plus the total and unread counts.
func ListNotifications(ctx context.Context, db *sql.DB, userID int64, page Page) ([]model.Notification, int, int, error) {
	var total, unread int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(1 - is_read), 0) FROM notifications WHERE user_id = ?`, userID,
	).Scan(&total, &unread)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("counting notifications: %w", err)
	}

	limit, limitArgs := page.clause()
	rows, err := db.QueryContext(ctx,
		`SELECT n.id, n.user_id, n.item_id, n.message, n.is_read, n.created_at,
		        i.id, i.title, i.description, i.category, i.location, i.date, i.type, i.status,
		        i.claimed_by, i.image_url, i.posted_by, i.is_approved, i.created_at
		 FROM notifications n
		 JOIN items i ON i.id = n.item_id
		 WHERE n.user_id = ?
		 ORDER BY n.created_at DESC, n.id DESC`+limit,
		append([]any{userID}, limitArgs...)...,
	)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		item := &model.Item{}
		var claimedBy sql.NullInt64
		if err := rows.Scan(&n.ID, &n.UserID, &n.ItemID, &n.Message, &n.IsRead, &n.CreatedAt,
			&item.ID, &item.Title, &item.Description, &item.Category, &item.Location, &item.Date, &item.Type, &item.Status,
			&claimedBy, &item.ImageURL, &item.PostedBy, &item.IsApproved, &item.CreatedAt); err != nil {
			return nil, 0, 0, fmt.Errorf("scanning notification: %w", err)
		}
		if claimedBy.Valid {
			item.ClaimedBy = &claimedBy.Int64
		}
		n.Item = item
		notifications = append(notifications, n)
	}
	return notifications, total, unread, rows.Err()
}

// MarkNotificationRead marks a single notification read.
func MarkNotificationRead(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of a user read and
// returns how many changed.
func MarkAllNotificationsRead(ctx context.Context, db *sql.DB, userID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// DeleteNotification removes a notification.
func DeleteNotification(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	return nil
}
