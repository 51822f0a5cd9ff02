package service

import (
	"context"
	"database/sql"

	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/store"
)

// Inbox serves a user's own notifications.
type Inbox struct {
	DB *sql.DB
}

// InboxPage is one page of notifications.
type InboxPage struct {
	Notifications []model.Notification
	Total         int
	Unread        int
}

// List returns the actor's notifications, newest first.
func (b *Inbox) List(ctx context.Context, actor Actor, page store.Page) (*InboxPage, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	list, total, unread, err := store.ListNotifications(ctx, b.DB, actor.ID, page)
	if err != nil {
		return nil, err
	}
	return &InboxPage{Notifications: list, Total: total, Unread: unread}, nil
}

func (b *Inbox) own(ctx context.Context, actor Actor, id int64) (*model.Notification, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	n, err := store.GetNotification(ctx, b.DB, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, notFound("notification")
	}
	if n.UserID != actor.ID {
		return nil, forbidden("not authorized to access this notification")
	}
	return n, nil
}

// MarkRead marks one of the actor's notifications read.
func (b *Inbox) MarkRead(ctx context.Context, actor Actor, id int64) (*model.Notification, error) {
	n, err := b.own(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := store.MarkNotificationRead(ctx, b.DB, id); err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead marks all of the actor's notifications read and returns how many changed.
func (b *Inbox) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	if err := requireActive(actor); err != nil {
		return 0, err
	}
	return store.MarkAllNotificationsRead(ctx, b.DB, actor.ID)
}

// Delete removes one of the actor's notifications.
func (b *Inbox) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := b.own(ctx, actor, id); err != nil {
		return err
	}
	return store.DeleteNotification(ctx, b.DB, id)
}
