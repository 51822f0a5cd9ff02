package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/campuslost/lostfound/internal/mail"
	"github.com/campuslost/lostfound/internal/metrics"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/store"
)

// Notice is one notification to dispatch.
type Notice struct {
	UserID  int64
	ItemID  int64
	Message string
	// Email renders the email for the loaded recipient. Nil sends a generic
	// email carrying Message.
	Email func(recipient *model.User) (*mail.Email, error)
}

// Dispatcher stores in-app notifications and attempts one email per
// notification.
type Dispatcher struct {
	DB        *sql.DB
	Mailer    mail.Mailer
	Templates *mail.Renderer
	Metrics   *metrics.Metrics

	logger *slog.Logger
	fx     *effects
}

// Dispatch validates and stores the notification, then attempts the email.
// Email failures are logged and never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notice) (*model.Notification, error) {
	n.Message = strings.TrimSpace(n.Message)
	if n.Message == "" {
		return nil, validationError("notification message is required")
	}
	if utf8.RuneCountInString(n.Message) > model.MaxMessageLength {
		return nil, validationError("notification message cannot be more than %d characters", model.MaxMessageLength)
	}

	notification, err := store.CreateNotification(ctx, d.DB, n.UserID, n.ItemID, n.Message)
	if err != nil {
		d.Metrics.Notification(metrics.ResultFailed)
		return nil, err
	}
	d.Metrics.Notification(metrics.ResultOK)

	d.fx.spawn(ctx, "email", func(ctx context.Context) error {
		return d.email(ctx, n)
	}, "user", n.UserID, "item", n.ItemID)

	return notification, nil
}

// Notify is Dispatch with failures logged and dropped. It returns nil when
// nothing was stored.
func (d *Dispatcher) Notify(ctx context.Context, op string, n Notice) *model.Notification {
	notification, err := d.Dispatch(ctx, n)
	if err != nil {
		d.logger.ErrorContext(ctx, "notification failed", "op", op, "user", n.UserID, "item", n.ItemID, "error", err)
		return nil
	}
	return notification
}

func (d *Dispatcher) email(ctx context.Context, n Notice) (err error) {
	if d.Mailer == nil {
		d.Metrics.Email(metrics.ResultSkip)
		return nil
	}
	defer func() {
		if err != nil {
			d.Metrics.Email(metrics.ResultFailed)
		} else {
			d.Metrics.Email(metrics.ResultOK)
		}
	}()

	recipient, err := store.GetUser(ctx, d.DB, n.UserID)
	if err != nil {
		return err
	}
	if recipient == nil || recipient.Email == "" {
		return fmt.Errorf("recipient %d has no email address", n.UserID)
	}

	var email *mail.Email
	if n.Email != nil {
		email, err = n.Email(recipient)
	} else {
		email, err = d.Templates.Notice(mail.TemplateData{
			RecipientName: recipient.Name,
			ItemID:        n.ItemID,
			Message:       n.Message,
		})
	}
	if err != nil {
		return err
	}

	if err := d.Mailer.Send(ctx, recipient.Email, email.Subject, email.HTML); err != nil {
		return fmt.Errorf("sending email to user %d: %w", n.UserID, err)
	}
	return nil
}
