// Package mail delivers notification emails. Delivery is best effort: callers
// log and drop send errors.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Mailer sends one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Email is a rendered message ready to send.
type Email struct {
	Subject string
	HTML    string
}

// LogMailer writes emails to the log instead of delivering them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "email", "to", to, "subject", subject, "bytes", len(html))
	return nil
}

func validateAddress(to string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient address")
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient address %q", to)
	}
	return nil
}
