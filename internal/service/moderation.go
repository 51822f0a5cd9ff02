package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/store"
)

// StatsWindow is how far back an item counts as recent.
const StatsWindow = 7 * 24 * time.Hour

// ModerationGate holds the admin-only operations.
type ModerationGate struct {
	DB *sql.DB

	fan    *fanOut
	logger *slog.Logger
}

// ApproveItem makes an item publicly visible and, if it was not already
// approved, notifies matching counterparts. The approval stands even if
// the notification fan-out fails.
func (g *ModerationGate) ApproveItem(ctx context.Context, actor Actor, itemID int64) (*model.Item, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	item, changed, err := store.SetItemApproved(ctx, g.DB, itemID, true)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound("item")
	}
	g.logger.InfoContext(ctx, "item approved", "item", itemID, "admin", actor.ID, "changed", changed)

	if changed {
		g.fan.notify(ctx, "item.approve", item)
	}
	return item, nil
}

// RejectItem hides an item from public listings. No notifications are sent.
func (g *ModerationGate) RejectItem(ctx context.Context, actor Actor, itemID int64, reason string) (*model.Item, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > model.MaxReasonLength {
		return nil, validationError("reason cannot be more than %d characters", model.MaxReasonLength)
	}

	item, _, err := store.SetItemApproved(ctx, g.DB, itemID, false)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound("item")
	}
	g.logger.InfoContext(ctx, "item rejected", "item", itemID, "admin", actor.ID, "reason", reason)
	return item, nil
}

// DeleteItem removes any item regardless of owner.
func (g *ModerationGate) DeleteItem(ctx context.Context, actor Actor, itemID int64) error {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return err
	}
	deleted, err := store.DeleteItem(ctx, g.DB, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("item")
	}
	g.logger.InfoContext(ctx, "item deleted by admin", "item", itemID, "admin", actor.ID)
	return nil
}

// BlockUser stops a user from authenticating. Their items and claims stay as they are.
func (g *ModerationGate) BlockUser(ctx context.Context, actor Actor, userID int64) (*model.User, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if userID == actor.ID {
		return nil, validationError("you cannot block yourself")
	}
	return g.setBlocked(ctx, actor, userID, true)
}

// UnblockUser restores a blocked user.
func (g *ModerationGate) UnblockUser(ctx context.Context, actor Actor, userID int64) (*model.User, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	return g.setBlocked(ctx, actor, userID, false)
}

func (g *ModerationGate) setBlocked(ctx context.Context, actor Actor, userID int64, blocked bool) (*model.User, error) {
	user, err := store.SetUserBlocked(ctx, g.DB, userID, blocked)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	g.logger.InfoContext(ctx, "user block status changed", "user", userID, "blocked", blocked, "admin", actor.ID)
	return user, nil
}

// Stats aggregates user and item counts.
func (g *ModerationGate) Stats(ctx context.Context, actor Actor) (*model.Stats, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	return store.GetStats(ctx, g.DB, time.Now().Add(-StatsWindow))
}

// ListUsers lists users for the admin dashboard.
func (g *ModerationGate) ListUsers(ctx context.Context, actor Actor, f store.UserFilter, page store.Page) ([]model.User, int, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	if f.Role != "" && !model.ValidRole(f.Role) {
		return nil, 0, validationError("invalid role %q", f.Role)
	}
	return store.ListUsers(ctx, g.DB, f, page)
}

// ListItems lists items in any state for the admin dashboard.
func (g *ModerationGate) ListItems(ctx context.Context, actor Actor, f store.ItemFilter, page store.Page) ([]model.Item, int, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	if f.Type != "" && !model.ValidType(f.Type) {
		return nil, 0, validationError("invalid type %q", f.Type)
	}
	return store.ListItems(ctx, g.DB, f, page)
}
