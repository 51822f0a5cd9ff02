package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/campuslost/lostfound/internal/mail"
	"github.com/campuslost/lostfound/internal/metrics"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/store"
)

// ClaimManager drives claims through pending -> approved | rejected and
// keeps the claimed item in step.
type ClaimManager struct {
	DB        *sql.DB
	Notifier  *Dispatcher
	Templates *mail.Renderer
	Metrics   *metrics.Metrics

	logger *slog.Logger
}

// Submit files a pending claim on an item and notifies the item's owner.
func (m *ClaimManager) Submit(ctx context.Context, actor Actor, itemID int64, proof string) (*model.Claim, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if err := model.ValidateProof(proof); err != nil {
		return nil, validationError("%s", err.Error())
	}
	proof = strings.TrimSpace(proof)

	item, err := store.GetItem(ctx, m.DB, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound("item")
	}
	if item.PostedBy == actor.ID {
		return nil, forbidden("you cannot claim your own item")
	}
	if item.Status == model.ItemStatusResolved {
		return nil, conflict("this item has already been claimed and resolved")
	}

	claim, err := store.CreateClaim(ctx, m.DB, itemID, actor.ID, proof)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, conflict("you already have a pending claim for this item")
	}
	if err != nil {
		return nil, err
	}
	m.Metrics.ClaimTransition(model.ClaimStatusPending)
	m.logger.InfoContext(ctx, "claim submitted", "claim", claim.ID, "item", itemID, "claimant", actor.ID)

	claimant := claim.Claimant
	m.Notifier.Notify(ctx, "claim.submit", Notice{
		UserID: item.PostedBy,
		ItemID: item.ID,
		Message: fmt.Sprintf(`New claim received! %s (%s) claims your "%s". Please review their proof of ownership.`,
			claimant.Name, claimant.Email, item.Title),
		Email: func(recipient *model.User) (*mail.Email, error) {
			return m.Templates.ClaimSubmitted(mail.TemplateData{
				RecipientName: recipient.Name,
				ItemID:        item.ID,
				ItemTitle:     item.Title,
				OtherName:     claimant.Name,
				OtherEmail:    claimant.Email,
				Proof:         proof,
			})
		},
	})

	return claim, nil
}

// load fetches a claim and checks that actor owns the claimed item.
func (m *ClaimManager) load(ctx context.Context, actor Actor, claimID int64, action string) (*model.Claim, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	claim, err := store.GetClaim(ctx, m.DB, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, notFound("claim")
	}
	if err := requireOwner(actor, claim.Item, action); err != nil {
		return nil, err
	}
	return claim, nil
}

// Approve accepts a pending claim, resolving the item to the claimant in one
// transaction, and sends the claimant the owner's contact details.
func (m *ClaimManager) Approve(ctx context.Context, actor Actor, claimID int64) (*model.Claim, error) {
	claim, err := m.load(ctx, actor, claimID, "approve claims")
	if err != nil {
		return nil, err
	}
	if claim.Status != model.ClaimStatusPending {
		return nil, conflict("this claim has already been %s", claim.Status)
	}
	if claim.Item.Status == model.ItemStatusResolved {
		return nil, conflict("this item has already been resolved")
	}

	switch err := store.ApproveClaim(ctx, m.DB, claimID); {
	case errors.Is(err, store.ErrItemResolved):
		return nil, conflict("this item has already been resolved")
	case errors.Is(err, store.ErrClaimNotPending):
		return nil, conflict("this claim has already been processed")
	case err != nil:
		return nil, err
	}
	m.Metrics.ClaimTransition(model.ClaimStatusApproved)
	m.logger.InfoContext(ctx, "claim approved", "claim", claimID, "item", claim.ItemID, "claimant", claim.ClaimantID)

	updated, err := store.GetClaim(ctx, m.DB, claimID)
	if err != nil {
		return nil, err
	}

	owner := updated.Item.Poster
	m.Notifier.Notify(ctx, "claim.approve", Notice{
		UserID: updated.ClaimantID,
		ItemID: updated.ItemID,
		Message: fmt.Sprintf(`Great news! Your claim for "%s" has been approved! Contact the owner at %s to arrange pickup.`,
			updated.Item.Title, owner.Email),
		Email: func(recipient *model.User) (*mail.Email, error) {
			return m.Templates.ClaimApproved(mail.TemplateData{
				RecipientName: recipient.Name,
				ItemID:        updated.ItemID,
				ItemTitle:     updated.Item.Title,
				OtherName:     owner.Name,
				OtherEmail:    owner.Email,
			})
		},
	})

	return updated, nil
}

// Reject declines a pending claim. The item stays open to other claims.
func (m *ClaimManager) Reject(ctx context.Context, actor Actor, claimID int64, reason string) (*model.Claim, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > model.MaxReasonLength {
		return nil, validationError("reason cannot be more than %d characters", model.MaxReasonLength)
	}

	claim, err := m.load(ctx, actor, claimID, "reject claims")
	if err != nil {
		return nil, err
	}
	if claim.Status != model.ClaimStatusPending {
		return nil, conflict("this claim has already been %s", claim.Status)
	}

	if err := store.RejectClaim(ctx, m.DB, claimID); err != nil {
		if errors.Is(err, store.ErrClaimNotPending) {
			return nil, conflict("this claim has already been processed")
		}
		return nil, err
	}
	m.Metrics.ClaimTransition(model.ClaimStatusRejected)
	m.logger.InfoContext(ctx, "claim rejected", "claim", claimID, "item", claim.ItemID, "claimant", claim.ClaimantID)

	updated, err := store.GetClaim(ctx, m.DB, claimID)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf(`Your claim for "%s" was not approved.`, updated.Item.Title)
	if reason != "" {
		message += " Reason: " + reason
	}
	message += " You can submit another claim if you have additional proof."

	m.Notifier.Notify(ctx, "claim.reject", Notice{
		UserID:  updated.ClaimantID,
		ItemID:  updated.ItemID,
		Message: message,
		Email: func(recipient *model.User) (*mail.Email, error) {
			return m.Templates.ClaimRejected(mail.TemplateData{
				RecipientName: recipient.Name,
				ItemID:        updated.ItemID,
				ItemTitle:     updated.Item.Title,
				Reason:        reason,
			})
		},
	})

	return updated, nil
}

// ListByItem returns every claim on an item, newest first. Only the item's
// owner may list them.
func (m *ClaimManager) ListByItem(ctx context.Context, actor Actor, itemID int64) ([]model.Claim, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	item, err := store.GetItem(ctx, m.DB, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound("item")
	}
	if err := requireOwner(actor, item, "view its claims"); err != nil {
		return nil, err
	}
	return store.ListClaims(ctx, m.DB, itemID, 0)
}

// ListMine returns the actor's own claims with item and owner attached.
func (m *ClaimManager) ListMine(ctx context.Context, actor Actor) ([]model.Claim, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	return store.ListClaims(ctx, m.DB, 0, actor.ID)
}

// Get returns a claim visible to its claimant and the item's owner.
func (m *ClaimManager) Get(ctx context.Context, actor Actor, claimID int64) (*model.Claim, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	claim, err := store.GetClaim(ctx, m.DB, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, notFound("claim")
	}
	if err := requireOwnerOrClaimant(actor, claim); err != nil {
		return nil, err
	}
	return claim, nil
}
