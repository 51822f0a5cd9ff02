package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslost/lostfound/internal/model"
)

const proof = "It has my initials J.D. engraved inside"

func TestSubmitClaim(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	owner := f.user("Olivia", "olivia@campus.edu")
	claimant := f.user("Carl", "carl@campus.edu")
	item := f.approvedItem(owner, admin, "Black Wallet", model.ItemTypeFound)

	claim, err := f.svc.Claims.Submit(f.ctx, claimant, item.ID, "  "+proof+"  ")
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusPending, claim.Status)
	assert.Equal(t, proof, claim.ProofMessage)
	assert.Equal(t, claimant.ID, claim.ClaimantID)

	notes := f.notifications(owner)
	require.Len(t, notes, 1)
	assert.Equal(t, item.ID, notes[0].ItemID)
	assert.Equal(t,
		`New claim received! Carl (carl@campus.edu) claims your "Black Wallet". Please review their proof of ownership.`,
		notes[0].Message)

	sent := f.mailer.to("olivia@campus.edu")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].HTML, "J.D. engraved")
}

func TestSubmitClaimValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Olivia", "olivia@campus.edu")
	claimant := f.user("Carl", "carl@campus.edu")
	item := f.item(owner, "Black Wallet", model.ItemTypeFound)

	tests := []struct {
		name  string
		proof string
	}{
		{"empty", ""},
		{"blank", "          "},
		{"nine characters", "123456789"},
		{"too long", strings.Repeat("x", model.MaxProofLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Claims.Submit(f.ctx, claimant, item.ID, tt.proof)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := f.svc.Claims.Submit(f.ctx, claimant, item.ID, "1234567890")
	assert.NoError(t, err, "ten characters is enough")

	_, err = f.svc.Claims.Submit(f.ctx, claimant, 999, proof)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Claims.Submit(f.ctx, Actor{}, item.ID, proof)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSubmitClaimOwnItemForbidden(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Olivia", "olivia@campus.edu")
	claimant := f.user("Carl", "carl@campus.edu")
	item := f.item(owner, "Black Wallet", model.ItemTypeFound)

	_, err := f.svc.Claims.Submit(f.ctx, owner, item.ID, proof)
	assert.ErrorIs(t, err, ErrForbidden)

	claim, err := f.svc.Claims.Submit(f.ctx, claimant, item.ID, proof)
	require.NoError(t, err)
	_, err = f.svc.Claims.Approve(f.ctx, owner, claim.ID)
	require.NoError(t, err)

	// Still forbidden once the item is resolved.
	_, err = f.svc.Claims.Submit(f.ctx, owner, item.ID, proof)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitClaimDuplicatePending(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Olivia", "olivia@campus.edu")
	claimant := f.user("Carl", "carl@campus.edu")
	item := f.item(owner, "Black Wallet", model.ItemTypeFound)

	first, err := f.svc.Claims.Submit(f.ctx, claimant, item.ID, proof)
	require.NoError(t, err)

	_, err = f.svc.Claims.Submit(f.ctx, claimant, item.ID, proof+" and a receipt")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.Claims.Reject(f.ctx, owner, first.ID, "")
	require.NoError(t, err)

	second, err := f.svc.Claims.Submit(f.ctx, claimant, item.ID, proof+" and a receipt")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestApproveClaimResolvesItem(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Olivia", "olivia@campus.edu")
	carl := f.user("Carl", "carl@campus.edu")
	dana := f.user("Dana", "dana@campus.edu")
	item := f.item(owner, "Black Wallet", model.ItemTypeFound)

	c1, err := f.svc.Claims.Submit(f.ctx, carl, item.ID, proof)
	require.NoError(t, err)
	c2, err := f.svc.Claims.Submit(f.ctx, dana, item.ID, "Mine has a library card in it")
	require.NoError(t, err)

	approved, err := f.svc.Claims.Approve(f.ctx, owner, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusApproved, approved.Status)
	require.NotNil(t, approved.Item)
	assert.Equal(t, model.ItemStatusResolved, approved.Item.Status)
	require.NotNil(t, approved.Item.ClaimedBy)
	assert.Equal(t, carl.ID, *approved.Item.ClaimedBy)

	notes := f.notifications(carl)
	require.Len(t, notes, 1)
	assert.Equal(t,
		`Great news! Your claim for "Black Wallet" has been approved! Contact the owner at olivia@campus.edu to arrange pickup.`,
		notes[0].Message)

	// The other pending claim can no longer win but can still be rejected.
	_, err = f.svc.Claims.Approve(f.ctx, owner, c2.ID)
	assert.ErrorIs(t, err, ErrConflict)
	rejected, err := f.svc.Claims.Reject(f.ctx, owner, c2.ID, "Already returned")
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusRejected, rejected.Status)

	// Terminal claims stay terminal.
	_, err = f.svc.Claims.Approve(f.ctx, owner, c1.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.Claims.Reject(f.ctx, owner, c1.ID, "")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.Claims.Approve(f.ctx, owner, c2.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// New claims on a resolved item are refused.
	eve := f.user("Eve", "eve@campus.edu")
	_, err = f.svc.Claims.Submit(f.ctx, eve, item.ID, proof)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClaimTransitionsRequireItemOwner(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	owner := f.user("Olivia", "olivia@campus.edu")
	carl := f.user("Carl", "carl@campus.edu")
	item := f.item(owner, "Black Wallet", model.ItemTypeFound)

	claim, err := f.svc.Claims.Submit(f.ctx, carl, item.ID, proof)
	require.NoError(t, err)

	for _, actor := range []Actor{carl, admin} {
		_, err = f.svc.Claims.Approve(f.ctx, actor, claim.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.svc.Claims.Reject(f.ctx, actor, claim.ID, "")
		assert.ErrorIs(t, err, ErrForbidden)
	}

	_, err = f.svc.Claims.Approve(f.ctx, owner, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Claims.Reject(f.ctx, owner, claim.ID, strings.Repeat("r", model.MaxReasonLength+1))
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.svc.Claims.Get(f.ctx, owner, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusPending, got.Status)
}

func TestRejectClaimMessage(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Olivia", "olivia@campus.edu")
	carl := f.user("Carl", "carl@campus.edu")
	item := f.item(owner, "Black Wallet", model.ItemTypeFound)

	claim, err := f.svc.Claims.Submit(f.ctx, carl, item.ID, proof)
	require.NoError(t, err)
	_, err = f.svc.Claims.Reject(f.ctx, owner, claim.ID, "Wrong colour")
	require.NoError(t, err)

	notes := f.notifications(carl)
	require.Len(t, notes, 1)
	assert.Equal(t,
		`Your claim for "Black Wallet" was not approved. Reason: Wrong colour You can submit another claim if you have additional proof.`,
		notes[0].Message)

	reloaded, err := f.svc.Items.Get(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusActive, reloaded.Status)
	assert.Nil(t, reloaded.ClaimedBy)
}

func TestClaimSurvivesNotificationFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Olivia", "olivia@campus.edu")
	carl := f.user("Carl", "carl@campus.edu")
	item := f.item(owner, "Black Wallet", model.ItemTypeFound)

	f.breakNotifications()

	claim, err := f.svc.Claims.Submit(f.ctx, carl, item.ID, proof)
	require.NoError(t, err)

	approved, err := f.svc.Claims.Approve(f.ctx, owner, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusApproved, approved.Status)
}

func TestListClaims(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Olivia", "olivia@campus.edu")
	carl := f.user("Carl", "carl@campus.edu")
	dana := f.user("Dana", "dana@campus.edu")
	item := f.item(owner, "Black Wallet", model.ItemTypeFound)

	claim, err := f.svc.Claims.Submit(f.ctx, carl, item.ID, proof)
	require.NoError(t, err)

	list, err := f.svc.Claims.ListByItem(f.ctx, owner, item.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, claim.ID, list[0].ID)

	_, err = f.svc.Claims.ListByItem(f.ctx, carl, item.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	mine, err := f.svc.Claims.ListMine(f.ctx, carl)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.svc.Claims.Get(f.ctx, carl, claim.ID)
	assert.NoError(t, err)
	_, err = f.svc.Claims.Get(f.ctx, dana, claim.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
