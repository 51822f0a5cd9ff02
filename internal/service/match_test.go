package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslost/lostfound/internal/model"
)

func TestTitlesMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Black Wallet", "I found a black wallet near the gym", true},
		{"I found a black wallet near the gym", "Black Wallet", true},
		{"Black Wallet", "Blue Backpack", false},
		{"  umbrella ", "Red Umbrella", true},
		{"ÉCHARPE", "écharpe rouge", true},
		{"", "anything", false},
		{"   ", "anything", false},
		{"keys", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitlesMatch(tt.a, tt.b), "TitlesMatch(%q, %q)", tt.a, tt.b)
	}
}

func TestMatchFinderFind(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	alice := f.user("Alice", "alice@campus.edu")
	bob := f.user("Bob", "bob@campus.edu")

	wallet := f.approvedItem(bob, admin, "I found a black wallet near the gym", model.ItemTypeFound)
	f.approvedItem(bob, admin, "Blue Backpack", model.ItemTypeFound)
	f.item(bob, "Black wallet, leather", model.ItemTypeFound) // unapproved
	f.approvedItem(bob, admin, "Black Wallet", model.ItemTypeLost) // same type

	source := f.item(alice, "Black Wallet", model.ItemTypeLost)

	matches, err := f.svc.Matches.Find(f.ctx, source)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, wallet.ID, matches[0].ID)
}

func TestMatchFinderBlankTitle(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	bob := f.user("Bob", "bob@campus.edu")
	f.approvedItem(bob, admin, "Keys", model.ItemTypeFound)

	matches, err := f.svc.Matches.Find(f.ctx, &model.Item{ID: 999, Title: "   ", Type: model.ItemTypeLost})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCreateLostItemNotifiesPosterPerFoundMatch(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	alice := f.user("Alice", "alice@campus.edu")
	bob := f.user("Bob", "bob@campus.edu")

	f.approvedItem(bob, admin, "Found: red umbrella", model.ItemTypeFound)
	f.approvedItem(bob, admin, "umbrella", model.ItemTypeFound)

	lost := f.item(alice, "Red Umbrella", model.ItemTypeLost)

	notes := f.notifications(alice)
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.NotEqual(t, lost.ID, n.ItemID, "subject should be the found item")
		assert.Contains(t, n.Message, `matches your lost item "Red Umbrella"`)
		assert.False(t, n.IsRead)
	}
	assert.Empty(t, f.notifications(bob))
	assert.Len(t, f.mailer.to("alice@campus.edu"), 2)
}
