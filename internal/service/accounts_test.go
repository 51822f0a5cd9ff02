package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslost/lostfound/internal/model"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	session, err := f.svc.Accounts.Register(f.ctx, " Alice ", "Alice@Campus.edu", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "Alice", session.User.Name)
	assert.Equal(t, "alice@campus.edu", session.User.Email)
	assert.Equal(t, model.RoleUser, session.User.Role)

	_, err = f.svc.Accounts.Register(f.ctx, "Other", "alice@campus.edu", "secret2")
	assert.ErrorIs(t, err, ErrConflict)

	login, err := f.svc.Accounts.Login(f.ctx, "ALICE@campus.edu", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = f.svc.Accounts.Login(f.ctx, "alice@campus.edu", "wrong")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.Accounts.Login(f.ctx, "nobody@campus.edu", "secret1")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name, email, password string
	}{
		{"", "a@campus.edu", "secret1"},
		{"Alice", "not-an-email", "secret1"},
		{"Alice", "a@campus.edu", "short"},
		{"Alice", "Alice <a@campus.edu>", "secret1"},
	}
	for _, tt := range tests {
		_, err := f.svc.Accounts.Register(f.ctx, tt.name, tt.email, tt.password)
		assert.ErrorIs(t, err, ErrValidation, "%+v", tt)
	}
}

func TestAuthenticateAndLogout(t *testing.T) {
	f := newFixture(t)
	session, err := f.svc.Accounts.Register(f.ctx, "Alice", "alice@campus.edu", "secret1")
	require.NoError(t, err)

	id, err := f.svc.Accounts.Authenticate(f.ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, id.Actor().ID)

	_, err = f.svc.Accounts.Authenticate(f.ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.Accounts.Authenticate(f.ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, f.svc.Accounts.Logout(f.ctx, id))
	_, err = f.svc.Accounts.Authenticate(f.ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// A fresh login still works.
	again, err := f.svc.Accounts.Login(f.ctx, "alice@campus.edu", "secret1")
	require.NoError(t, err)
	_, err = f.svc.Accounts.Authenticate(f.ctx, again.Token)
	assert.NoError(t, err)
}

func TestBlockedUserIsRefused(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	session, err := f.svc.Accounts.Register(f.ctx, "Alice", "alice@campus.edu", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Moderation.BlockUser(f.ctx, admin, session.User.ID)
	require.NoError(t, err)

	_, err = f.svc.Accounts.Login(f.ctx, "alice@campus.edu", "secret1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Accounts.Authenticate(f.ctx, session.Token)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Moderation.UnblockUser(f.ctx, admin, session.User.ID)
	require.NoError(t, err)
	_, err = f.svc.Accounts.Authenticate(f.ctx, session.Token)
	assert.NoError(t, err)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	f := newFixture(t)
	session, err := f.svc.Accounts.Register(f.ctx, "Alice", "alice@campus.edu", "secret1")
	require.NoError(t, err)
	alice := ActorOf(session.User)

	updated, err := f.svc.Accounts.UpdateProfile(f.ctx, alice, "  Alice B.  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", updated.Name)

	_, err = f.svc.Accounts.UpdateProfile(f.ctx, alice, " ")
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, f.svc.Accounts.ChangePassword(f.ctx, alice, "wrong", "newsecret"), ErrValidation)
	assert.ErrorIs(t, f.svc.Accounts.ChangePassword(f.ctx, alice, "secret1", "new"), ErrValidation)
	require.NoError(t, f.svc.Accounts.ChangePassword(f.ctx, alice, "secret1", "newsecret"))

	_, err = f.svc.Accounts.Login(f.ctx, "alice@campus.edu", "secret1")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.Accounts.Login(f.ctx, "alice@campus.edu", "newsecret")
	assert.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)

	password, err := f.svc.Accounts.EnsureAdmin(f.ctx, "Admin", "Admin@Campus.edu")
	require.NoError(t, err)
	require.NotEmpty(t, password)

	session, err := f.svc.Accounts.Login(f.ctx, "admin@campus.edu", password)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, session.User.Role)

	again, err := f.svc.Accounts.EnsureAdmin(f.ctx, "Admin", "admin@campus.edu")
	require.NoError(t, err)
	assert.Empty(t, again)
}
