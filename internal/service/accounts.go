package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/campuslost/lostfound/internal/auth"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/store"
)

// AccountService handles registration, login and the resolution of bearer
// tokens to users.
type AccountService struct {
	DB      *sql.DB
	Secret  string
	Revoker auth.Revoker

	logger *slog.Logger
}

// Session is a user with a freshly issued token.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	User   *model.User
	Claims *auth.Claims
}

// Actor returns the identity as an Actor.
func (i *Identity) Actor() Actor {
	return ActorOf(i.User)
}

// Register creates a regular user account and logs it in.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = model.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, validationError("please provide name, email and password")
	}
	if err := model.ValidateName(name); err != nil {
		return nil, validationError("%s", err.Error())
	}
	if err := model.ValidateEmail(email); err != nil {
		return nil, validationError("%s", err.Error())
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, validationError("%s", err.Error())
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := store.CreateUser(ctx, s.DB, name, email, hash, model.RoleUser)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, conflict("user already exists with this email")
	}
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", "user", user.ID)

	return s.issue(user)
}

// Login checks credentials. Blocked accounts are refused.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("please provide email and password")
	}

	user, err := store.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.WarnContext(ctx, "login failed", "email", email)
		return nil, unauthenticated("invalid credentials")
	}
	if user.IsBlocked {
		return nil, forbidden("your account has been blocked")
	}

	s.logger.InfoContext(ctx, "user logged in", "user", user.ID, "role", user.Role)
	return s.issue(user)
}

func (s *AccountService) issue(user *model.User) (*Session, error) {
	token, err := auth.GenerateToken(s.Secret, user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to its live, unblocked user.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, unauthenticated("not authorized, no token")
	}
	claims, err := auth.ValidateToken(s.Secret, token)
	if err != nil {
		return nil, unauthenticated("not authorized, token failed")
	}

	revoked, err := s.Revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, unauthenticated("token has been revoked")
	}

	user, err := store.GetUser(ctx, s.DB, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, unauthenticated("user not found")
	}
	if user.IsBlocked {
		return nil, forbidden("your account has been blocked")
	}
	return &Identity{User: user, Claims: claims}, nil
}

// Logout revokes the token behind id until it expires.
func (s *AccountService) Logout(ctx context.Context, id *Identity) error {
	expires := time.Now().Add(auth.TokenExpiry)
	if id.Claims.ExpiresAt != nil {
		expires = id.Claims.ExpiresAt.Time
	}
	if err := s.Revoker.Revoke(ctx, id.Claims.ID, expires); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user logged out", "user", id.User.ID)
	return nil
}

// UpdateProfile changes the actor's display name.
func (s *AccountService) UpdateProfile(ctx context.Context, actor Actor, name string) (*model.User, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := model.ValidateName(name); err != nil {
		return nil, validationError("%s", err.Error())
	}
	if err := store.UpdateUserName(ctx, s.DB, actor.ID, name); err != nil {
		return nil, err
	}
	return store.GetUser(ctx, s.DB, actor.ID)
}

// ChangePassword replaces the actor's password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	if current == "" || next == "" {
		return validationError("current and new password required")
	}
	if err := model.ValidatePassword(next); err != nil {
		return validationError("%s", err.Error())
	}

	user, err := store.GetUser(ctx, s.DB, actor.ID)
	if err != nil {
		return err
	}
	if user == nil {
		return notFound("user")
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return validationError("current password is incorrect")
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := store.UpdateUserPassword(ctx, s.DB, actor.ID, hash); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user changed own password", "user", actor.ID)
	return nil
}

// EnsureAdmin creates the bootstrap administrator if no account uses email.
// It returns the generated password, or "" if the account already existed.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email string) (string, error) {
	email = model.NormalizeEmail(email)
	existing, err := store.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", nil
	}

	password, err := auth.GeneratePassword(16)
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := store.CreateUser(ctx, s.DB, name, email, hash, model.RoleAdmin); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "admin account created", "email", email)
	return password, nil
}
