package service

import "github.com/campuslost/lostfound/internal/model"

// Actor is the resolved identity performing an operation.
type Actor struct {
	ID        int64
	Role      string
	IsBlocked bool
}

// ActorOf builds the actor for a loaded user.
func ActorOf(u *model.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, IsBlocked: u.IsBlocked}
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

func requireActive(a Actor) error {
	if a.ID == 0 {
		return unauthenticated("not authenticated")
	}
	if a.IsBlocked {
		return forbidden("your account has been blocked")
	}
	return nil
}

func requireRole(a Actor, role string) error {
	if err := requireActive(a); err != nil {
		return err
	}
	if a.Role != role {
		return forbidden("access denied: %s only", role)
	}
	return nil
}

func requireOwner(a Actor, item *model.Item, action string) error {
	if item.PostedBy != a.ID {
		return forbidden("only the item owner can %s", action)
	}
	return nil
}

func requireOwnerOrClaimant(a Actor, c *model.Claim) error {
	if c.ClaimantID == a.ID || (c.Item != nil && c.Item.PostedBy == a.ID) {
		return nil
	}
	return forbidden("you are not allowed to view this claim")
}
