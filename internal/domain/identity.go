package domain

import "github.com/google/uuid"

// Identity is the request-scoped caller. The zero value is an anonymous caller.
type Identity struct {
	UserID  uuid.UUID
	Name    string
	Email   string
	IsAdmin bool
}

func (i Identity) Authenticated() bool {
	return i.UserID != uuid.Nil
}

// IdentityOf derives the request identity from a stored user.
func IdentityOf(u *User) Identity {
	if u == nil {
		return Identity{}
	}
	return Identity{
		UserID:  u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}
}
