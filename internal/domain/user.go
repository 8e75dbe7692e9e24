package domain

import (
	"context"
	"time"

	"github.com/campuscloset/marketplace/internal/platform/credential"
	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash credential.Hash
	IsAdmin      bool
	CreatedAt    time.Time

	// Profile metadata. Not collected at signup; shown on the profile page.
	Major          string
	Interests      string
	ProfilePicture string
}

type UserRepository interface {
	// Create returns ErrEmailTaken when the email is already stored.
	Create(ctx context.Context, u User) (*User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]*User, error)
}
