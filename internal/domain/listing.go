package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Listing is an item offered by a user. OwnerName is the owner's display name
// at creation time and is never resynchronized.
type Listing struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	OwnerName   string
	Title       string
	Description string
	Category    string
	Condition   string
	ImageURL    string
	CreatedAt   time.Time
}

type ListingRepository interface {
	Create(ctx context.Context, l Listing) (*Listing, error)
	GetByID(ctx context.Context, listingID uuid.UUID) (*Listing, error)
	List(ctx context.Context) ([]*Listing, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Listing, error)
}
