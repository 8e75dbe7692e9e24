package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Favorite struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ListingID uuid.UUID
	CreatedAt time.Time

	// Listing is populated by ListByUser.
	Listing *Listing
}

// FavoriteRepository stores bookmarks. It does not enforce uniqueness of
// (user, listing); callers check Find before Create.
type FavoriteRepository interface {
	// Find returns ErrFavoriteNotFound when the pair has no row.
	Find(ctx context.Context, userID, listingID uuid.UUID) (*Favorite, error)
	Create(ctx context.Context, f Favorite) (*Favorite, error)
	Delete(ctx context.Context, favoriteID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Favorite, error)
}
