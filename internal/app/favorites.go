package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/google/uuid"
)

// AddFavorite bookmarks a listing for the caller. Repeated calls for the same
// pair are no-ops. Concurrent calls for one pair within this process share a
// single lookup-and-insert.
func (s *Service) AddFavorite(ctx context.Context, id domain.Identity, listingID uuid.UUID) error {
	if err := requireIdentity(id); err != nil {
		return err
	}

	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		return err
	}

	key := id.UserID.String() + ":" + listingID.String()
	_, err, _ := s.favoriteGroup.Do(key, func() (any, error) {
		_, err := s.favorites.Find(ctx, id.UserID, listingID)
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, domain.ErrFavoriteNotFound) {
			return nil, fmt.Errorf("failed to look up favorite: %w", err)
		}

		_, err = s.favorites.Create(ctx, domain.Favorite{
			ID:        uuid.New(),
			UserID:    id.UserID,
			ListingID: listingID,
			CreatedAt: s.clock.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create favorite: %w", err)
		}
		s.metrics.FavoriteChanged("add")
		return nil, nil
	})
	return err
}

// RemoveFavorite deletes the caller's bookmark if present.
func (s *Service) RemoveFavorite(ctx context.Context, id domain.Identity, listingID uuid.UUID) error {
	if err := requireIdentity(id); err != nil {
		return err
	}

	fav, err := s.favorites.Find(ctx, id.UserID, listingID)
	if errors.Is(err, domain.ErrFavoriteNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up favorite: %w", err)
	}

	if err := s.favorites.Delete(ctx, fav.ID); err != nil && !errors.Is(err, domain.ErrFavoriteNotFound) {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	s.metrics.FavoriteChanged("remove")
	return nil
}

// ListFavorites returns the caller's favorites with their listings, newest first.
func (s *Service) ListFavorites(ctx context.Context, id domain.Identity) ([]*domain.Favorite, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	favs, err := s.favorites.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favs, nil
}

// FavoritedListingIDs is the set used to mark listing cards. Anonymous
// callers get an empty set.
func (s *Service) FavoritedListingIDs(ctx context.Context, id domain.Identity) (map[uuid.UUID]bool, error) {
	ids := make(map[uuid.UUID]bool)
	if !id.Authenticated() {
		return ids, nil
	}

	favs, err := s.favorites.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	for _, f := range favs {
		ids[f.ListingID] = true
	}
	return ids, nil
}
