package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/google/uuid"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 5000
	maxCategoryLen    = 50
	maxConditionLen   = 50
	maxImageURLLen    = 255
)

type CreateListingRequest struct {
	Title       string
	Description string
	Category    string
	Condition   string
	ImageURL    string
}

func (r CreateListingRequest) normalized() CreateListingRequest {
	return CreateListingRequest{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		Category:    strings.TrimSpace(r.Category),
		Condition:   strings.TrimSpace(r.Condition),
		ImageURL:    strings.TrimSpace(r.ImageURL),
	}
}

func validateListing(r CreateListingRequest) error {
	required := []struct {
		field string
		value string
		max   int
	}{
		{"title", r.Title, maxTitleLen},
		{"description", r.Description, maxDescriptionLen},
		{"category", r.Category, maxCategoryLen},
		{"condition", r.Condition, maxConditionLen},
	}
	for _, f := range required {
		if f.value == "" {
			return domain.NewValidationError(f.field, "is required")
		}
		if utf8.RuneCountInString(f.value) > f.max {
			return domain.NewValidationError(f.field, fmt.Sprintf("must be at most %d characters", f.max))
		}
	}
	if len(r.ImageURL) > maxImageURLLen {
		return domain.NewValidationError("image_url", fmt.Sprintf("must be at most %d characters", maxImageURLLen))
	}
	return nil
}

// CreateListing stores a listing owned by the caller. The owner's current
// display name is copied onto the listing.
func (s *Service) CreateListing(ctx context.Context, id domain.Identity, req CreateListingRequest) (*domain.Listing, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	req = req.normalized()
	if err := validateListing(req); err != nil {
		return nil, err
	}

	listing, err := s.listings.Create(ctx, domain.Listing{
		ID:          uuid.New(),
		OwnerID:     id.UserID,
		OwnerName:   id.Name,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		ImageURL:    req.ImageURL,
		CreatedAt:   s.clock.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	s.metrics.ListingCreated()
	slog.InfoContext(ctx, "Listing created", "listing_id", listing.ID, "owner_id", id.UserID)
	return listing, nil
}

// ListAll returns every listing, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*domain.Listing, error) {
	listings, err := s.listings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// GetListing returns domain.ErrListingNotFound for unknown IDs.
func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	return s.listings.GetByID(ctx, listingID)
}

type ListingDetail struct {
	Listing *domain.Listing
	// Owner is nil if the owning account no longer resolves.
	Owner     *domain.User
	Favorited bool
}

func (s *Service) ListingDetail(ctx context.Context, id domain.Identity, listingID uuid.UUID) (*ListingDetail, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	detail := &ListingDetail{Listing: listing}

	owner, err := s.users.GetByID(ctx, listing.OwnerID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		slog.WarnContext(ctx, "Listing owner not found", "listing_id", listing.ID, "owner_id", listing.OwnerID)
	case err != nil:
		return nil, fmt.Errorf("failed to load listing owner: %w", err)
	default:
		detail.Owner = owner
	}

	if id.Authenticated() {
		_, err := s.favorites.Find(ctx, id.UserID, listingID)
		switch {
		case err == nil:
			detail.Favorited = true
		case !errors.Is(err, domain.ErrFavoriteNotFound):
			return nil, fmt.Errorf("failed to check favorite: %w", err)
		}
	}
	return detail, nil
}
