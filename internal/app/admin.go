package app

import (
	"context"
	"fmt"

	"github.com/campuscloset/marketplace/internal/domain"
)

type AdminDashboard struct {
	Users    []*domain.User
	Listings []*domain.Listing
}

// AdminDashboard lists all users and listings. Only admins may call it.
func (s *Service) AdminDashboard(ctx context.Context, id domain.Identity) (*AdminDashboard, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if !id.IsAdmin {
		return nil, domain.ErrForbidden
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	listings, err := s.listings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return &AdminDashboard{Users: users, Listings: listings}, nil
}
