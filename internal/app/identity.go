package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/campuscloset/marketplace/internal/platform/credential"
	"github.com/google/uuid"
)

const (
	minEmailLen    = 4
	maxNameLen     = 100
	maxEmailLen    = 120
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

func (s *Service) validateRegistration(req RegisterRequest) (name, email string, err error) {
	name = strings.TrimSpace(req.Name)
	email = normalizeEmail(req.Email)

	switch {
	case name == "":
		return "", "", domain.NewValidationError("name", "is required")
	case len(name) > maxNameLen:
		return "", "", domain.NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLen))
	case len(email) < minEmailLen:
		return "", "", domain.NewValidationError("email", fmt.Sprintf("must be at least %d characters", minEmailLen))
	case len(email) > maxEmailLen:
		return "", "", domain.NewValidationError("email", fmt.Sprintf("must be at most %d characters", maxEmailLen))
	case req.Password == "":
		return "", "", domain.NewValidationError("password", "is required")
	case len(req.Password) > maxPasswordLen:
		return "", "", domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLen))
	case req.Password != req.Confirm:
		return "", "", domain.NewValidationError("confirm", "passwords must match")
	}

	if !strings.HasSuffix(email, s.emailSuffix) || len(email) == len(s.emailSuffix) {
		return "", "", &domain.ValidationError{
			Field:   "email",
			Message: fmt.Sprintf("only %s email addresses are allowed", s.emailSuffix),
			Err:     domain.ErrEmailDomainNotAllowed,
		}
	}
	return name, email, nil
}

// Register creates a user. It returns a *domain.ValidationError for bad input
// or a foreign domain, and domain.ErrEmailTaken when the email is registered.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	name, email, err := s.validateRegistration(req)
	if err != nil {
		s.metrics.SignupAttempt("invalid")
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		s.metrics.SignupAttempt("duplicate")
		return nil, domain.ErrEmailTaken
	}

	hash, err := credential.New(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	_, isAdmin := s.admins[email]
	user, err := s.users.Create(ctx, domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    s.clock.Now().UTC(),
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		s.metrics.SignupAttempt("duplicate")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.SignupAttempt("created")
	slog.InfoContext(ctx, "User registered", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// Authenticate verifies credentials. Unknown emails and wrong passwords both
// yield domain.ErrInvalidCredentials after a full bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		s.dummyHash.Verify(password)
		s.metrics.LoginAttempt("failure")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.PasswordHash.Verify(password) {
		s.metrics.LoginAttempt("failure")
		return nil, domain.ErrInvalidCredentials
	}

	s.metrics.LoginAttempt("success")
	return user, nil
}

// ResolveIdentity loads the identity bound to a session user ID.
func (s *Service) ResolveIdentity(ctx context.Context, userID uuid.UUID) (domain.Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.IdentityOf(user), nil
}

func (s *Service) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

type Profile struct {
	User     *domain.User
	Listings []*domain.Listing
}

// Profile returns the caller's own profile and listings.
func (s *Service) Profile(ctx context.Context, id domain.Identity) (*Profile, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	listings, err := s.listings.ListByOwner(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list own listings: %w", err)
	}
	return &Profile{User: user, Listings: listings}, nil
}
