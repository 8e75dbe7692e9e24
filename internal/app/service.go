package app

import (
	"fmt"
	"strings"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/campuscloset/marketplace/internal/platform/credential"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
)

// Policy is the deployment-specific signup and role configuration.
type Policy struct {
	// AllowedEmailDomain is the institutional domain without "@", e.g. "southernct.edu".
	AllowedEmailDomain string
	// AdminEmails get the admin flag at registration time.
	AdminEmails []string
	BcryptCost  int
}

// Metrics receives marketplace events. Implemented by adapter/metrics.
type Metrics interface {
	SignupAttempt(result string)
	LoginAttempt(result string)
	ListingCreated()
	FavoriteChanged(action string)
	MessageSent()
}

type noopMetrics struct{}

func (noopMetrics) SignupAttempt(string)   {}
func (noopMetrics) LoginAttempt(string)    {}
func (noopMetrics) ListingCreated()        {}
func (noopMetrics) FavoriteChanged(string) {}
func (noopMetrics) MessageSent()           {}

type Option func(*Service)

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service is the application layer: the only component that references
// several repositories.
type Service struct {
	users     domain.UserRepository
	listings  domain.ListingRepository
	favorites domain.FavoriteRepository
	messages  domain.MessageRepository
	clock     clockwork.Clock
	metrics   Metrics

	emailSuffix string
	admins      map[string]struct{}
	bcryptCost  int
	// dummyHash is verified against when an email is unknown so that login
	// timing does not depend on whether the account exists.
	dummyHash credential.Hash

	favoriteGroup singleflight.Group
}

func NewService(users domain.UserRepository, listings domain.ListingRepository, favorites domain.FavoriteRepository, messages domain.MessageRepository, policy Policy, clock clockwork.Clock, opts ...Option) (*Service, error) {
	domainName := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(policy.AllowedEmailDomain), "@"))
	if domainName == "" {
		return nil, fmt.Errorf("allowed email domain must not be empty")
	}

	cost := policy.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	dummy, err := credential.New("not-a-real-password", cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy credential: %w", err)
	}

	admins := make(map[string]struct{}, len(policy.AdminEmails))
	for _, e := range policy.AdminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}

	s := &Service{
		users:       users,
		listings:    listings,
		favorites:   favorites,
		messages:    messages,
		clock:       clock,
		metrics:     noopMetrics{},
		emailSuffix: "@" + domainName,
		admins:      admins,
		bcryptCost:  cost,
		dummyHash:   dummy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EmailSuffix is the required signup suffix including "@".
func (s *Service) EmailSuffix() string {
	return s.emailSuffix
}

func requireIdentity(id domain.Identity) error {
	if !id.Authenticated() {
		return domain.ErrUnauthenticated
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
