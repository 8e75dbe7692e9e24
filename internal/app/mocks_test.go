package app

import (
	"context"
	"sort"
	"sync"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/google/uuid"
)

// --- In-memory repositories ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
	err   error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.users[u.ID] = u
	return &u, nil
}

func (r *memUserRepo) GetByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == domain.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type memListingRepo struct {
	mu       sync.Mutex
	listings []domain.Listing
}

func (r *memListingRepo) Create(_ context.Context, l domain.Listing) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings = append(r.listings, l)
	return &l, nil
}

func (r *memListingRepo) GetByID(_ context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listings {
		if l.ID == listingID {
			return &l, nil
		}
	}
	return nil, domain.ErrListingNotFound
}

func (r *memListingRepo) List(_ context.Context) ([]*domain.Listing, error) {
	return r.filter(func(domain.Listing) bool { return true }), nil
}

func (r *memListingRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Listing, error) {
	return r.filter(func(l domain.Listing) bool { return l.OwnerID == ownerID }), nil
}

func (r *memListingRepo) filter(keep func(domain.Listing) bool) []*domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Listing
	for i := len(r.listings) - 1; i >= 0; i-- {
		if l := r.listings[i]; keep(l) {
			out = append(out, &l)
		}
	}
	return out
}

type memFavoriteRepo struct {
	mu        sync.Mutex
	favorites []domain.Favorite
	listings  *memListingRepo
	creates   int
}

func (r *memFavoriteRepo) Find(_ context.Context, userID, listingID uuid.UUID) (*domain.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.favorites {
		if f.UserID == userID && f.ListingID == listingID {
			return &f, nil
		}
	}
	return nil, domain.ErrFavoriteNotFound
}

func (r *memFavoriteRepo) Create(_ context.Context, f domain.Favorite) (*domain.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	r.favorites = append(r.favorites, f)
	return &f, nil
}

func (r *memFavoriteRepo) Delete(_ context.Context, favoriteID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.favorites {
		if f.ID == favoriteID {
			r.favorites = append(r.favorites[:i], r.favorites[i+1:]...)
			return nil
		}
	}
	return domain.ErrFavoriteNotFound
}

func (r *memFavoriteRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Favorite, error) {
	r.mu.Lock()
	var out []*domain.Favorite
	for i := len(r.favorites) - 1; i >= 0; i-- {
		if f := r.favorites[i]; f.UserID == userID {
			out = append(out, &f)
		}
	}
	r.mu.Unlock()

	for _, f := range out {
		l, err := r.listings.GetByID(ctx, f.ListingID)
		if err != nil {
			return nil, err
		}
		f.Listing = l
	}
	return out, nil
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (r *memMessageRepo) Create(_ context.Context, m domain.Message) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return &m, nil
}

func (r *memMessageRepo) GetByID(_ context.Context, messageID uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == messageID {
			return &m, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (r *memMessageRepo) ListByReceiver(_ context.Context, receiverID uuid.UUID) ([]*domain.Message, error) {
	return r.newestFirst(func(m domain.Message) bool { return m.ReceiverID == receiverID }), nil
}

func (r *memMessageRepo) ListBySender(_ context.Context, senderID uuid.UUID) ([]*domain.Message, error) {
	return r.newestFirst(func(m domain.Message) bool { return m.SenderID == senderID }), nil
}

func (r *memMessageRepo) newestFirst(keep func(domain.Message) bool) []*domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if keep(m) {
			out = append(out, &m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out
}

// --- Metrics recorder ---

type recordingMetrics struct {
	mu      sync.Mutex
	signups map[string]int
	logins  map[string]int
	events  []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{signups: map[string]int{}, logins: map[string]int{}}
}

func (m *recordingMetrics) SignupAttempt(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signups[result]++
}

func (m *recordingMetrics) LoginAttempt(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[result]++
}

func (m *recordingMetrics) ListingCreated() { m.record("listing") }

func (m *recordingMetrics) FavoriteChanged(action string) { m.record("favorite_" + action) }

func (m *recordingMetrics) MessageSent() { m.record("message") }

func (m *recordingMetrics) record(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}
