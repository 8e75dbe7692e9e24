package httpserver

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/campuscloset/marketplace/internal/app"
	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/campuscloset/marketplace/internal/platform/config"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockAppService struct {
	registerFn            func(ctx context.Context, req app.RegisterRequest) (*domain.User, error)
	authenticateFn        func(ctx context.Context, email, password string) (*domain.User, error)
	resolveIdentityFn     func(ctx context.Context, userID uuid.UUID) (domain.Identity, error)
	profileFn             func(ctx context.Context, id domain.Identity) (*app.Profile, error)
	createListingFn       func(ctx context.Context, id domain.Identity, req app.CreateListingRequest) (*domain.Listing, error)
	listAllFn             func(ctx context.Context) ([]*domain.Listing, error)
	listingDetailFn       func(ctx context.Context, id domain.Identity, listingID uuid.UUID) (*app.ListingDetail, error)
	addFavoriteFn         func(ctx context.Context, id domain.Identity, listingID uuid.UUID) error
	removeFavoriteFn      func(ctx context.Context, id domain.Identity, listingID uuid.UUID) error
	listFavoritesFn       func(ctx context.Context, id domain.Identity) ([]*domain.Favorite, error)
	favoritedListingIDsFn func(ctx context.Context, id domain.Identity) (map[uuid.UUID]bool, error)
	recipientFn           func(ctx context.Context, id domain.Identity, receiverID uuid.UUID) (*domain.User, error)
	sendMessageFn         func(ctx context.Context, id domain.Identity, receiverID uuid.UUID, body string) (*domain.Message, error)
	inboxFn               func(ctx context.Context, id domain.Identity) ([]*domain.Message, error)
	sentFn                func(ctx context.Context, id domain.Identity) ([]*domain.Message, error)
	getMessageFn          func(ctx context.Context, id domain.Identity, messageID uuid.UUID) (*domain.Message, error)
	adminDashboardFn      func(ctx context.Context, id domain.Identity) (*app.AdminDashboard, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockAppService) EmailSuffix() string {
	return "@southernct.edu"
}

func (m *mockAppService) Register(ctx context.Context, req app.RegisterRequest) (*domain.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *mockAppService) ResolveIdentity(ctx context.Context, userID uuid.UUID) (domain.Identity, error) {
	if m.resolveIdentityFn != nil {
		return m.resolveIdentityFn(ctx, userID)
	}
	return domain.Identity{}, domain.ErrUserNotFound
}

func (m *mockAppService) Profile(ctx context.Context, id domain.Identity) (*app.Profile, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) CreateListing(ctx context.Context, id domain.Identity, req app.CreateListingRequest) (*domain.Listing, error) {
	if m.createListingFn != nil {
		return m.createListingFn(ctx, id, req)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) ListAll(ctx context.Context) ([]*domain.Listing, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockAppService) ListingDetail(ctx context.Context, id domain.Identity, listingID uuid.UUID) (*app.ListingDetail, error) {
	if m.listingDetailFn != nil {
		return m.listingDetailFn(ctx, id, listingID)
	}
	return nil, domain.ErrListingNotFound
}

func (m *mockAppService) AddFavorite(ctx context.Context, id domain.Identity, listingID uuid.UUID) error {
	if m.addFavoriteFn != nil {
		return m.addFavoriteFn(ctx, id, listingID)
	}
	return nil
}

func (m *mockAppService) RemoveFavorite(ctx context.Context, id domain.Identity, listingID uuid.UUID) error {
	if m.removeFavoriteFn != nil {
		return m.removeFavoriteFn(ctx, id, listingID)
	}
	return nil
}

func (m *mockAppService) ListFavorites(ctx context.Context, id domain.Identity) ([]*domain.Favorite, error) {
	if m.listFavoritesFn != nil {
		return m.listFavoritesFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAppService) FavoritedListingIDs(ctx context.Context, id domain.Identity) (map[uuid.UUID]bool, error) {
	if m.favoritedListingIDsFn != nil {
		return m.favoritedListingIDsFn(ctx, id)
	}
	return map[uuid.UUID]bool{}, nil
}

func (m *mockAppService) Recipient(ctx context.Context, id domain.Identity, receiverID uuid.UUID) (*domain.User, error) {
	if m.recipientFn != nil {
		return m.recipientFn(ctx, id, receiverID)
	}
	return nil, domain.ErrRecipientNotFound
}

func (m *mockAppService) SendMessage(ctx context.Context, id domain.Identity, receiverID uuid.UUID, body string) (*domain.Message, error) {
	if m.sendMessageFn != nil {
		return m.sendMessageFn(ctx, id, receiverID, body)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) Inbox(ctx context.Context, id domain.Identity) ([]*domain.Message, error) {
	if m.inboxFn != nil {
		return m.inboxFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAppService) Sent(ctx context.Context, id domain.Identity) ([]*domain.Message, error) {
	if m.sentFn != nil {
		return m.sentFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAppService) GetMessage(ctx context.Context, id domain.Identity, messageID uuid.UUID) (*domain.Message, error) {
	if m.getMessageFn != nil {
		return m.getMessageFn(ctx, id, messageID)
	}
	return nil, domain.ErrMessageNotFound
}

func (m *mockAppService) AdminDashboard(ctx context.Context, id domain.Identity) (*app.AdminDashboard, error) {
	if m.adminDashboardFn != nil {
		return m.adminDashboardFn(ctx, id)
	}
	return nil, errNotImplemented
}

// resolves returns a resolveIdentityFn that knows exactly the given identities.
func resolves(ids ...domain.Identity) func(context.Context, uuid.UUID) (domain.Identity, error) {
	return func(_ context.Context, userID uuid.UUID) (domain.Identity, error) {
		for _, id := range ids {
			if id.UserID == userID {
				return id, nil
			}
		}
		return domain.Identity{}, domain.ErrUserNotFound
	}
}

// --- Test helpers ---

const testCSRFToken = "test-csrf-token"

var testTemplates = map[string]string{
	"landing.html":             `Landing`,
	"home.html":                `Home{{range .Listings}} [{{.Title}}{{if index $.Favorited .ID}} *{{end}}]{{end}}{{with .Flash}} flash={{.}}{{end}}`,
	"signup.html":              `Signup{{with .Flash}} flash={{.}}{{end}}{{with .Email}} email={{.}}{{end}}`,
	"login.html":               `Login csrf={{.CSRFToken}}{{with .Flash}} flash={{.}}{{end}}`,
	"create_item_listing.html": `Create{{with .Flash}} flash={{.}}{{end}}{{with .Form}} title={{.Title}}{{end}}`,
	"view_listing.html":        `Listing {{.Listing.Title}} by {{.Listing.OwnerName}} favorited={{.Favorited}}{{with .Owner}} owner={{.ID}}{{end}}`,
	"favorites.html":           `Favorites{{range .Favorites}} [{{.Listing.Title}}]{{end}}`,
	"messages.html":            `Inbox{{range .Inbox}} [{{.Body}}]{{end}} Sent{{range .Sent}} [{{.Body}}]{{end}}{{with .Flash}} flash={{.}}{{end}}`,
	"message_user.html":        `Message {{.Recipient.Name}}{{with .Flash}} flash={{.}}{{end}}`,
	"view_message.html":        `From {{.Message.SenderName}}: {{.Message.Body}}`,
	"user_profile.html":        `Profile {{.User.Name}}{{range .Listings}} [{{.Title}}]{{end}}`,
	"admin.html":               `Admin users={{len .Users}} listings={{len .Listings}}`,
	"error.html":               `Error {{.Status}}: {{.Message}}`,
}

func newTestServer(t *testing.T, app appService, opts ...Option) *Server {
	t.Helper()

	tmpl := template.New("").Funcs(templateFuncs)
	for name, text := range testTemplates {
		template.Must(tmpl.New(name).Parse(text))
	}

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	srv := &Server{
		echo: echo.New(),
		config: &config.Config{
			SessionMaxAge: time.Hour,
			AuthRateLimit: 100,
			AuthRateBurst: 100,
		},
		app:          app,
		sessionStore: store,
		templates:    tmpl,
		startTime:    time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

// sessionCookies returns the cookies of a session bound to userID.
func sessionCookies(t *testing.T, srv *Server, userID uuid.UUID) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyUserID] = userID.String()
	require.NoError(t, session.Save(req, rec))
	return rec.Result().Cookies()
}

func newGetRequest(target string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// newFormRequest builds a POST carrying a valid CSRF token pair.
func newFormRequest(target string, form url.Values, cookies ...*http.Cookie) *http.Request {
	if form == nil {
		form = url.Values{}
	}
	form.Set(csrfFormFieldName, testCSRFToken)

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

// lastCookie returns the final Set-Cookie for name, as a browser would keep it.
func lastCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

// sessionValues decodes the session left behind by a response.
func sessionValues(t *testing.T, srv *Server, rec *httptest.ResponseRecorder) map[any]any {
	t.Helper()
	cookie := lastCookie(rec, sessionName)
	require.NotNil(t, cookie, "response should set the session cookie")

	req := newGetRequest("/", cookie)
	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	return session.Values
}

func flashOf(t *testing.T, srv *Server, rec *httptest.ResponseRecorder) string {
	t.Helper()
	flash, _ := sessionValues(t, srv, rec)[sessionKeyFlash].(string)
	return flash
}
