package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/campuscloset/marketplace/internal/app"
	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/campuscloset/marketplace/internal/platform/config"
	"github.com/campuscloset/marketplace/web"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

type appService interface {
	EmailSuffix() string
	Register(ctx context.Context, req app.RegisterRequest) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	ResolveIdentity(ctx context.Context, userID uuid.UUID) (domain.Identity, error)
	Profile(ctx context.Context, id domain.Identity) (*app.Profile, error)

	CreateListing(ctx context.Context, id domain.Identity, req app.CreateListingRequest) (*domain.Listing, error)
	ListAll(ctx context.Context) ([]*domain.Listing, error)
	ListingDetail(ctx context.Context, id domain.Identity, listingID uuid.UUID) (*app.ListingDetail, error)

	AddFavorite(ctx context.Context, id domain.Identity, listingID uuid.UUID) error
	RemoveFavorite(ctx context.Context, id domain.Identity, listingID uuid.UUID) error
	ListFavorites(ctx context.Context, id domain.Identity) ([]*domain.Favorite, error)
	FavoritedListingIDs(ctx context.Context, id domain.Identity) (map[uuid.UUID]bool, error)

	Recipient(ctx context.Context, id domain.Identity, receiverID uuid.UUID) (*domain.User, error)
	SendMessage(ctx context.Context, id domain.Identity, receiverID uuid.UUID, body string) (*domain.Message, error)
	Inbox(ctx context.Context, id domain.Identity) ([]*domain.Message, error)
	Sent(ctx context.Context, id domain.Identity) ([]*domain.Message, error)
	GetMessage(ctx context.Context, id domain.Identity, messageID uuid.UUID) (*domain.Message, error)

	AdminDashboard(ctx context.Context, id domain.Identity) (*app.AdminDashboard, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app appService

	templates    *template.Template
	sessionStore sessions.Store
	healthChecks []HealthCheck
	startTime    time.Time

	metricsHandler    http.Handler
	metricsMiddleware echo.MiddlewareFunc
}

type Option func(*Server)

// WithHealthChecks sets the checks run by /health/startup and /health/ready.
func WithHealthChecks(checks ...HealthCheck) Option {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// WithMetrics exposes handler on /metrics and records requests with mw.
func WithMetrics(handler http.Handler, mw echo.MiddlewareFunc) Option {
	return func(s *Server) {
		s.metricsHandler = handler
		s.metricsMiddleware = mw
	}
}

func NewServer(cfg *config.Config, app appService, store sessions.Store, opts ...Option) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		templates:    templates,
		sessionStore: store,
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()
	return srv, nil
}

func parseTemplates() (*template.Template, error) {
	templates, err := template.New("").Funcs(templateFuncs).ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return templates, nil
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("Jan 2, 2006 3:04 PM")
	},
	// dict builds the argument map for sub-templates: dict "Key" value ...
	"dict": func(pairs ...any) (map[string]any, error) {
		if len(pairs)%2 != 0 {
			return nil, fmt.Errorf("dict expects key/value pairs, got %d arguments", len(pairs))
		}
		m := make(map[string]any, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
			}
			m[key] = pairs[i+1]
		}
		return m, nil
	},
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) renderTemplate(c echo.Context, name string, data map[string]any) error {
	return s.render(c, http.StatusOK, name, data)
}

// render executes a page template with the common page fields (identity,
// flash message, CSRF token) merged into data.
func (s *Server) render(c echo.Context, status int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	data["Identity"] = identityFrom(c)
	data["CSRFToken"] = c.Get(csrfContextKey)
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = s.popFlash(c)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "template", name, "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(status, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func redirect(c echo.Context, to string) error {
	if err := c.Redirect(http.StatusFound, to); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}
