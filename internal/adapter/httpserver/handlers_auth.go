package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/campuscloset/marketplace/internal/app"
	"github.com/campuscloset/marketplace/internal/domain"
	apperrors "github.com/campuscloset/marketplace/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	flashLoginRequired      = "Please log in to access this page."
	flashInvalidCredentials = "Invalid username or password."
	flashUnauthorized       = "Unauthorized access."
	flashAccountCreated     = "Account created. Please log in."
	flashEmailTaken         = "An account with that email already exists. Please log in."
)

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/signup", s.handleSignupPage, rateLimiter, csrfMiddleware, s.loadIdentity)
	s.echo.POST("/signup", s.handleSignup, rateLimiter, csrfMiddleware, s.loadIdentity)
	s.echo.GET("/login", s.handleLoginPage, rateLimiter, csrfMiddleware, s.loadIdentity)
	s.echo.POST("/login", s.handleLogin, rateLimiter, csrfMiddleware, s.loadIdentity)
	s.echo.GET("/logout", s.handleLogout, s.requireAuth)
}

func (s *Server) handleLanding(c echo.Context) error {
	if identityFrom(c).Authenticated() {
		return redirect(c, "/home")
	}
	return s.renderTemplate(c, "landing.html", nil)
}

// loadIdentity resolves the session identity if there is one and continues
// anonymously otherwise.
func (s *Server) loadIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := s.sessionIdentity(c)
		if err != nil {
			return err
		}
		setIdentity(c, id)
		return next(c)
	}
}

// requireAuth sends anonymous callers to the login page.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := s.sessionIdentity(c)
		if err != nil {
			return err
		}
		if !id.Authenticated() {
			s.setFlash(c, flashLoginRequired)
			return redirect(c, "/login")
		}
		setIdentity(c, id)
		return next(c)
	}
}

// requireAdmin must run after requireAuth.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !identityFrom(c).IsAdmin {
			s.setFlash(c, flashUnauthorized)
			return redirect(c, "/home")
		}
		return next(c)
	}
}

// sessionIdentity resolves the user bound to the session. A session whose
// user no longer exists is invalidated and yields an anonymous identity.
func (s *Server) sessionIdentity(c echo.Context) (domain.Identity, error) {
	ctx := c.Request().Context()

	session, err := s.session(c)
	if err != nil || session == nil {
		return domain.Identity{}, nil
	}
	raw, ok := session.Values[sessionKeyUserID].(string)
	if !ok {
		return domain.Identity{}, nil
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return domain.Identity{}, nil
	}

	id, err := s.app.ResolveIdentity(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		slog.WarnContext(ctx, "Session references unknown user, invalidating", "user_id", userID)
		if err := s.endSession(c); err != nil {
			slog.WarnContext(ctx, "Failed to invalidate stale session", "error", err)
		}
		return domain.Identity{}, nil
	}
	if err != nil {
		return domain.Identity{}, apperrors.InternalError("failed to resolve session", err)
	}
	return id, nil
}

func setIdentity(c echo.Context, id domain.Identity) {
	c.Set(identityContextKey, id)
	if id.Authenticated() {
		c.Set(userIDContextKey, id.UserID.String())
	}
}

// identityFrom returns the request identity, anonymous when none was loaded.
func identityFrom(c echo.Context) domain.Identity {
	id, _ := c.Get(identityContextKey).(domain.Identity)
	return id
}

func (s *Server) handleSignupPage(c echo.Context) error {
	return s.renderTemplate(c, "signup.html", map[string]any{
		"EmailSuffix": s.app.EmailSuffix(),
	})
}

func (s *Server) handleSignup(c echo.Context) error {
	req := app.RegisterRequest{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
		Confirm:  c.FormValue("confirm_password"),
	}

	_, err := s.app.Register(c.Request().Context(), req)
	var verr *domain.ValidationError
	switch {
	case err == nil:
		s.setFlash(c, flashAccountCreated)
		return redirect(c, "/login")
	case errors.Is(err, domain.ErrEmailTaken):
		s.setFlash(c, flashEmailTaken)
		return redirect(c, "/login")
	case errors.Is(err, domain.ErrEmailDomainNotAllowed):
		return s.renderSignupError(c, req, "Only "+s.app.EmailSuffix()+" email addresses are allowed.")
	case errors.As(err, &verr):
		return s.renderSignupError(c, req, verr.Error())
	default:
		return apperrors.InternalError("failed to register user", err)
	}
}

func (s *Server) renderSignupError(c echo.Context, req app.RegisterRequest, flash string) error {
	return s.render(c, http.StatusBadRequest, "signup.html", map[string]any{
		"EmailSuffix": s.app.EmailSuffix(),
		"Flash":       flash,
		"Name":        req.Name,
		"Email":       req.Email,
	})
}

func (s *Server) handleLoginPage(c echo.Context) error {
	return s.renderTemplate(c, "login.html", nil)
}

func (s *Server) handleLogin(c echo.Context) error {
	user, err := s.app.Authenticate(c.Request().Context(), c.FormValue("email"), c.FormValue("password"))
	if errors.Is(err, domain.ErrInvalidCredentials) {
		s.setFlash(c, flashInvalidCredentials)
		return redirect(c, "/login")
	}
	if err != nil {
		return apperrors.InternalError("failed to authenticate", err)
	}

	if err := s.startSession(c, user.ID.String()); err != nil {
		return apperrors.InternalError("failed to start session", err)
	}
	slog.InfoContext(c.Request().Context(), "User logged in", "user_id", user.ID)
	return redirect(c, "/home")
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.endSession(c); err != nil {
		return apperrors.InternalError("failed to end session", err)
	}
	return redirect(c, "/home")
}
