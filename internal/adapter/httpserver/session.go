package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/campuscloset/marketplace/internal/platform/config"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

const (
	sessionName        = "campuscloset-session"
	sessionKeyUserID   = "user_id"
	sessionKeyFlash    = "flash"
	csrfContextKey     = "csrf"
	identityContextKey = "identity"
	userIDContextKey   = "userID"
	csrfFormFieldName  = "csrf_token"
)

// sessionRegenerator is implemented by server-side stores that can drop the
// stored session and hand out a fresh ID on the next save.
type sessionRegenerator interface {
	Regenerate(ctx context.Context, session *sessions.Session) error
}

// SessionOptions are the cookie attributes shared by every session store.
func SessionOptions(cfg *config.Config) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
}

// NewCookieStore is the session store used when no Redis is configured.
func NewCookieStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = SessionOptions(cfg)
	store.MaxAge(store.Options.MaxAge)
	return store
}

func (s *Server) session(c echo.Context) (*sessions.Session, error) {
	return s.sessionStore.Get(c.Request(), sessionName)
}

func (s *Server) saveSession(c echo.Context, session *sessions.Session) error {
	return session.Save(c.Request(), c.Response().Writer)
}

// setFlash stores a one-shot message shown on the next rendered page.
func (s *Server) setFlash(c echo.Context, message string) {
	session, err := s.session(c)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to load session for flash", "error", err)
	}
	if session == nil {
		return
	}
	session.Values[sessionKeyFlash] = message
	if err := s.saveSession(c, session); err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to save flash", "error", err)
	}
}

func (s *Server) popFlash(c echo.Context) string {
	session, err := s.session(c)
	if err != nil || session == nil {
		return ""
	}
	message, ok := session.Values[sessionKeyFlash].(string)
	if !ok {
		return ""
	}
	delete(session.Values, sessionKeyFlash)
	if err := s.saveSession(c, session); err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to clear flash", "error", err)
	}
	return message
}

// startSession binds userID to a fresh session so a session ID planted
// before login is not carried over.
func (s *Server) startSession(c echo.Context, userID string) error {
	session, err := s.session(c)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Discarding unreadable session at login", "error", err)
	}
	if rg, ok := s.sessionStore.(sessionRegenerator); ok && session != nil {
		if err := rg.Regenerate(c.Request().Context(), session); err != nil {
			return err
		}
	}
	if session == nil {
		if session, err = s.sessionStore.New(c.Request(), sessionName); session == nil {
			return err
		}
	}

	for k := range session.Values {
		delete(session.Values, k)
	}
	session.Values[sessionKeyUserID] = userID
	return s.saveSession(c, session)
}

// endSession deletes the session and expires the cookie.
func (s *Server) endSession(c echo.Context) error {
	session, err := s.session(c)
	if session == nil {
		return err
	}
	for k := range session.Values {
		delete(session.Values, k)
	}
	session.Options.MaxAge = -1
	return s.saveSession(c, session)
}
