package httpserver

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) registerAccountRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/user_profile", s.handleProfile, csrfMiddleware, s.requireAuth)
	s.echo.GET("/admin", s.handleAdmin, csrfMiddleware, s.requireAuth, s.requireAdmin)
}

func (s *Server) handleProfile(c echo.Context) error {
	profile, err := s.app.Profile(c.Request().Context(), identityFrom(c))
	if err != nil {
		return domainError(err, "failed to load profile")
	}
	return s.renderTemplate(c, "user_profile.html", map[string]any{
		"User":     profile.User,
		"Listings": profile.Listings,
	})
}

func (s *Server) handleAdmin(c echo.Context) error {
	dashboard, err := s.app.AdminDashboard(c.Request().Context(), identityFrom(c))
	if err != nil {
		return domainError(err, "failed to load admin dashboard")
	}
	return s.renderTemplate(c, "admin.html", map[string]any{
		"Users":    dashboard.Users,
		"Listings": dashboard.Listings,
	})
}
