package httpserver

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/campuscloset/marketplace/internal/app"
	"github.com/campuscloset/marketplace/internal/domain"
	apperrors "github.com/campuscloset/marketplace/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerListingRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/home", s.handleHome, csrfMiddleware, s.loadIdentity)
	s.echo.GET("/create_item_listing", s.handleCreateListingPage, csrfMiddleware, s.requireAuth)
	s.echo.POST("/create_item_listing", s.handleCreateListing, csrfMiddleware, s.requireAuth)
	s.echo.GET("/view_listing/:id", s.handleViewListing, csrfMiddleware, s.loadIdentity)
}

func (s *Server) registerFavoriteRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.POST("/favorite/:listingID", s.handleFavorite, csrfMiddleware, s.requireAuth)
	s.echo.POST("/unfavorite/:listingID", s.handleUnfavorite, csrfMiddleware, s.requireAuth)
	s.echo.GET("/favorites", s.handleFavorites, csrfMiddleware, s.requireAuth)
}

func (s *Server) handleHome(c echo.Context) error {
	ctx := c.Request().Context()

	listings, err := s.app.ListAll(ctx)
	if err != nil {
		return apperrors.InternalError("failed to list listings", err)
	}
	favorited, err := s.app.FavoritedListingIDs(ctx, identityFrom(c))
	if err != nil {
		return apperrors.InternalError("failed to load favorites", err)
	}

	return s.renderTemplate(c, "home.html", map[string]any{
		"Listings":  listings,
		"Favorited": favorited,
	})
}

func (s *Server) handleCreateListingPage(c echo.Context) error {
	return s.renderTemplate(c, "create_item_listing.html", nil)
}

func (s *Server) handleCreateListing(c echo.Context) error {
	req := app.CreateListingRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		Condition:   c.FormValue("condition"),
		ImageURL:    c.FormValue("image_url"),
	}

	_, err := s.app.CreateListing(c.Request().Context(), identityFrom(c), req)
	if domain.IsValidation(err) {
		return s.render(c, http.StatusBadRequest, "create_item_listing.html", map[string]any{
			"Flash": err.Error(),
			"Form":  req,
		})
	}
	if err != nil {
		return domainError(err, "failed to create listing")
	}
	return redirect(c, "/home")
}

func (s *Server) handleViewListing(c echo.Context) error {
	listingID, err := pathUUID(c, "id", "listing")
	if err != nil {
		return err
	}

	detail, err := s.app.ListingDetail(c.Request().Context(), identityFrom(c), listingID)
	if err != nil {
		return domainError(err, "failed to load listing")
	}

	return s.renderTemplate(c, "view_listing.html", map[string]any{
		"Listing":   detail.Listing,
		"Owner":     detail.Owner,
		"Favorited": detail.Favorited,
	})
}

func (s *Server) handleFavorite(c echo.Context) error {
	listingID, err := pathUUID(c, "listingID", "listing")
	if err != nil {
		return err
	}
	if err := s.app.AddFavorite(c.Request().Context(), identityFrom(c), listingID); err != nil {
		return domainError(err, "failed to add favorite")
	}
	return redirect(c, refererOr(c, "/home"))
}

func (s *Server) handleUnfavorite(c echo.Context) error {
	listingID, err := pathUUID(c, "listingID", "listing")
	if err != nil {
		return err
	}
	if err := s.app.RemoveFavorite(c.Request().Context(), identityFrom(c), listingID); err != nil {
		return domainError(err, "failed to remove favorite")
	}
	return redirect(c, refererOr(c, "/favorites"))
}

func (s *Server) handleFavorites(c echo.Context) error {
	favorites, err := s.app.ListFavorites(c.Request().Context(), identityFrom(c))
	if err != nil {
		return domainError(err, "failed to list favorites")
	}
	return s.renderTemplate(c, "favorites.html", map[string]any{
		"Favorites": favorites,
	})
}

// pathUUID parses a UUID path parameter. Malformed IDs are reported as a
// missing resource.
func pathUUID(c echo.Context, param, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, apperrors.NotFoundError(resource + " not found")
	}
	return id, nil
}

// refererOr returns the same-origin path of the Referer header, or fallback
// when the header is missing or points elsewhere.
func refererOr(c echo.Context, fallback string) string {
	ref := c.Request().Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Request().Host) {
		return fallback
	}

	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || strings.HasPrefix(u.Path, "/\\") {
		return fallback
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
