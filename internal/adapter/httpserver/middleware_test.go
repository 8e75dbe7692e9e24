package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/campuscloset/marketplace/internal/platform/correlation"
	apperrors "github.com/campuscloset/marketplace/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareWithStructuredError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware(nil)(func(c echo.Context) error {
		return apperrors.ValidationError("invalid input")
	})

	err := handler(c)
	require.NoError(t, err) // the middleware writes the error instead of returning it

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

func TestMiddlewareWithStandardError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware(nil)(func(c echo.Context) error {
		return errors.New("standard error")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, apperrors.TypeInternal, resp.Type)
}

func TestMiddlewareWithNoError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware(nil)(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", rec.Body.String())
}

func TestMiddlewareWithContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(userIDContextKey, "user-1")

	handler := ErrorHandlingMiddleware(nil)(func(c echo.Context) error {
		return apperrors.NotFoundError("listing not found").
			WithField("listing_id", "123")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "listing not found", resp.Error)
	assert.Equal(t, apperrors.TypeNotFound, resp.Type)
	assert.Equal(t, map[string]any{"listing_id": "123"}, resp.Context)
}

func TestMiddlewareRendersErrorPage(t *testing.T) {
	pages := template.Must(template.New("error.html").Parse(`{{.Status}} {{.Title}}: {{.Message}}`))

	tests := []struct {
		name     string
		accept   string
		wantBody string
		wantJSON bool
	}{
		{name: "browser", accept: "text/html,application/xhtml+xml", wantBody: "403 Forbidden: unauthorized access"},
		{name: "no accept header", wantBody: "403 Forbidden: unauthorized access"},
		{name: "json client", accept: "application/json", wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.accept != "" {
				req.Header.Set(echo.HeaderAccept, tt.accept)
			}
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			handler := ErrorHandlingMiddleware(pages)(func(echo.Context) error {
				return domainError(domain.ErrForbidden, "unused")
			})
			require.NoError(t, handler(c))

			assert.Equal(t, http.StatusForbidden, rec.Code)
			if tt.wantJSON {
				assert.JSONEq(t, `{"error":"unauthorized access","type":"forbidden"}`, rec.Body.String())
				return
			}
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestMiddlewareAfterCommittedResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	handler := ErrorHandlingMiddleware(nil)(func(c echo.Context) error {
		_ = c.String(http.StatusOK, "partial")
		return errors.New("late failure")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestMiddlewareAllErrorTypes(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperrors.Error
		wantStatus int
		wantType   apperrors.ErrorType
	}{
		{"validation", apperrors.ValidationError("invalid"), http.StatusBadRequest, apperrors.TypeValidation},
		{"unauthenticated", apperrors.UnauthenticatedError("login"), http.StatusUnauthorized, apperrors.TypeUnauthenticated},
		{"forbidden", apperrors.ForbiddenError("no"), http.StatusForbidden, apperrors.TypeForbidden},
		{"not_found", apperrors.NotFoundError("missing"), http.StatusNotFound, apperrors.TypeNotFound},
		{"conflict", apperrors.ConflictError("duplicate"), http.StatusConflict, apperrors.TypeConflict},
		{"rate_limited", apperrors.RateLimitedError("slow down"), http.StatusTooManyRequests, apperrors.TypeRateLimited},
		{"internal", apperrors.InternalError("failed", errors.New("cause")), http.StatusInternalServerError, apperrors.TypeInternal},
		{"external", apperrors.ExternalError("redis failed", errors.New("timeout")), http.StatusBadGateway, apperrors.TypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			handler := ErrorHandlingMiddleware(nil)(func(c echo.Context) error {
				return tt.err
			})
			require.NoError(t, handler(c))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantType, resp.Type)
		})
	}
}

func TestDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType apperrors.ErrorType
	}{
		{"validation", domain.NewValidationError("title", "is required"), apperrors.TypeValidation},
		{"wrapped validation", fmt.Errorf("create: %w", domain.NewValidationError("body", "too long")), apperrors.TypeValidation},
		{"unauthenticated", domain.ErrUnauthenticated, apperrors.TypeUnauthenticated},
		{"forbidden", domain.ErrForbidden, apperrors.TypeForbidden},
		{"listing", domain.ErrListingNotFound, apperrors.TypeNotFound},
		{"message", domain.ErrMessageNotFound, apperrors.TypeNotFound},
		{"recipient", domain.ErrRecipientNotFound, apperrors.TypeNotFound},
		{"user", domain.ErrUserNotFound, apperrors.TypeNotFound},
		{"email taken", domain.ErrEmailTaken, apperrors.TypeConflict},
		{"unknown", errors.New("boom"), apperrors.TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domainError(tt.err, "operation failed")
			assert.Equal(t, tt.wantType, got.Type)
		})
	}

	internal := domainError(errors.New("boom"), "operation failed")
	assert.Equal(t, "operation failed", internal.Message)
	assert.EqualError(t, internal.Cause, "boom")
}

func TestCorrelationMiddleware(t *testing.T) {
	handler := correlationMiddleware(func(c echo.Context) error {
		id, ok := correlation.ID(c.Request().Context())
		require.True(t, ok)
		return c.String(http.StatusOK, id)
	})

	t.Run("generates an ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		require.NoError(t, handler(c))
		assert.NotEmpty(t, rec.Body.String())
		assert.Equal(t, rec.Body.String(), rec.Header().Get(correlation.HeaderName))
	})

	t.Run("keeps inbound ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlation.HeaderName, "abc-123")
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(req, rec)

		require.NoError(t, handler(c))
		assert.Equal(t, "abc-123", rec.Body.String())
		assert.Equal(t, "abc-123", rec.Header().Get(correlation.HeaderName))
	})
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		httpErr    *echo.HTTPError
		wantType   apperrors.ErrorType
		wantStatus int
	}{
		{"bad_request", echo.NewHTTPError(http.StatusBadRequest, "missing csrf token"), apperrors.TypeValidation, http.StatusBadRequest},
		{"unauthorized", echo.NewHTTPError(http.StatusUnauthorized), apperrors.TypeUnauthenticated, http.StatusUnauthorized},
		{"forbidden", echo.NewHTTPError(http.StatusForbidden, "invalid csrf token"), apperrors.TypeForbidden, http.StatusForbidden},
		{"not_found", echo.ErrNotFound, apperrors.TypeNotFound, http.StatusNotFound},
		{"method_not_allowed", echo.ErrMethodNotAllowed, apperrors.TypeNotFound, http.StatusNotFound},
		{"conflict", echo.NewHTTPError(http.StatusConflict, "conflict"), apperrors.TypeConflict, http.StatusConflict},
		{"too_many_requests", echo.ErrTooManyRequests, apperrors.TypeRateLimited, http.StatusTooManyRequests},
		{"bad_gateway", echo.NewHTTPError(http.StatusBadGateway, "bad gateway"), apperrors.TypeExternal, http.StatusBadGateway},
		{"service_unavailable", echo.NewHTTPError(http.StatusServiceUnavailable, "unavailable"), apperrors.TypeExternal, http.StatusBadGateway},
		{"internal_server_error", echo.NewHTTPError(http.StatusInternalServerError, "internal error"), apperrors.TypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapHTTPError(tt.httpErr)

			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantStatus, err.HTTPStatus())
		})
	}
}

func TestWrapHTTPErrorWithInternalCause(t *testing.T) {
	cause := errors.New("underlying cause")
	httpErr := echo.NewHTTPError(http.StatusInternalServerError, "wrapped")
	httpErr.Internal = cause

	err := WrapHTTPError(httpErr)

	assert.Equal(t, apperrors.TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
}

func TestWrapHTTPErrorWithNonStringMessage(t *testing.T) {
	httpErr := &echo.HTTPError{Code: http.StatusBadRequest, Message: 12345}

	err := WrapHTTPError(httpErr)

	assert.Equal(t, "Bad Request", err.Message)
	assert.Equal(t, apperrors.TypeValidation, err.Type)
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, newGetRequest("/no/such/page"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Error 404: Not Found", rec.Body.String())
}
