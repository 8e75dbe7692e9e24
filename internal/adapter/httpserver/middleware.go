package httpserver

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/campuscloset/marketplace/internal/platform/correlation"
	apperrors "github.com/campuscloset/marketplace/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

// correlationMiddleware tags the request context with an ID taken from the
// X-Request-ID header or freshly generated, and echoes it in the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.HeaderName))
		c.Response().Header().Set(correlation.HeaderName, id)
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// ErrorHandlingMiddleware turns handler errors into an error page, or a JSON
// body for clients that accept JSON. pages may be nil.
func ErrorHandlingMiddleware(pages *template.Template) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			if c.Response().Committed {
				slog.ErrorContext(c.Request().Context(), "Error after response was written", "error", err)
				return nil
			}

			var structuredErr *apperrors.Error
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				structuredErr = WrapHTTPError(httpErr)
			} else {
				structuredErr = apperrors.AsStructuredError(err)
			}
			logError(c, structuredErr)

			return writeError(c, pages, structuredErr)
		}
	}
}

func writeError(c echo.Context, pages *template.Template, appErr *apperrors.Error) error {
	status := appErr.HTTPStatus()

	if pages == nil || wantsJSON(c.Request()) {
		if err := c.JSON(status, appErr.ToResponse()); err != nil {
			return fmt.Errorf("failed to write error response: %w", err)
		}
		return nil
	}

	data := map[string]any{
		"Status":   status,
		"Title":    http.StatusText(status),
		"Message":  appErr.Message,
		"Identity": identityFrom(c),
	}
	var buf strings.Builder
	if err := pages.ExecuteTemplate(&buf, "error.html", data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to render error page", "error", err)
		if err := c.String(status, appErr.Message); err != nil {
			return fmt.Errorf("failed to write error response: %w", err)
		}
		return nil
	}
	if err := c.HTML(status, buf.String()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(userIDContextKey); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound, apperrors.TypeUnauthenticated:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeForbidden, apperrors.TypeConflict, apperrors.TypeRateLimited:
		slog.WarnContext(ctx, "Request refused", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// WrapHTTPError converts echo's errors (routing, CSRF, binding) into the
// structured form.
func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		message = msg
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthenticated
	case http.StatusForbidden:
		errType = apperrors.TypeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusTooManyRequests:
		errType = apperrors.TypeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = apperrors.TypeExternal
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}
	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}
	return err
}

// domainError maps a service error to its HTTP form. Unknown errors become
// internal errors carrying msg.
func domainError(err error, msg string) *apperrors.Error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return apperrors.ValidationError(verr.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		return apperrors.UnauthenticatedError("login required")
	case errors.Is(err, domain.ErrForbidden):
		return apperrors.ForbiddenError("unauthorized access")
	case errors.Is(err, domain.ErrListingNotFound):
		return apperrors.NotFoundError("listing not found")
	case errors.Is(err, domain.ErrMessageNotFound):
		return apperrors.NotFoundError("message not found")
	case errors.Is(err, domain.ErrRecipientNotFound), errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFoundError("user not found")
	case errors.Is(err, domain.ErrEmailTaken):
		return apperrors.ConflictError("email already registered")
	default:
		return apperrors.InternalError(msg, err)
	}
}
