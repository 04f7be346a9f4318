package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var ae *domain.AuthError
	if errors.As(err, &ae) {
		return authStatus(ae.Kind), ae.Message()
	}

	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not authenticated"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, domain.ErrFileTooLarge.Error()
	case errors.Is(err, domain.ErrNotImage):
		return http.StatusUnsupportedMediaType, domain.ErrNotImage.Error()
	case errors.Is(err, domain.ErrInvalidRecord), errors.Is(err, domain.ErrUnknownField):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusNotImplemented, domain.ErrProviderUnavailable.Error()
	case errors.Is(err, domain.ErrUpload), errors.Is(err, domain.ErrWrite):
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("upstream failure")
		return http.StatusBadGateway, "upstream service failed, please retry"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

func authStatus(kind domain.AuthErrorKind) int {
	switch kind {
	case domain.AuthDisabled:
		return http.StatusForbidden
	case domain.AuthNotFound:
		return http.StatusNotFound
	case domain.AuthEmailInUse:
		return http.StatusConflict
	case domain.AuthWeakPassword:
		return http.StatusUnprocessableEntity
	case domain.AuthRateLimited:
		return http.StatusTooManyRequests
	case domain.AuthRequiresRecentLogin:
		return http.StatusForbidden
	default:
		// invalid_credential, wrong_password
		return http.StatusUnauthorized
	}
}
