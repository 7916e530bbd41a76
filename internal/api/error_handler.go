package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/api/handler"
	"github.com/batuta/dashboard/internal/api/middleware"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/service"
	"github.com/batuta/dashboard/internal/infrastructure/apiclient"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Drops the session and sends the user to login when the backend rejects the token.
//   - Maps known domain and upstream errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if errors.Is(err, domain.ErrAuthExpired) {
			redirect := loginRedirect(c)
			if middleware.WantsHTML(c) {
				_ = c.Redirect(http.StatusFound, redirect)
				return
			}
			_ = c.JSON(http.StatusUnauthorized, errorResponse{Error: "session expired", Redirect: redirect})
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

// loginRedirect clears whatever session is left and points back at the page
// the user was on.
func loginRedirect(c echo.Context) string {
	if store := middleware.AuthStore(c); store != nil {
		store.Clear(c.Request().Context(), service.ClearAuthExpired)
	}
	return service.LoginRedirect(c.Request().URL.RequestURI())
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	if msg, ok := handler.ValidationMessage(err); ok {
		return http.StatusUnprocessableEntity, msg
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrConfirmationRequired):
		return http.StatusPreconditionRequired, err.Error()
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict, "this form was already submitted"
	}

	// Backend answers carry the message shown to the user.
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 0:
			log.Warn().Err(apiErr.Unwrap()).Str("path", c.Path()).Msg("backend unreachable")
			return http.StatusBadGateway, apiErr.Error()
		case apiErr.Status >= 500:
			log.Warn().Int("upstream_status", apiErr.Status).Str("path", c.Path()).Msg("backend error")
			return http.StatusBadGateway, apiErr.Error()
		default:
			return apiErr.Status, apiErr.Error()
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
