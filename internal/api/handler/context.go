package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/batuta/dashboard/internal/api/middleware"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/service"
)

const defaultLanding = "/dashboard"

// ctxAuth returns the request's AuthStore. Its absence means the session
// middleware is not mounted, which is a wiring bug.
func ctxAuth(c echo.Context) (*service.AuthStore, error) {
	store := middleware.AuthStore(c)
	if store == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}
	return store, nil
}

// ctxUser returns the user admitted by the guard and fails fast when the
// route was mounted without one.
func ctxUser(c echo.Context) (*domain.User, error) {
	u := middleware.User(c)
	if u == nil || u.Role == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return u, nil
}

// safeRedirect accepts only same-site absolute paths, so a crafted
// ?redirect= cannot bounce the user to another host.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return defaultLanding
	}
	u, err := url.Parse(target)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return defaultLanding
	}
	if strings.HasPrefix(u.Path, service.LoginPath) {
		return defaultLanding
	}
	return target
}
