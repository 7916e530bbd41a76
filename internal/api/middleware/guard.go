package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/batuta/dashboard/internal/api/metrics"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/service"
)

const (
	ctxRole = "role"
	ctxUser = "user"
)

type guardResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// Guard admits requests whose session holds one of the allowed roles. An
// empty list admits any authenticated user. Browser navigations are
// redirected; API calls get 401/403 with the redirect target in the body.
func Guard(g *service.Guard, allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			store := AuthStore(c)
			if store == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session middleware missing")
			}

			d := g.Check(c.Request().Context(), store, allowed, c.Request().URL.RequestURI())
			metrics.GuardDecisionsTotal.WithLabelValues(string(d.State)).Inc()

			switch d.State {
			case service.GuardAuthorized:
				c.Set(ctxRole, d.Role)
				c.Set(ctxUser, d.Session.User)
				return next(c)
			case service.GuardForbidden:
				if WantsHTML(c) {
					return c.Redirect(http.StatusFound, d.Redirect)
				}
				return c.JSON(http.StatusForbidden, guardResponse{Error: "forbidden", Redirect: d.Redirect})
			default:
				if WantsHTML(c) {
					return c.Redirect(http.StatusFound, d.Redirect)
				}
				return c.JSON(http.StatusUnauthorized, guardResponse{Error: "authentication required", Redirect: d.Redirect})
			}
		}
	}
}

// Role returns the role admitted by Guard.
func Role(c echo.Context) domain.Role {
	r, _ := c.Get(ctxRole).(domain.Role)
	return r
}

// User returns the user admitted by Guard.
func User(c echo.Context) *domain.User {
	u, _ := c.Get(ctxUser).(*domain.User)
	return u
}

// WantsHTML reports whether the request is a browser navigation rather than
// an API call.
func WantsHTML(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMETextHTML) && !strings.Contains(accept, echo.MIMEApplicationJSON)
}
