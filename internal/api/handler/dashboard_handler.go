package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

// DashboardHandler serves the role home page and the access-denied page.
type DashboardHandler struct {
	messages ports.MessageAPI
	flash    flasher
	log      zerolog.Logger
}

func NewDashboardHandler(messages ports.MessageAPI, flash ports.FlashStore, log zerolog.Logger) *DashboardHandler {
	l := log.With().Str("component", "dashboard_handler").Logger()
	return &DashboardHandler{messages: messages, flash: flasher{store: flash, log: l}, log: l}
}

// Home lists the sections visible to the user's role and the unread badge.
//
// @Summary      Dashboard home
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  homeResponse
// @Failure      401  {object}  errorResponse
// @Router       /dashboard [get]
func (h *DashboardHandler) Home(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	// The badge is decoration; a failed count must not break the page.
	count, err := h.messages.UnreadCount(c.Request().Context())
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID).Msg("unread count unavailable")
		count = 0
	}
	b := newUnreadResponse(count)

	return c.JSON(http.StatusOK, homeResponse{
		User:        user,
		Name:        user.DisplayName(),
		Role:        user.Role,
		Sections:    domain.RoleSections[user.Role],
		Badge:       b.Badge,
		MobileBadge: b.MobileBadge,
		Flash:       h.flash.get(c),
	})
}

// Unauthorized explains which role was turned away.
//
// @Summary      Access denied page
// @Tags         dashboard
// @Produce      json
// @Param        role  query     string  false  "Role that was refused"
// @Success      200   {object}  unauthorizedResponse
// @Router       /unauthorized [get]
func (h *DashboardHandler) Unauthorized(c echo.Context) error {
	role := c.QueryParam("role")
	msg := "You do not have access to this page"
	if _, err := domain.ParseRole(role); err == nil {
		msg = fmt.Sprintf("Your role (%s) does not have access to this page", role)
	} else {
		role = ""
	}
	return c.JSON(http.StatusOK, unauthorizedResponse{Role: role, Message: msg})
}
