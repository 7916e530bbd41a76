package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/ports"
	"github.com/batuta/dashboard/internal/core/service"
	"github.com/batuta/dashboard/internal/infrastructure/apiclient"
)

// AuthHandler drives the session's AuthStore from the login, registration
// and password forms.
type AuthHandler struct {
	flash flasher
	log   zerolog.Logger
}

func NewAuthHandler(flash ports.FlashStore, log zerolog.Logger) *AuthHandler {
	l := log.With().Str("component", "auth_handler").Logger()
	return &AuthHandler{flash: flasher{store: flash, log: l}, log: l}
}

// Login authenticates the browser session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	store, err := ctxAuth(c)
	if err != nil {
		return err
	}

	if err := store.Login(c.Request().Context(), ports.Credentials{Email: req.Email, Password: req.Password}); err != nil {
		return formError(store, err)
	}

	redirect := req.Redirect
	if redirect == "" {
		redirect = c.QueryParam("redirect")
	}
	return c.JSON(http.StatusOK, authResponse{User: store.User(), Redirect: safeRedirect(redirect)})
}

// Register creates an account and logs it in.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.Registration  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.Registration
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	store, err := ctxAuth(c)
	if err != nil {
		return err
	}

	if err := store.Register(c.Request().Context(), req); err != nil {
		return formError(store, err)
	}
	return c.JSON(http.StatusCreated, authResponse{User: store.User(), Redirect: defaultLanding})
}

// formError carries the message the store recorded for the form, keeping
// err underneath for status mapping.
func formError(store *service.AuthStore, err error) error {
	return apiclient.Normalize(err, store.Err())
}

// Logout ends the session. It always succeeds.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	store, err := ctxAuth(c)
	if err != nil {
		return err
	}
	store.Logout(c.Request().Context())
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out", Redirect: service.LoginPath})
}

// ForgotPassword sends a password reset email.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	store, err := ctxAuth(c)
	if err != nil {
		return err
	}
	if err := store.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return h.flash.failed(c, err)
	}
	const msg = "Password reset email sent"
	h.flash.set(c, flashSuccess, msg)
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

// ResetPassword sets a new password from an emailed reset token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  messageResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	store, err := ctxAuth(c)
	if err != nil {
		return err
	}
	if err := store.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return h.flash.failed(c, err)
	}
	const msg = "Password updated"
	h.flash.set(c, flashSuccess, msg)
	return c.JSON(http.StatusOK, messageResponse{Message: msg, Redirect: service.LoginPath})
}
