package apiclient

import (
	"context"
	"net/http"

	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

// AuthAPI implements ports.AuthAPI over /api/auth.
type AuthAPI struct {
	c *Client
}

func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{c: c}
}

var _ ports.AuthAPI = (*AuthAPI)(nil)

func (a *AuthAPI) Login(ctx context.Context, cred ports.Credentials) (*domain.Session, error) {
	var s domain.Session
	if err := a.c.Do(ctx, http.MethodPost, "/api/auth/login", cred, &s); err != nil {
		return nil, Normalize(err, "Login failed")
	}
	return &s, nil
}

func (a *AuthAPI) Register(ctx context.Context, r ports.Registration) (*domain.Session, error) {
	var s domain.Session
	if err := a.c.Do(ctx, http.MethodPost, "/api/auth/register", r, &s); err != nil {
		return nil, Normalize(err, "Registration failed")
	}
	return &s, nil
}

func (a *AuthAPI) Logout(ctx context.Context) error {
	return Normalize(a.c.Do(ctx, http.MethodPost, "/api/auth/logout", nil, nil), "Logout failed")
}

func (a *AuthAPI) Refresh(ctx context.Context) (*domain.Session, error) {
	var s domain.Session
	if err := a.c.Do(ctx, http.MethodPost, "/api/auth/refresh", nil, &s); err != nil {
		return nil, Normalize(err, "Session refresh failed")
	}
	return &s, nil
}

func (a *AuthAPI) Me(ctx context.Context) (*domain.User, error) {
	var out struct {
		User *domain.User `json:"user"`
	}
	if err := a.c.Do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, Normalize(err, "Failed to load profile")
	}
	if out.User == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "Failed to load profile"}
	}
	return out.User, nil
}

func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return Normalize(a.c.Do(ctx, http.MethodPost, "/api/auth/forgot-password", body, nil), "Failed to send reset email")
}

func (a *AuthAPI) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	return Normalize(a.c.Do(ctx, http.MethodPost, "/api/auth/reset-password", body, nil), "Failed to reset password")
}
