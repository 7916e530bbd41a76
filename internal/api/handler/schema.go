package handler

import (
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
	"github.com/batuta/dashboard/internal/core/service"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"              validate:"required,email"`
	Password string `json:"password"           validate:"required"`
	Redirect string `json:"redirect,omitempty"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type authResponse struct {
	User     *domain.User `json:"user"`
	Redirect string       `json:"redirect"`
}

type messageResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// --- Dashboard ---

type homeResponse struct {
	User        *domain.User     `json:"user"`
	Name        string           `json:"name"`
	Role        domain.Role      `json:"role"`
	Sections    []domain.Section `json:"sections"`
	Badge       string           `json:"badge"`
	MobileBadge string           `json:"mobileBadge"`
	Flash       *ports.Flash     `json:"flash,omitempty"`
}

type unauthorizedResponse struct {
	Role    string `json:"role,omitempty"`
	Message string `json:"message"`
}

// --- Messages ---

type unreadResponse struct {
	Count       int    `json:"count"`
	Badge       string `json:"badge"`
	MobileBadge string `json:"mobileBadge"`
}

func newUnreadResponse(n int) unreadResponse {
	b := service.Badge(n)
	return unreadResponse{Count: n, Badge: b, MobileBadge: b}
}

type inboxResponse struct {
	Messages    []domain.Message `json:"messages"`
	Unread      int              `json:"unread"`
	Badge       string           `json:"badge"`
	MobileBadge string           `json:"mobileBadge"`
	Flash       *ports.Flash     `json:"flash,omitempty"`
}

type messageDetail struct {
	Message domain.Message   `json:"message"`
	Replies []domain.Message `json:"replies"`
}

type replyRequest struct {
	Content string `json:"content" validate:"required"`
}

type deletePrompt struct {
	Error   string `json:"error"`
	Confirm string `json:"confirm"`
}

// --- Resources ---

type listResponse[T any] struct {
	Items []T          `json:"items"`
	Flash *ports.Flash `json:"flash,omitempty"`
}

// --- Health ---

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}
