package service

import (
	"context"
	"net/url"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/domain"
)

type GuardState string

const (
	GuardLoading         GuardState = "loading"
	GuardAuthorized      GuardState = "authorized"
	GuardUnauthenticated GuardState = "unauthenticated"
	GuardForbidden       GuardState = "forbidden"
)

const (
	LoginPath        = "/auth/login"
	UnauthorizedPath = "/unauthorized"
)

// GuardDecision is the outcome of one route check.
type GuardDecision struct {
	State    GuardState      `json:"state"`
	Role     domain.Role     `json:"role,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
	Session  *domain.Session `json:"-"`
}

// SessionChecker is the part of AuthStore the guard depends on.
type SessionChecker interface {
	CheckAuth(ctx context.Context) *domain.Session
}

// Guard gates dashboard routes by session and role.
type Guard struct {
	timeout time.Duration
	log     zerolog.Logger
}

func NewGuard(timeout time.Duration, log zerolog.Logger) *Guard {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Guard{timeout: timeout, log: log.With().Str("component", "guard").Logger()}
}

// Check runs the auth check and decides. A check that does not finish within
// the guard timeout counts as unauthenticated.
func (g *Guard) Check(ctx context.Context, auth SessionChecker, allowed []domain.Role, path string) GuardDecision {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan *domain.Session, 1)
	go func() { done <- auth.CheckAuth(ctx) }()

	select {
	case s := <-done:
		return Decide(s, allowed, path)
	case <-ctx.Done():
		g.log.Warn().Str("path", path).Dur("timeout", g.timeout).Msg("auth check timed out")
		return Decide(nil, allowed, path)
	}
}

// Decide maps a settled session to a guard decision. An empty allow-list
// admits every authenticated role.
func Decide(s *domain.Session, allowed []domain.Role, path string) GuardDecision {
	if s == nil || !s.Valid() {
		return GuardDecision{
			State:    GuardUnauthenticated,
			Redirect: LoginRedirect(path),
		}
	}
	role := s.User.Role
	if len(allowed) > 0 && !slices.Contains(allowed, role) {
		return GuardDecision{
			State:    GuardForbidden,
			Role:     role,
			Redirect: UnauthorizedPath + "?role=" + url.QueryEscape(string(role)),
			Session:  s,
		}
	}
	return GuardDecision{State: GuardAuthorized, Role: role, Session: s}
}

// LoginRedirect builds the login URL that returns the user to path.
func LoginRedirect(path string) string {
	if path == "" {
		return LoginPath
	}
	return LoginPath + "?redirect=" + url.QueryEscape(path)
}
