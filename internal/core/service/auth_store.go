package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/authctx"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

// Reasons passed to the clear hook.
const (
	ClearNoToken       = "no_token"
	ClearRefreshFailed = "refresh_failed"
	ClearMeFailed      = "me_failed"
	ClearLogout        = "logout"
	ClearAuthExpired   = "auth_expired"
)

// AuthStore holds the session of one browser and keeps it in sync with its
// persisted copy. The zero session means "logged out".
type AuthStore struct {
	api   ports.AuthAPI
	store ports.SessionStore
	key   string
	log   zerolog.Logger

	now     func() time.Time
	onClear func(reason string)

	mu      sync.RWMutex
	session domain.Session
	lastErr string
}

type AuthStoreOption func(*AuthStore)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) AuthStoreOption {
	return func(a *AuthStore) { a.now = now }
}

// WithClearHook is called every time the session is cleared.
func WithClearHook(fn func(reason string)) AuthStoreOption {
	return func(a *AuthStore) { a.onClear = fn }
}

func NewAuthStore(api ports.AuthAPI, store ports.SessionStore, key string, log zerolog.Logger, opts ...AuthStoreOption) *AuthStore {
	a := &AuthStore{
		api:   api,
		store: store,
		key:   key,
		log:   log.With().Str("component", "auth_store").Logger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Hydrate loads the persisted session. A missing or unreadable entry leaves
// the store logged out.
func (a *AuthStore) Hydrate(ctx context.Context) error {
	s, err := a.store.Load(ctx, a.key)
	if err != nil {
		a.log.Warn().Err(err).Msg("hydrate session")
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s != nil && s.Valid() {
		a.session = *s
	} else {
		a.session = domain.Session{}
	}
	return nil
}

// Login authenticates and persists the new session. On failure the session
// stays empty and Err reports the message to show on the form.
func (a *AuthStore) Login(ctx context.Context, c ports.Credentials) error {
	s, err := a.api.Login(ctx, c)
	return a.adopt(ctx, s, err, "Login failed")
}

// Register creates an account and logs it in.
func (a *AuthStore) Register(ctx context.Context, r ports.Registration) error {
	s, err := a.api.Register(ctx, r)
	return a.adopt(ctx, s, err, "Registration failed")
}

func (a *AuthStore) adopt(ctx context.Context, s *domain.Session, err error, fallback string) error {
	if err == nil && (s == nil || !s.Valid()) {
		err = errors.New(fallback)
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		a.mu.Lock()
		a.session = domain.Session{}
		a.lastErr = msg
		a.mu.Unlock()
		if derr := a.store.Delete(context.WithoutCancel(ctx), a.key); derr != nil {
			a.log.Error().Err(derr).Msg("delete persisted session")
		}
		return err
	}

	a.mu.Lock()
	a.session = *s
	a.lastErr = ""
	a.mu.Unlock()

	if err := a.store.Save(ctx, a.key, *s); err != nil {
		a.log.Error().Err(err).Msg("persist session")
		return err
	}
	a.log.Info().Str("user_id", s.User.ID).Str("role", string(s.User.Role)).Msg("session started")
	return nil
}

// Logout notifies the API and clears the session whatever the outcome.
func (a *AuthStore) Logout(ctx context.Context) {
	if tok := a.Token(); tok != "" {
		if err := a.api.Logout(authctx.WithToken(ctx, tok)); err != nil {
			a.log.Warn().Err(err).Msg("logout request failed")
		}
	}
	a.Clear(ctx, ClearLogout)
}

// Clear drops the session locally and in the persisted store.
func (a *AuthStore) Clear(ctx context.Context, reason string) {
	a.mu.Lock()
	had := a.session.Token != ""
	a.session = domain.Session{}
	a.mu.Unlock()

	// The request context may already be gone; the delete must still land.
	if err := a.store.Delete(context.WithoutCancel(ctx), a.key); err != nil {
		a.log.Error().Err(err).Msg("delete persisted session")
	}
	if had {
		a.log.Info().Str("reason", reason).Msg("session cleared")
		if a.onClear != nil {
			a.onClear(reason)
		}
	}
}

// CheckAuth validates the current token, refreshing it once if expired. It
// returns the resulting session, or nil when the store ended up logged out.
func (a *AuthStore) CheckAuth(ctx context.Context) *domain.Session {
	tok := a.Token()
	if tok == "" {
		a.Clear(ctx, ClearNoToken)
		return nil
	}

	if tokenExpired(tok, a.now()) {
		s, err := a.api.Refresh(authctx.WithToken(ctx, tok))
		if err != nil || s == nil || !s.Valid() {
			a.log.Info().Err(err).Msg("token refresh failed")
			a.Clear(ctx, ClearRefreshFailed)
			return nil
		}
		a.mu.Lock()
		a.session = *s
		a.mu.Unlock()
		if err := a.store.Save(ctx, a.key, *s); err != nil {
			a.log.Error().Err(err).Msg("persist refreshed session")
		}
		return a.Session()
	}

	u, err := a.api.Me(authctx.WithToken(ctx, tok))
	if err != nil || u == nil {
		a.log.Info().Err(err).Msg("session check failed")
		a.Clear(ctx, ClearMeFailed)
		return nil
	}

	a.mu.Lock()
	if a.session.Token != tok {
		// Replaced concurrently by a login or clear; keep that outcome.
		a.mu.Unlock()
		return a.Session()
	}
	a.session.User = u
	s := a.session
	a.mu.Unlock()
	if err := a.store.Save(ctx, a.key, s); err != nil {
		a.log.Error().Err(err).Msg("persist session")
	}
	return &s
}

// ForgotPassword requests a reset email.
func (a *AuthStore) ForgotPassword(ctx context.Context, email string) error {
	return a.api.ForgotPassword(ctx, email)
}

// ResetPassword sets a new password using the emailed reset token.
func (a *AuthStore) ResetPassword(ctx context.Context, token, password string) error {
	return a.api.ResetPassword(ctx, token, password)
}

// Session returns a copy of the current session, or nil when logged out.
func (a *AuthStore) Session() *domain.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.session.Valid() {
		return nil
	}
	s := a.session
	u := *s.User
	s.User = &u
	return &s
}

func (a *AuthStore) User() *domain.User {
	if s := a.Session(); s != nil {
		return s.User
	}
	return nil
}

func (a *AuthStore) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Token
}

// Err is the message of the last failed login or registration.
func (a *AuthStore) Err() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// tokenExpired reads exp without verifying the signature. Tokens that cannot
// be decoded are treated as expired; tokens without exp never expire.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}
