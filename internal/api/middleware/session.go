package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/authctx"
	"github.com/batuta/dashboard/internal/core/service"
)

// StorageKeyPrefix namespaces persisted sessions, after the browser's
// local-storage key.
const StorageKeyPrefix = "batuta-auth-storage:"

const (
	ctxAuthStore  = "auth_store"
	ctxSessionKey = "session_key"
)

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string
	Secure     bool
	MaxAge     int
	// NewStore builds the AuthStore bound to one persisted key.
	NewStore func(key string) *service.AuthStore
}

// Session attaches the browser's AuthStore to the request. A browser without
// a session cookie gets a fresh random id. The store is hydrated from its
// persisted copy and installed as the request's bearer token source.
func Session(cfg SessionConfig, log zerolog.Logger) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = "batuta_sid"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ""
			if ck, err := c.Cookie(cfg.CookieName); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					sid = ck.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     cfg.CookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   cfg.MaxAge,
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			key := StorageKeyPrefix + sid
			store := cfg.NewStore(key)
			req := c.Request()
			if err := store.Hydrate(req.Context()); err != nil {
				log.Warn().Err(err).Str("path", req.URL.Path).Msg("session hydrate failed, continuing logged out")
			}

			c.Set(ctxAuthStore, store)
			c.Set(ctxSessionKey, key)
			c.SetRequest(req.WithContext(authctx.WithSource(req.Context(), store)))
			return next(c)
		}
	}
}

// AuthStore returns the store attached by Session, or nil.
func AuthStore(c echo.Context) *service.AuthStore {
	s, _ := c.Get(ctxAuthStore).(*service.AuthStore)
	return s
}

// SessionKey returns the persisted key of the current session.
func SessionKey(c echo.Context) string {
	k, _ := c.Get(ctxSessionKey).(string)
	return k
}
