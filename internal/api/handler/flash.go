package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/api/middleware"
	"github.com/batuta/dashboard/internal/core/ports"
)

const (
	flashSuccess = "success"
	flashError   = "error"
)

// flasher stores the banner shown on the next view of the session. Banner
// failures are logged and never fail the request.
type flasher struct {
	store ports.FlashStore
	log   zerolog.Logger
}

func (f flasher) set(c echo.Context, kind, text string) {
	if f.store == nil {
		return
	}
	key := middleware.SessionKey(c)
	if key == "" {
		return
	}
	if err := f.store.Set(c.Request().Context(), key, ports.Flash{Kind: kind, Text: text}); err != nil {
		f.log.Warn().Err(err).Msg("store flash")
	}
}

func (f flasher) get(c echo.Context) *ports.Flash {
	if f.store == nil {
		return nil
	}
	key := middleware.SessionKey(c)
	if key == "" {
		return nil
	}
	fl, err := f.store.Get(c.Request().Context(), key)
	if err != nil {
		f.log.Warn().Err(err).Msg("read flash")
		return nil
	}
	return fl
}

// failed records err as an error banner and passes it on.
func (f flasher) failed(c echo.Context, err error) error {
	f.set(c, flashError, err.Error())
	return err
}
