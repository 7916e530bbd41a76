package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/api/metrics"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

const maxSubmitBody = 1 << 20

// SubmitOnce rejects an identical submission (same session, path and body)
// repeated inside the guard's window with 409. A submission the handler
// fails is released so the user can retry it. Guard failures let the request
// through.
func SubmitOnce(guard ports.SubmissionGuard, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			body, err := io.ReadAll(io.LimitReader(req.Body, maxSubmitBody))
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			key := SessionKey(c) + ":" + req.Method + ":" + req.URL.Path + ":" + hex.EncodeToString(sum[:8])

			ok, err := guard.Acquire(req.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("path", req.URL.Path).Msg("submission guard unavailable")
				return next(c)
			}
			if !ok {
				metrics.SubmissionDedupTotal.WithLabelValues("hit").Inc()
				return domain.ErrDuplicateSubmission
			}
			metrics.SubmissionDedupTotal.WithLabelValues("miss").Inc()
			if err := next(c); err != nil {
				if rerr := guard.Release(context.WithoutCancel(req.Context()), key); rerr != nil {
					log.Warn().Err(rerr).Str("path", req.URL.Path).Msg("release submission")
				}
				return err
			}
			return nil
		}
	}
}
