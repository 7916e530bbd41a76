package ports

import (
	"context"

	"github.com/batuta/dashboard/internal/core/domain"
)

// SessionStore persists one session per key. Load returns (nil, nil) when the
// key holds nothing.
type SessionStore interface {
	Load(ctx context.Context, key string) (*domain.Session, error)
	Save(ctx context.Context, key string, s domain.Session) error
	Delete(ctx context.Context, key string) error
}
