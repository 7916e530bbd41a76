package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSubmitTTL = 5 * time.Second

// SubmissionGuard rejects repeated identical form submissions inside a short
// window using SETNX.
// Key format: submit:<caller supplied key>
type SubmissionGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSubmissionGuard(client *redis.Client, ttl time.Duration) *SubmissionGuard {
	if ttl <= 0 {
		ttl = defaultSubmitTTL
	}
	return &SubmissionGuard{client: client, ttl: ttl}
}

// Acquire reports true for the first submission of key within the window.
func (g *SubmissionGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, "submit:"+key, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("submission guard: %w", err)
	}
	return ok, nil
}

func (g *SubmissionGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, "submit:"+key).Err(); err != nil {
		return fmt.Errorf("submission guard: %w", err)
	}
	return nil
}
