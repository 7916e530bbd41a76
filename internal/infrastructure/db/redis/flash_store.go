package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/batuta/dashboard/internal/core/ports"
)

const defaultFlashTTL = 3 * time.Second

// FlashStore keeps one banner per session. Redis expiry clears it, so no
// timer has to be cancelled.
// Key format: flash:<session_key>
type FlashStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFlashStore(client *redis.Client, ttl time.Duration) *FlashStore {
	if ttl <= 0 {
		ttl = defaultFlashTTL
	}
	return &FlashStore{client: client, ttl: ttl}
}

func (f *FlashStore) Set(ctx context.Context, key string, fl ports.Flash) error {
	raw, err := json.Marshal(fl)
	if err != nil {
		return err
	}
	if err := f.client.Set(ctx, f.key(key), raw, f.ttl).Err(); err != nil {
		return fmt.Errorf("set flash: %w", err)
	}
	return nil
}

// Get returns the live banner, or nil once it has expired.
func (f *FlashStore) Get(ctx context.Context, key string) (*ports.Flash, error) {
	raw, err := f.client.Get(ctx, f.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flash: %w", err)
	}
	var fl ports.Flash
	if err := json.Unmarshal(raw, &fl); err != nil {
		return nil, fmt.Errorf("decode flash: %w", err)
	}
	return &fl, nil
}

func (f *FlashStore) key(sessionKey string) string {
	return "flash:" + sessionKey
}
