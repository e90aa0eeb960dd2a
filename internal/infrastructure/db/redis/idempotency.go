package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyTTL = 24 * time.Hour
	keyPrefix     = "idempotency:products:"

	// pendingMarker holds a reserved key until the insert finishes. It
	// expires after pendingTTL so a crashed request does not block the key
	// for a whole day.
	pendingMarker = "pending"
	pendingTTL    = 30 * time.Second
)

// IdempotencyStore remembers which product a create request produced so a
// retried request can be answered without a second insert.
// Key format: idempotency:products:<user_id>:<client_key>
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. A non-positive ttl falls back to 24h.
func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultKeyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve claims key with SETNX. When another request already holds it, the
// stored product id is returned, or "" while that request is still pending.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (string, bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker, pendingTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return "", true, nil
	}

	id, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) || id == pendingMarker {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return id, false, nil
}

// Remember overwrites the reservation on key with productID for the full ttl.
func (s *IdempotencyStore) Remember(ctx context.Context, key, productID string) error {
	if err := s.client.Set(ctx, keyPrefix+key, productID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release drops the reservation on key so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}
