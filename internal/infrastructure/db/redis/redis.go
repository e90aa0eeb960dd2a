package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout = 5 * time.Second
	clientName     = "product-management-backend"
)

// Config selects the Redis instance holding Idempotency-Key reservations.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect opens the client behind IdempotencyStore. Timeout bounds dialing,
// every read and write, and the startup ping. The server is optional: callers
// run without idempotent creates when Connect fails.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect idempotency store at %s: %w", cfg.Addr, err)
	}
	return client, nil
}
