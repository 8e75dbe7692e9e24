package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Observer receives Redis command timings and circuit breaker transitions.
type Observer interface {
	ObserveCommand(operation string, elapsed time.Duration, err error)
	BreakerStateChanged(component, state string)
}

// NewClient connects to redisURL, installs the metrics and circuit breaker
// hooks and verifies the connection. observer may be nil.
func NewClient(ctx context.Context, redisURL string, observer Observer) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)
	if observer != nil {
		client.AddHook(&MetricsHook{observer: observer})
	}
	client.AddHook(NewCircuitBreakerHook(observer))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	slog.Info("Redis connected", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}
