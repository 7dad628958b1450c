// Package redisclient provides the Redis connection and the per doctor-day
// booking lock built on it.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientConfig carries the connection settings the booking lock needs.
// The lock traffic is tiny SETNX round trips, so the pool stays small and
// the per-command timeouts short.
type ClientConfig struct {
	Addr     string
	Username string
	Password string
}

// NewClient connects to Redis and verifies connectivity before returning.
// A lock backend we cannot reach at startup is a configuration problem,
// not something to discover on the first booking.
func NewClient(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}
