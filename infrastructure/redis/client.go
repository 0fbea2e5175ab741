// Package redis opens go-redis clients for the response cache.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	infraconfig "github.com/jonesrussell/competitive-scan/infrastructure/config"
	infracontext "github.com/jonesrussell/competitive-scan/infrastructure/context"
)

// ErrEmptyAddress is returned when no Redis address is configured.
var ErrEmptyAddress = errors.New("redis address is required")

// NewClient connects to cfg.Address and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg infraconfig.RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := infracontext.WithPingTimeout(ctx)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("redis ping %s: %w", cfg.Address, err), client.Close())
	}

	return client, nil
}
