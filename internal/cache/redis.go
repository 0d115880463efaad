package cache

import (
	"context"
	"fmt"
	"time"

	"studio-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient opens the auth Redis connection and verifies it answers.
func NewRedisClient(ctx context.Context, cfg env.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
