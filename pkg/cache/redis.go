package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/eduorg-api/pkg/config"
)

// Namespace prefixes every key this service writes so a shared Redis can host
// other applications.
const Namespace = "eduorg"

// Key joins parts under the namespace, e.g. Key("tenant", "acme") is "eduorg:tenant:acme".
func Key(parts ...string) string {
	return Namespace + ":" + strings.Join(parts, ":")
}

// NewRedis returns a connected Redis client.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "eduorg-api",
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
