package monarch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agenthands/orthopheno/internal/config"
)

// SharedCache keeps fetch results between runs and processes. Errors from a
// shared cache never fail a fetch; the client logs them and goes to the
// network.
type SharedCache interface {
	Get(ctx context.Context, nodeID string, rows int) (FetchResult, bool, error)
	Set(ctx context.Context, nodeID string, rows int, res FetchResult) error
}

// RedisCache stores fetch results as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to cfg.RedisURL and pings it.
func NewRedisCache(ctx context.Context, cfg config.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: cfg.TTL.Duration, prefix: cfg.Prefix}, nil
}

func (c *RedisCache) key(nodeID string, rows int) string {
	return c.prefix + nodeID + ":" + strconv.Itoa(rows)
}

func (c *RedisCache) Get(ctx context.Context, nodeID string, rows int) (FetchResult, bool, error) {
	data, err := c.client.Get(ctx, c.key(nodeID, rows)).Bytes()
	if errors.Is(err, redis.Nil) {
		return FetchResult{}, false, nil
	}
	if err != nil {
		return FetchResult{}, false, fmt.Errorf("failed to read cached associations: %w", err)
	}
	var res FetchResult
	if err := json.Unmarshal(data, &res); err != nil {
		return FetchResult{}, false, fmt.Errorf("failed to decode cached associations: %w", err)
	}
	return res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, nodeID string, rows int, res FetchResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(nodeID, rows), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache associations: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
