package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slok/execgate/internal/log"
)

// Client is the subset of the go-redis client used by the repository.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

var _ Client = (*redis.Client)(nil)

// RepositoryConfig is the configuration for the Redis repository.
type RepositoryConfig struct {
	Client Client
	// KeyPrefix is prepended to every key.
	KeyPrefix string
	Logger    log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("redis client is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Redis"})
	return nil
}

// Repository is a Redis implementation of storage.KVRepository.
type Repository struct {
	client Client
	prefix string
	logger log.Logger
}

// NewRepository creates a new Redis repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		client: cfg.Client,
		prefix: cfg.KeyPrefix,
		logger: cfg.Logger,
	}, nil
}

// NewClient returns a go-redis client for addr and checks the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}

	return client, nil
}

// GetValue returns the value of a key, nil if missing.
func (r *Repository) GetValue(ctx context.Context, key string) (*string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not get key %s: %w", key, err)
	}

	return &v, nil
}

// SetValue sets the value of a key without expiration.
func (r *Repository) SetValue(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("could not set key %s: %w", key, err)
	}

	r.logger.Debugf("Set key in redis: %s", key)
	return nil
}
