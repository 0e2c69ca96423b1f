package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/auth"
	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names which implementation serves the stores
type Backend string

const (
	BackendRedis    Backend = "redis"
	BackendInMemory Backend = "memory"
)

// Stores bundles the short-lived key stores used by the API
type Stores struct {
	Idempotency    shared.IdempotencyStore
	TokenBlacklist auth.TokenBlacklist
	RateLimits     RateCounter
	Backend        Backend

	client *redis.Client
}

// RateCounter counts requests per key in fixed windows
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// Close releases the stores and the Redis client, if any
func (s *Stores) Close() error {
	err := s.Idempotency.Close()
	if c, ok := s.RateLimits.(*InMemoryRateCounter); ok {
		_ = c.Close()
	}
	if s.client != nil {
		if cerr := s.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Ping reports whether the backing store is reachable
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// StoreFactory creates stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when
// Redis is enabled but unreachable. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemoryStores creates process-local stores.
// They do not share state across instances, so a client retrying against
// another instance is not deduplicated and a logged-out token stays valid there.
func (f *StoreFactory) CreateInMemoryStores() *Stores {
	return &Stores{
		Idempotency:    NewInMemoryIdempotencyStore(),
		TokenBlacklist: auth.NewInMemoryTokenBlacklist(),
		RateLimits:     NewInMemoryRateCounter(time.Minute),
		Backend:        BackendInMemory,
	}
}

// CreateStores uses Redis when enabled and reachable, in-memory otherwise
func (f *StoreFactory) CreateStores(ctx context.Context) (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory idempotency, token blacklist and rate limit stores")
		return f.CreateInMemoryStores(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis idempotency, token blacklist and rate limit stores", zap.String("addr", f.redisConfig.Addr()))
		return &Stores{
			Idempotency:    NewRedisIdempotencyStore(client, ""),
			TokenBlacklist: auth.NewRedisTokenBlacklist(client),
			RateLimits:     NewRedisRateCounter(client),
			Backend:        BackendRedis,
			client:         client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
		"Idempotency keys and logouts will not be shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStores(), nil
}
