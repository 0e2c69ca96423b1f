package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// RedisRateCounter counts requests per fixed window in Redis so every
// instance enforces the same limit
type RedisRateCounter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRateCounter creates a rate counter on an existing Redis client
func NewRedisRateCounter(client *redis.Client) *RedisRateCounter {
	return &RedisRateCounter{client: client, keyPrefix: rateLimitKeyPrefix}
}

// Hit counts one request for key and returns the count in the current
// window along with the time until the window resets
func (r *RedisRateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := r.keyPrefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to count request: %w", err)
	}

	reset := ttl.Val()
	if reset < 0 {
		reset = window
	}
	return incr.Val(), reset, nil
}

type rateWindow struct {
	count   int64
	resetAt time.Time
}

// InMemoryRateCounter counts requests per fixed window in process memory
type InMemoryRateCounter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewInMemoryRateCounter creates an in-memory rate counter. Expired windows
// are swept every cleanupInterval; a zero interval disables the sweep.
func NewInMemoryRateCounter(cleanupInterval time.Duration) *InMemoryRateCounter {
	c := &InMemoryRateCounter{
		windows: make(map[string]*rateWindow),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c
}

// Hit counts one request for key
func (c *InMemoryRateCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// Close stops the cleanup goroutine
func (c *InMemoryRateCounter) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *InMemoryRateCounter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryRateCounter) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, w := range c.windows {
		if !now.Before(w.resetAt) {
			delete(c.windows, key)
		}
	}
}

// Size returns the number of live windows
func (c *InMemoryRateCounter) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}
