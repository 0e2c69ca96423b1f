package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateCounter_FixedWindow(t *testing.T) {
	counter := NewInMemoryRateCounter(0)
	defer counter.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	counter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, reset, err := counter.Hit(ctx, "1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.Equal(t, time.Minute, reset)
	}

	other, _, err := counter.Hit(ctx, "5.6.7.8", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "keys are counted separately")

	now = now.Add(40 * time.Second)
	count, reset, err := counter.Hit(ctx, "1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.Equal(t, 20*time.Second, reset)

	now = now.Add(20 * time.Second)
	count, _, err = counter.Hit(ctx, "1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "a new window starts at the reset time")
}

func TestInMemoryRateCounter_Cleanup(t *testing.T) {
	counter := NewInMemoryRateCounter(0)
	defer counter.Close()

	now := time.Now()
	counter.now = func() time.Time { return now }
	_, _, _ = counter.Hit(context.Background(), "a", time.Second)
	_, _, _ = counter.Hit(context.Background(), "b", time.Hour)
	require.Equal(t, 2, counter.Size())

	now = now.Add(2 * time.Second)
	counter.cleanup()
	assert.Equal(t, 1, counter.Size())
}

func TestInMemoryRateCounter_CloseIsIdempotent(t *testing.T) {
	counter := NewInMemoryRateCounter(time.Millisecond)
	assert.NoError(t, counter.Close())
	assert.NoError(t, counter.Close())
}
