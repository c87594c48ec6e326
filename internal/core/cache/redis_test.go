package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachable points at a port nothing listens on, so every redis call
// fails fast and GetOrLoad falls through to load.
func unreachable(t *testing.T) *Cache {
	t.Helper()
	c := &Cache{RDB: redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetOrLoad_LoadIgnoresCallerCancellation(t *testing.T) {
	c := unreachable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var loadErr error
	b, err := c.GetOrLoad(ctx, "k", time.Minute, func(lctx context.Context) ([]byte, error) {
		loadErr = lctx.Err()
		return []byte(`"v"`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(b))
	assert.NoError(t, loadErr)
}

func TestGeneration_ReportsRedisFailure(t *testing.T) {
	c := unreachable(t)
	_, err := c.Generation(context.Background(), "gen")
	assert.Error(t, err)
	assert.Error(t, c.Bump(context.Background(), "gen", time.Minute))
}
