package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Total int `json:"total"`
}

func TestRedisCacheRoundTripAndInvalidate(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	c := NewRedis(client, "gema")
	ctx := context.Background()

	var out summary
	found, err := c.Get(ctx, "points:1", &out)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.Set(ctx, "points:1", summary{Total: 42}, time.Minute))
	require.True(t, server.Exists("gema:points:1"))

	found, err = c.Get(ctx, "points:1", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 42, out.Total)

	server.FastForward(2 * time.Minute)
	found, err = c.Get(ctx, "points:1", &out)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.Set(ctx, "points:1", summary{Total: 7}, time.Minute))
	require.NoError(t, c.Invalidate(ctx, "points:1", "leaderboard"))
	require.False(t, server.Exists("gema:points:1"))
}

func TestNoopCacheNeverHits(t *testing.T) {
	c := Noop()
	require.NoError(t, c.Set(context.Background(), "k", 1, time.Minute))
	var v int
	found, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	require.False(t, found)
}
