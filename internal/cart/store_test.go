package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	store := RedisStore{R: rdb, TTL: time.Hour}

	c, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Zero(t, c.Len())

	require.NoError(t, c.Add(product(1, 1190), 2))
	require.NoError(t, store.Save(ctx, "sess-1", c))
	require.True(t, mr.Exists("cart:sess-1"))
	require.Equal(t, time.Hour, mr.TTL("cart:sess-1"))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, int64(2380), loaded.Total().Int64())

	loaded.Clear()
	require.NoError(t, store.Save(ctx, "sess-1", loaded))
	require.False(t, mr.Exists("cart:sess-1"))
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, mr.Set("cart:bad", "{not json"))

	_, err := RedisStore{R: rdb}.Load(context.Background(), "bad")
	require.ErrorContains(t, err, "decode cart")
}

func TestMemoryStoreIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var c Cart
	require.NoError(t, c.Add(product(1, 100), 1))
	require.NoError(t, store.Save(ctx, "a", c))

	other, err := store.Load(ctx, "b")
	require.NoError(t, err)
	require.Zero(t, other.Len())

	// mutating the caller's copy must not leak into the store
	c.Clear()
	stored, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 1, stored.Len())

	require.NoError(t, store.Delete(ctx, "a"))
	stored, err = store.Load(ctx, "a")
	require.NoError(t, err)
	require.Zero(t, stored.Len())
}
