package registry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), srv
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	require.NoError(t, store.Ping(ctx))

	_, ok, err := store.Get(ctx, assetA)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, assetB, FeedBinding{Symbol: "BTC", Decimals: 8, Denominator: 50}))
	require.NoError(t, store.Put(ctx, assetA, FeedBinding{Symbol: "ETH", Decimals: 6, Denominator: 20}))

	got, ok, err := store.Get(ctx, assetA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, FeedBinding{Symbol: "ETH", Decimals: 6, Denominator: 20}, got)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, assetA, entries[0].Asset)
	assert.Equal(t, assetB, entries[1].Asset)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	store, srv := newRedisStore(t)

	srv.HSet(defaultRedisKey, assetA.Hex(), "not-json")

	_, _, err := store.Get(ctx, assetA)
	assert.ErrorIs(t, err, ErrCorruptBinding)

	_, err = store.List(ctx)
	assert.ErrorIs(t, err, ErrCorruptBinding)
}

func TestRedisStoreConnectionError(t *testing.T) {
	ctx := context.Background()
	store, srv := newRedisStore(t)
	srv.Close()

	_, _, err := store.Get(ctx, assetA)
	assert.Error(t, err)
}
