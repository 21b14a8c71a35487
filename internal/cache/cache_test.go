package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data map[string]string
	ttl  time.Duration
	err  error
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string]string)} }

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }
func (f *fakeKV) Close() error                          { return nil }

const consumer = "0x0123"

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFakeKV()
	c := newRedisCache(store, time.Minute)

	_, err := c.Get(ctx, consumer, 7)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, consumer, 7, []uint64{3, 1, 4}))
	assert.Equal(t, time.Minute, store.ttl)
	assert.Contains(t, store.data, "starknet_randomness:numbers:0x0123:7")

	got, err := c.Get(ctx, consumer, 7)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 4}, got)
}

func TestRedisCache_Errors(t *testing.T) {
	ctx := context.Background()
	store := newFakeKV()
	c := newRedisCache(store, 0)

	store.data[key(consumer, 1)] = "not json"
	_, err := c.Get(ctx, consumer, 1)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMiss))

	store.err = errors.New("connection refused")
	_, err = c.Get(ctx, consumer, 2)
	assert.EqualError(t, err, "connection refused")
}

func TestNopCache(t *testing.T) {
	var c NumbersCache = NopCache{}
	require.NoError(t, c.Set(context.Background(), consumer, 1, []uint64{1}))
	_, err := c.Get(context.Background(), consumer, 1)
	assert.ErrorIs(t, err, ErrMiss)
}
