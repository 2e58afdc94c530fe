package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/reduce"
)

func setupRedis(t *testing.T, opts ...RedisOption) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	rb := NewRedisBackendFromClient(client, opts...)
	t.Cleanup(func() { _ = rb.Close() })
	return mr, rb
}

func TestRedisBackend_GetMissing(t *testing.T) {
	_, rb := setupRedis(t)

	v, found, err := rb.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)
}

func TestRedisBackend_SetGet(t *testing.T) {
	mr, rb := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rb.Set(ctx, "prefs", []byte(`{"a":1}`)))

	v, found, err := rb.Get(ctx, "prefs")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"a":1}`, string(v))
	assert.True(t, mr.Exists("reflux:storage:prefs"))
}

func TestRedisBackend_ClearOnlyOwnKeys(t *testing.T) {
	mr, rb := setupRedis(t, WithRedisPrefix("app:"))
	ctx := context.Background()

	require.NoError(t, mr.Set("unrelated", "keep"))
	require.NoError(t, rb.Set(ctx, "a", []byte("1")))
	require.NoError(t, rb.Set(ctx, "b", []byte("2")))

	require.NoError(t, rb.Clear(ctx))

	assert.False(t, mr.Exists("app:a"))
	assert.False(t, mr.Exists("app:b"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisBackend_TTL(t *testing.T) {
	mr, rb := setupRedis(t, WithRedisTTL(time.Minute))

	require.NoError(t, rb.Set(context.Background(), "k", []byte("v")))

	assert.Equal(t, time.Minute, mr.TTL("reflux:storage:k"))

	mr.FastForward(2 * time.Minute)
	_, found, err := rb.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorageService_RedisBackend(t *testing.T) {
	_, rb := setupRedis(t)
	in := install(t, StorageService(rb))

	in.send(StoreData{Key: "count", Data: 42}, RequestData{Key: "count"})

	out := in.take()
	require.Len(t, out, 1)
	var n int
	require.NoError(t, out[0].(LoadData).Decode(&n))
	assert.Equal(t, 42, n)

	in.send(ClearData{}, RequestData{Key: "count"})
	assert.Equal(t, []reduce.Message{LoadData{Key: "count"}}, in.take())
}
