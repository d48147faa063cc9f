package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("skipping Redis integration tests: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDeduper_ClaimForget(t *testing.T) {
	client := newTestClient(t)
	d := NewDeduper(client, time.Minute)
	ctx := context.Background()
	id := "evt_" + uuid.NewString()
	t.Cleanup(func() { _ = d.Forget(context.Background(), id) })

	first, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, d.Forget(ctx, id))
	retry, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, retry)

	ttl, err := client.TTL(ctx, keyPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestDeduper_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	d := NewDeduper(client, time.Minute)

	_, err := d.Claim(context.Background(), "evt_x")
	assert.Error(t, err)
}
