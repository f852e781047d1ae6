package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const isolatedLeaseTestRedisDB = 13

func newIsolatedRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	hosts := []string{env.GetEnv("CACHE_HOST", ""), "cache", "localhost"}
	port := env.GetEnv("CACHE_PORT", "6379")
	password := env.GetEnv("CACHE_PASSWORD", "")

	var lastErr error
	for _, host := range hosts {
		if host == "" {
			continue
		}
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", host, port),
			Password: password,
			DB:       isolatedLeaseTestRedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			require.NoError(t, client.FlushDB(context.Background()).Err())
			t.Cleanup(func() {
				_ = client.FlushDB(context.Background()).Err()
				_ = client.Close()
			})
			return client
		}
		_ = client.Close()
		lastErr = err
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return nil
}

func TestLeaseIsExclusive(t *testing.T) {
	rdb := newIsolatedRedisClient(t)
	c := context.Background()

	first, err := AcquireLease(c, rdb, "lease:ingest", "a", time.Minute)
	require.NoError(t, err)

	_, err = AcquireLease(c, rdb, "lease:ingest", "b", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, first.Release(c))

	second, err := AcquireLease(c, rdb, "lease:ingest", "b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "lease:ingest", second.Key())
}

func TestReleaseDoesNotDropForeignLease(t *testing.T) {
	rdb := newIsolatedRedisClient(t)
	c := context.Background()

	stale := &Lease{rdb: rdb, key: "lease:ingest", token: "old"}
	_, err := AcquireLease(c, rdb, "lease:ingest", "new", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(c))

	val, err := rdb.Get(c, "lease:ingest").Result()
	require.NoError(t, err)
	assert.Equal(t, "new", val)
}

func TestReleaseNilLease(t *testing.T) {
	var l *Lease
	assert.NoError(t, l.Release(context.Background()))
}
