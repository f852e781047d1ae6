package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// ErrLockHeld is returned when another holder owns a lease.
var ErrLockHeld = errors.New("cache: lock held by another owner")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
	} else {
		log.Printf("Successfully connected to cache: %s", pong)
	}
}

// GetClient connects on first use.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// SetClient overrides the shared client (tests).
func SetClient(c *redis.Client) {
	client = c
}

// Set writes value under key; a zero expiration keeps it forever.
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// Lease is a best-effort distributed lock backed by SET NX PX.
type Lease struct {
	rdb   *redis.Client
	key   string
	token string
}

// AcquireLease takes key for ttl or returns ErrLockHeld.
func AcquireLease(c context.Context, rdb *redis.Client, key, token string, ttl time.Duration) (*Lease, error) {
	ok, err := rdb.SetNX(c, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lease{rdb: rdb, key: key, token: token}, nil
}

// Release drops the lease if it is still ours.
func (l *Lease) Release(c context.Context) error {
	if l == nil {
		return nil
	}
	return releaseScript.Run(c, l.rdb, []string{l.key}, l.token).Err()
}

func (l *Lease) Key() string { return l.key }
