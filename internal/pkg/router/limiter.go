package router

import (
	"net"
	"strconv"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/cache"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"
)

type rateLimit struct {
	max    int
	window time.Duration
}

var (
	authLimit = rateLimit{max: 10, window: time.Minute}
	apiLimit  = rateLimit{max: 300, window: time.Minute}
)

// NewLimiterStorage shares rate limit counters between API instances through
// Redis database 1 (the cache uses 0).
func NewLimiterStorage() fiber.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}

func newLimiter(rl rateLimit, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        rl.max,
		Expiration: rl.window,
		Storage:    storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
		},
	})
}
