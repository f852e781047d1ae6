package router

import (
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/controllers"
	"github.com/ManuelReschke/OddsRaiders/app/repository"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Ledger is what the HTTP surface needs from the subscription ledger.
type Ledger interface {
	controllers.SubscriptionService
	entitlements.SubscriptionReader
}

// Dependencies are the services the routes are wired against.
type Dependencies struct {
	Repositories *repository.Repositories
	Ledger       Ledger
	Webhook      controllers.NotificationProcessor
	Stats        controllers.StatsReader
	JWTSecret    string
	TokenTTL     time.Duration

	// LimiterStorage backs the rate limiters; nil keeps counters in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
