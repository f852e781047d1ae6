package router

import (
	"github.com/ManuelReschke/OddsRaiders/app/controllers"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// The provider calls this without a token; it must stay outside the bearer
	// group. It is not rate limited: a throttled notification is never retried.
	billing := controllers.NewBillingController(h.deps.Webhook)
	v1.Post("/subscriptions/payfast-notify", billing.HandlePayFastNotify)

	authed := v1.Group("", newLimiter(apiLimit, h.deps.LimiterStorage), middleware.RequireBearerAuth(h.deps.JWTSecret))

	users := controllers.NewUserController(h.deps.Repositories.User, h.deps.Ledger)
	authed.Get("/me", users.HandleGetAccount)

	subs := controllers.NewSubscriptionController(h.deps.Ledger, h.deps.Repositories.User)
	authed.Get("/subscriptions/:userId", subs.HandleGet)
	authed.Post("/subscriptions", subs.HandleOpen)
	authed.Delete("/subscriptions/:userId", subs.HandleCancel)

	predictions := controllers.NewPredictionController(h.deps.Repositories.Prediction)
	paid := middleware.RequireActiveSubscription(h.deps.Ledger)
	authed.Get("/predictions", paid, predictions.HandleUpcoming)
	authed.Get("/fixtures/:fixtureId/prediction", paid, predictions.HandleGet)

	h.registerAdminRoutes(v1)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
