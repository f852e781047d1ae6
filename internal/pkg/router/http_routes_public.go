package router

import (
	"github.com/ManuelReschke/OddsRaiders/app/controllers"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App, auth *controllers.AuthController) {
	authGroup := app.Group("/auth", newLimiter(authLimit, h.deps.LimiterStorage))
	authGroup.Post("/register", auth.HandleRegister)
	authGroup.Post("/login", auth.HandleLogin)

	app.Get("/docs", func(c *fiber.Ctx) error {
		return c.Redirect("/docs/api/v1", fiber.StatusMovedPermanently)
	})
}
