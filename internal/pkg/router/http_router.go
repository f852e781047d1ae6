package router

import (
	"github.com/ManuelReschke/OddsRaiders/app/controllers"
	"github.com/gofiber/fiber/v2"
)

// HttpRouter serves the unversioned public routes: health and auth.
type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := controllers.NewAuthController(h.deps.Repositories.User, h.deps.JWTSecret, h.deps.TokenTTL)
	h.registerPublicRoutes(app, auth)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
