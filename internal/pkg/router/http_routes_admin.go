package router

import (
	"github.com/ManuelReschke/OddsRaiders/app/controllers"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h ApiRouter) registerAdminRoutes(v1 fiber.Router) {
	admin := controllers.NewAdminController(h.deps.Repositories.IngestRun, h.deps.Stats)

	adminGroup := v1.Group("/admin", middleware.RequireBearerAuth(h.deps.JWTSecret), middleware.RequireAdmin())
	adminGroup.Get("/ingest-runs", admin.HandleListIngestRuns)
	adminGroup.Get("/ingest-runs/:runId", admin.HandleGetIngestRun)
	adminGroup.Get("/statistics", admin.HandleStatistics)
}
