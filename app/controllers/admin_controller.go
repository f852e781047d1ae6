package controllers

import (
	"context"

	"github.com/ManuelReschke/OddsRaiders/app/repository"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2"
)

// StatsReader serves the cached operator figures.
type StatsReader interface {
	Snapshot(ctx context.Context) (statistics.Snapshot, error)
}

// AdminController exposes the ingestion run log and statistics to operators.
type AdminController struct {
	runs  repository.IngestRunRepository
	stats StatsReader
}

func NewAdminController(runs repository.IngestRunRepository, stats StatsReader) *AdminController {
	return &AdminController{runs: runs, stats: stats}
}

func (a *AdminController) HandleListIngestRuns(c *fiber.Ctx) error {
	runs, err := a.runs.Latest(c.QueryInt("limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"runs": runs})
}

func (a *AdminController) HandleGetIngestRun(c *fiber.Ctx) error {
	run, err := a.runs.GetByRunID(c.Params("runId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(run)
}

func (a *AdminController) HandleStatistics(c *fiber.Ctx) error {
	snap, err := a.stats.Snapshot(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}
