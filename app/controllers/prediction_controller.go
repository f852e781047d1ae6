package controllers

import (
	"errors"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/repository"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PredictionController serves ingested predictions to paying users.
type PredictionController struct {
	repo repository.PredictionRepository
	now  func() time.Time
}

func NewPredictionController(repo repository.PredictionRepository) *PredictionController {
	return &PredictionController{repo: repo, now: time.Now}
}

func (p *PredictionController) HandleGet(c *fiber.Ctx) error {
	fixtureID, err := parseIDParam(c, "fixtureId")
	if err != nil {
		return respondError(c, err)
	}

	prediction, err := p.repo.GetByFixtureID(fixtureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperror.NotFound("no prediction for this fixture"))
		}
		return respondError(c, err)
	}

	fixture, err := p.repo.GetFixture(fixtureID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"fixture":    fixture,
		"prediction": prediction,
	})
}

// HandleUpcoming lists predictions for fixtures that have not kicked off.
func (p *PredictionController) HandleUpcoming(c *fiber.Ctx) error {
	list, err := p.repo.ListUpcoming(p.now().UTC(), c.QueryInt("limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"predictions": list})
}
