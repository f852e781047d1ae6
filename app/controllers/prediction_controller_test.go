package controllers

import (
	"testing"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePredictions struct {
	predictions map[uint]*models.Prediction
	fixtures    map[uint]*models.Fixture
	from        time.Time
	limit       int
}

func (f *fakePredictions) GetByFixtureID(id uint) (*models.Prediction, error) {
	if p, ok := f.predictions[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePredictions) GetFixture(id uint) (*models.Fixture, error) {
	if fx, ok := f.fixtures[id]; ok {
		return fx, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePredictions) ListUpcoming(from time.Time, limit int) ([]models.Prediction, error) {
	f.from, f.limit = from, limit
	var out []models.Prediction
	for _, p := range f.predictions {
		out = append(out, *p)
	}
	return out, nil
}

func TestGetPrediction(t *testing.T) {
	repo := &fakePredictions{
		predictions: map[uint]*models.Prediction{1001: {FixtureID: 1001, Advice: "Double chance : Manchester United or draw"}},
		fixtures:    map[uint]*models.Fixture{1001: {ID: 1001, HomeTeamID: 33, AwayTeamID: 34}},
	}
	app := fiber.New()
	app.Get("/fixtures/:fixtureId/prediction", NewPredictionController(repo).HandleGet)

	status, body := doJSON(t, app, "GET", "/fixtures/1001/prediction", "")
	require.Equal(t, fiber.StatusOK, status)
	prediction := body["prediction"].(map[string]any)
	assert.Equal(t, "Double chance : Manchester United or draw", prediction["advice"])
	fixture := body["fixture"].(map[string]any)
	assert.EqualValues(t, 33, fixture["home_team_id"])

	status, body = doJSON(t, app, "GET", "/fixtures/2002/prediction", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestListUpcomingPredictions(t *testing.T) {
	repo := &fakePredictions{predictions: map[uint]*models.Prediction{1001: {FixtureID: 1001}}}
	ctrl := NewPredictionController(repo)
	ctrl.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	app := fiber.New()
	app.Get("/predictions", ctrl.HandleUpcoming)

	status, body := doJSON(t, app, "GET", "/predictions?limit=5", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["predictions"], 1)
	assert.Equal(t, 5, repo.limit)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), repo.from)
}
