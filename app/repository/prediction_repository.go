package repository

import (
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"gorm.io/gorm"
)

type predictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &predictionRepository{db: db}
}

func (r *predictionRepository) GetByFixtureID(fixtureID uint) (*models.Prediction, error) {
	var p models.Prediction
	if err := r.db.Where("fixture_id = ?", fixtureID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *predictionRepository) GetFixture(fixtureID uint) (*models.Fixture, error) {
	var f models.Fixture
	if err := r.db.First(&f, fixtureID).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// ListUpcoming returns predictions for fixtures kicking off at or after from,
// soonest first.
func (r *predictionRepository) ListUpcoming(from time.Time, limit int) ([]models.Prediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []models.Prediction
	err := r.db.
		Joins("JOIN fixtures ON fixtures.id = predictions.fixture_id").
		Where("fixtures.kickoff_at >= ?", from).
		Order("fixtures.kickoff_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
