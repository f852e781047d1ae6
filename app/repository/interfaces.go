package repository

import (
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	TouchLastLogin(id uint, at time.Time) error
}

// PredictionRepository reads ingested predictions and their fixtures
type PredictionRepository interface {
	GetByFixtureID(fixtureID uint) (*models.Prediction, error)
	GetFixture(fixtureID uint) (*models.Fixture, error)
	ListUpcoming(from time.Time, limit int) ([]models.Prediction, error)
}

// IngestRunRepository reads the ingestion run log
type IngestRunRepository interface {
	Latest(limit int) ([]models.IngestRun, error)
	GetByRunID(runID string) (*models.IngestRun, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User       UserRepository
	Prediction PredictionRepository
	IngestRun  IngestRunRepository
}
