package repository

import (
	"github.com/ManuelReschke/OddsRaiders/app/models"
	"gorm.io/gorm"
)

type ingestRunRepository struct {
	db *gorm.DB
}

func NewIngestRunRepository(db *gorm.DB) IngestRunRepository {
	return &ingestRunRepository{db: db}
}

// Latest returns the most recent runs, newest first.
func (r *ingestRunRepository) Latest(limit int) ([]models.IngestRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.IngestRun
	err := r.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

func (r *ingestRunRepository) GetByRunID(runID string) (*models.IngestRun, error) {
	var run models.IngestRun
	if err := r.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
