package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	IngestRunStatusRunning   = "running"
	IngestRunStatusCompleted = "completed"
	IngestRunStatusPartial   = "partial"
	IngestRunStatusCancelled = "cancelled"
)

// IngestRun is the persisted log of one ingestion cycle.
type IngestRun struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RunID         string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"run_id"`
	Status        string         `gorm:"type:varchar(20);not null;default:'running';index" json:"status"`
	StartedAt     time.Time      `gorm:"type:timestamp;not null;index" json:"started_at"`
	FinishedAt    *time.Time     `gorm:"type:timestamp;default:null" json:"finished_at,omitempty"`
	Inserted      int            `gorm:"not null;default:0" json:"inserted"`
	Updated       int            `gorm:"not null;default:0" json:"updated"`
	Failed        int            `gorm:"not null;default:0" json:"failed"`
	Summary       datatypes.JSON `gorm:"type:json" json:"summary"`
	ArchivePrefix string         `gorm:"type:varchar(255);not null;default:''" json:"archive_prefix"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (IngestRun) TableName() string { return "ingest_runs" }
