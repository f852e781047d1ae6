package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyOutcome reports what Store.Apply did with a record.
type ApplyOutcome int

const (
	OutcomeInserted ApplyOutcome = iota + 1
	OutcomeUpdated
	OutcomeUnchanged
)

// NewerFunc decides whether an incoming record replaces the stored one,
// given the stored provider timestamp.
type NewerFunc func(stored *time.Time) bool

// Store persists external records keyed by their natural key.
type Store interface {
	Exists(ctx context.Context, table string, key map[string]any) (bool, error)
	// Apply inserts rec when its natural key is unknown, otherwise updates it
	// in place when newer reports true. Each call is atomic.
	Apply(ctx context.Context, rec models.ExternalRecord, newer NewerFunc) (ApplyOutcome, error)
}

// RunRecorder persists the ingestion run log.
type RunRecorder interface {
	StartRun(ctx context.Context, run *models.IngestRun) error
	FinishRun(ctx context.Context, run *models.IngestRun) error
}

// GormStore implements Store and RunRecorder with gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a GormStore backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Exists(ctx context.Context, table string, key map[string]any) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Table(table).Where(key).Limit(1).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check %s %v: %w", table, key, err)
	}
	return n > 0, nil
}

func (s *GormStore) Apply(ctx context.Context, rec models.ExternalRecord, newer NewerFunc) (ApplyOutcome, error) {
	var outcome ApplyOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored []struct {
			ProviderUpdatedAt *time.Time
		}
		err := tx.Table(rec.TableName()).
			Select("provider_updated_at").
			Where(rec.NaturalKey()).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Limit(1).
			Find(&stored).Error
		if err != nil {
			return err
		}

		if len(stored) == 0 {
			outcome = OutcomeInserted
			return tx.Create(rec).Error
		}
		if !newer(stored[0].ProviderUpdatedAt) {
			outcome = OutcomeUnchanged
			return nil
		}
		outcome = OutcomeUpdated
		return tx.Model(rec).
			Where(rec.NaturalKey()).
			Select("*").
			Omit("id", "created_at").
			Updates(rec).Error
	})
	if err != nil {
		return 0, fmt.Errorf("apply %s %v: %w", rec.TableName(), rec.NaturalKey(), err)
	}
	return outcome, nil
}

func (s *GormStore) StartRun(ctx context.Context, run *models.IngestRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) FinishRun(ctx context.Context, run *models.IngestRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}
