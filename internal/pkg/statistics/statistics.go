package statistics

import (
	"context"
	"sync"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/cache"
	"github.com/gofiber/fiber/v2/log"
	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	CacheKeySnapshot = "statistics:snapshot"
	CacheExpiration  = 5 * time.Minute
)

// Snapshot holds the operator dashboard figures.
type Snapshot struct {
	TotalUsers           int64      `json:"total_users"`
	ActiveSubscriptions  int64      `json:"active_subscriptions"`
	PendingSubscriptions int64      `json:"pending_subscriptions"`
	UpcomingFixtures     int64      `json:"upcoming_fixtures"`
	Predictions          int64      `json:"predictions"`
	LastIngestStatus     string     `json:"last_ingest_status,omitempty"`
	LastIngestAt         *time.Time `json:"last_ingest_at,omitempty"`
	GeneratedAt          time.Time  `json:"generated_at"`
}

// Counter computes a fresh snapshot.
type Counter interface {
	Count(ctx context.Context, now time.Time) (Snapshot, error)
}

// Store is the string cache the snapshot is kept in.
type Store interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
}

type Service struct {
	counter Counter
	store   Store
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
}

func NewService(counter Counter, store Store) *Service {
	return &Service{counter: counter, store: store, ttl: CacheExpiration, now: time.Now}
}

// NewServiceFromDB counts with db and caches in the shared Redis client.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewGormCounter(db), redisStore{})
}

// Snapshot returns the cached snapshot, recomputing it when missing or stale.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if snap, ok := s.cached(); ok {
		return snap, nil
	}

	// One recompute at a time; callers queued behind it read its result.
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.cached(); ok {
		return snap, nil
	}

	snap, err := s.counter.Count(ctx, s.now().UTC())
	if err != nil {
		return Snapshot{}, err
	}
	if s.store != nil {
		if raw, err := json.Marshal(snap); err == nil {
			if err := s.store.Set(CacheKeySnapshot, string(raw), s.ttl); err != nil {
				log.Warnf("[Statistics] cache snapshot: %v", err)
			}
		}
	}
	return snap, nil
}

func (s *Service) cached() (Snapshot, bool) {
	if s.store == nil {
		return Snapshot{}, false
	}
	raw, err := s.store.Get(CacheKeySnapshot)
	if err != nil || raw == "" {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

type redisStore struct{}

func (redisStore) Get(key string) (string, error) { return cache.Get(key) }
func (redisStore) Set(key string, value interface{}, expiration time.Duration) error {
	return cache.Set(key, value, expiration)
}

type gormCounter struct {
	db *gorm.DB
}

func NewGormCounter(db *gorm.DB) Counter {
	return &gormCounter{db: db}
}

func (g *gormCounter) Count(ctx context.Context, now time.Time) (Snapshot, error) {
	db := g.db.WithContext(ctx)
	snap := Snapshot{GeneratedAt: now}

	if err := db.Model(&models.User{}).Count(&snap.TotalUsers).Error; err != nil {
		return Snapshot{}, err
	}
	if err := db.Model(&models.Subscription{}).
		Where("state = ? AND end_date > ?", models.SubscriptionStateActive, now).
		Count(&snap.ActiveSubscriptions).Error; err != nil {
		return Snapshot{}, err
	}
	if err := db.Model(&models.Subscription{}).
		Where("state = ?", models.SubscriptionStatePending).
		Count(&snap.PendingSubscriptions).Error; err != nil {
		return Snapshot{}, err
	}
	if err := db.Model(&models.Fixture{}).Where("kickoff_at >= ?", now).Count(&snap.UpcomingFixtures).Error; err != nil {
		return Snapshot{}, err
	}
	if err := db.Model(&models.Prediction{}).Count(&snap.Predictions).Error; err != nil {
		return Snapshot{}, err
	}

	var last models.IngestRun
	err := db.Order("started_at DESC").Limit(1).Find(&last).Error
	if err != nil {
		return Snapshot{}, err
	}
	if last.RunID != "" {
		snap.LastIngestStatus = last.Status
		started := last.StartedAt
		snap.LastIngestAt = &started
	}
	return snap, nil
}
