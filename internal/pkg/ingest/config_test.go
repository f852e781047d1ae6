package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("INGEST_LEAGUES", "39, 140,abc,-1")
	t.Setenv("INGEST_SEASON", "2025")
	t.Setenv("INGEST_FIXTURE_WINDOW_DAYS", "3")
	t.Setenv("INGEST_MAX_FIXTURES", "20")
	t.Setenv("INGEST_FETCH_CONCURRENCY", "")
	t.Setenv("INGEST_LOCK_TTL", "")

	now := time.Date(2026, 3, 7, 18, 30, 0, 0, time.UTC)
	cfg := ConfigFromEnv(now)

	assert.Equal(t, []int{39, 140}, cfg.Scope.Leagues)
	assert.Equal(t, 2025, cfg.Scope.Season)
	assert.Equal(t, 20, cfg.Scope.MaxFixtures)
	assert.Equal(t, defaultConcurrency, cfg.Concurrency)
	assert.Equal(t, defaultLockTTL, cfg.LockTTL)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), cfg.Scope.FixtureFrom)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), cfg.Scope.FixtureTo)
}

func TestScopeAtFollowsCycleStart(t *testing.T) {
	cfg := Config{Scope: Scope{Leagues: []int{39}}, WindowDays: 1}

	scope := cfg.scopeAt(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), scope.FixtureFrom)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), scope.FixtureTo)

	fixed := Config{Scope: Scope{FixtureFrom: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}}
	assert.Equal(t, fixed.Scope, fixed.scopeAt(time.Now()))
}
