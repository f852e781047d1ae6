package ingest

import (
	"strconv"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

const (
	defaultConcurrency = 4
	defaultLockTTL     = 30 * time.Minute
	defaultWindowDays  = 7
	defaultMaxFixtures = 50
	defaultLeaseKey    = "ingest:cycle"
	defaultArchiveRoot = "ingest"
)

type Config struct {
	Scope       Scope
	Concurrency int
	LockTTL     time.Duration
	// WindowDays re-centres the fixture window on each cycle's start when > 0.
	WindowDays int
}

// ConfigFromEnv reads INGEST_* settings. The fixture window is centred on now.
func ConfigFromEnv(now time.Time) Config {
	var leagues []int
	for _, raw := range env.GetEnvList("INGEST_LEAGUES") {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			log.Warnf("[Ingest] ignoring invalid league id %q", raw)
			continue
		}
		leagues = append(leagues, id)
	}

	cfg := Config{
		Scope: Scope{
			Leagues:     leagues,
			Season:      env.GetEnvInt("INGEST_SEASON", now.Year()),
			MaxFixtures: env.GetEnvInt("INGEST_MAX_FIXTURES", defaultMaxFixtures),
		},
		Concurrency: env.GetEnvInt("INGEST_FETCH_CONCURRENCY", defaultConcurrency),
		LockTTL:     env.GetEnvDuration("INGEST_LOCK_TTL", defaultLockTTL),
		WindowDays:  env.GetEnvInt("INGEST_FIXTURE_WINDOW_DAYS", defaultWindowDays),
	}
	cfg.Scope = cfg.scopeAt(now)
	return cfg
}

func (c Config) scopeAt(now time.Time) Scope {
	scope := c.Scope
	if c.WindowDays > 0 {
		day := now.UTC().Truncate(24 * time.Hour)
		scope.FixtureFrom = day.AddDate(0, 0, -c.WindowDays)
		scope.FixtureTo = day.AddDate(0, 0, c.WindowDays)
	}
	return scope
}
