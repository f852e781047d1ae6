package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/ingest"
	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
)

// CycleRunner runs one ingestion cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) *ingest.Summary
}

// Expirer moves lapsed subscriptions to expired.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type Config struct {
	IngestSchedule string
	ExpirySchedule string
	RunOnStart     bool
}

func ConfigFromEnv() Config {
	return Config{
		IngestSchedule: env.GetEnv("INGEST_SCHEDULE", "*/30 * * * *"),
		ExpirySchedule: env.GetEnv("EXPIRY_SCHEDULE", "@every 10m"),
		RunOnStart:     env.GetEnvBool("INGEST_RUN_ON_START", true),
	}
}

// Manager owns the worker's scheduled jobs.
type Manager struct {
	cfg     Config
	ingest  CycleRunner
	expirer Expirer
	now     func() time.Time

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewManager wires the ingestion and expiry jobs. Either runner may be nil.
func NewManager(cfg Config, ingest CycleRunner, expirer Expirer) *Manager {
	return &Manager{cfg: cfg, ingest: ingest, expirer: expirer, now: time.Now}
}

// Start registers the jobs and starts the cron scheduler.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	logger := cronLogger{}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)), cron.WithLogger(logger))
	if m.ingest != nil {
		if _, err := c.AddFunc(m.cfg.IngestSchedule, m.runIngest); err != nil {
			return fmt.Errorf("invalid ingest schedule %q: %w", m.cfg.IngestSchedule, err)
		}
	}
	if m.expirer != nil {
		if _, err := c.AddFunc(m.cfg.ExpirySchedule, m.runExpiry); err != nil {
			return fmt.Errorf("invalid expiry schedule %q: %w", m.cfg.ExpirySchedule, err)
		}
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.cron = c
	m.running = true
	c.Start()
	log.Infof("[Worker] started ingest=%q expiry=%q", m.cfg.IngestSchedule, m.cfg.ExpirySchedule)

	if m.cfg.RunOnStart && m.ingest != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runIngest()
		}()
	}
	return nil
}

// Stop cancels in-flight jobs between steps and waits for them to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	log.Info("[Worker] stopping...")

	m.cancel()
	<-m.cron.Stop().Done()
	m.wg.Wait()
	m.running = false

	log.Info("[Worker] stopped")
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunOnce runs a single ingestion cycle and expiry sweep outside the schedule.
func (m *Manager) RunOnce(ctx context.Context) *ingest.Summary {
	if m.expirer != nil {
		if n, err := m.expirer.ExpireDue(ctx, m.now()); err != nil {
			log.Errorf("[Worker] expiry sweep failed after %d subscriptions: %v", n, err)
		} else if n > 0 {
			log.Infof("[Worker] expired %d subscriptions", n)
		}
	}
	return m.ingest.RunCycle(ctx)
}

func (m *Manager) runIngest() {
	sum := m.ingest.RunCycle(m.ctx)
	if sum.Skipped {
		log.Infof("[Worker] ingest cycle skipped: %s", sum.SkipReason)
	}
}

func (m *Manager) runExpiry() {
	n, err := m.expirer.ExpireDue(m.ctx, m.now())
	if err != nil {
		log.Errorf("[Worker] expiry sweep failed after %d subscriptions: %v", n, err)
		return
	}
	if n > 0 {
		log.Infof("[Worker] expired %d subscriptions", n)
	}
}

// cronLogger routes cron's own logging through the fiber logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debugf("[Worker] cron %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Errorf("[Worker] cron %s: %v %v", msg, err, keysAndValues)
}
