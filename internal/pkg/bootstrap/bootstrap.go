// Package bootstrap assembles the API and worker processes from the
// environment.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/repository"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/billing"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/cache"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/database"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/ingest"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/router"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/s3archive"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/sportsdata"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/statistics"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/worker"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultTokenTTL = 24 * time.Hour

// Services are the shared backends of both processes.
type Services struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Repositories *repository.Repositories
	Ledger       *billing.Ledger
}

// Setup loads the environment and connects to MySQL and Redis.
func Setup() *Services {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	return &Services{
		DB:           db,
		Redis:        cache.GetClient(),
		Repositories: repository.GetGlobalRepositories(),
		Ledger:       billing.NewLedgerFromDB(db, billing.ConfigFromEnv()),
	}
}

// NewAPI builds the fiber application serving the HTTP API.
func NewAPI(s *Services) *fiber.App {
	secret := env.GetEnv("JWT_SECRET", "")
	if secret == "" {
		if !env.IsDev() {
			log.Fatal("JWT_SECRET must be set")
		}
		secret = "dev-only-secret"
		log.Println("Warning: JWT_SECRET not set, using development secret")
	}

	app := fiber.New(fiber.Config{
		AppName:   "OddsRaiders API",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if specPath := findFile("docs/openapi.yml"); specPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	} else {
		log.Println("Warning: docs/openapi.yml not found, API docs disabled")
	}

	var limiterStorage fiber.Storage
	if env.GetEnvBool("RATE_LIMIT_REDIS", true) {
		limiterStorage = router.NewLimiterStorage()
	}

	ledgerCfg := s.Ledger.Config()
	webhook := billing.NewWebhookProcessor(
		s.Ledger,
		billing.NewRepository(s.DB),
		billing.NewPayFastVerifier(ledgerCfg.PayFast),
	)

	router.InstallRouter(app, router.Dependencies{
		Repositories:   s.Repositories,
		Ledger:         s.Ledger,
		Webhook:        webhook,
		Stats:          statistics.NewServiceFromDB(s.DB),
		JWTSecret:      secret,
		TokenTTL:       env.GetEnvDuration("JWT_TTL", defaultTokenTTL),
		LimiterStorage: limiterStorage,
	})

	return app
}

// NewWorker builds the scheduler for ingestion cycles and expiry sweeps.
func NewWorker(ctx context.Context, s *Services) (*worker.Manager, error) {
	now := time.Now()
	ingestCfg := ingest.ConfigFromEnv(now)
	if len(ingestCfg.Scope.Leagues) == 0 {
		return nil, fmt.Errorf("INGEST_LEAGUES must list at least one league id")
	}

	deps := ingest.Deps{
		Runs:   ingest.NewGormStore(s.DB),
		Locker: ingest.NewRedisLocker(s.Redis, env.GetEnv("INGEST_LOCK_KEY", ""), ingestCfg.LockTTL),
	}

	archiveCfg, err := s3archive.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("archive config: %w", err)
	}
	if archiveCfg.Enabled {
		archive, err := s3archive.NewClient(ctx, archiveCfg)
		if err != nil {
			// Archiving is best effort; ingestion runs without it.
			log.Printf("Warning: payload archive disabled: %v", err)
		} else {
			deps.Archiver = archive
		}
	}

	scheduler := ingest.NewScheduler(
		sportsdata.NewClient(sportsdata.ConfigFromEnv()),
		ingest.NewGormStore(s.DB),
		ingestCfg,
		deps,
	)
	return worker.NewManager(worker.ConfigFromEnv(), scheduler, s.Ledger), nil
}

// ListenAddr is the API's host:port.
func ListenAddr() string {
	return fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
}

func findFile(rel string) string {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + rel); err == nil {
			return base + rel
		}
	}
	return ""
}
