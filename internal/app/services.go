package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/batch"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/content"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
	"github.com/yungbote/geoseo-backend/internal/services"
)

type Services struct {
	Settings   services.SettingsService
	Queue      services.QueueService
	Budget     services.GenerationBudget
	Publisher  services.PublisherService
	Rollback   services.RollbackService
	Generation services.GenerationService
	Stats      services.StatsService
	Audit      services.AuditService
	Identity   services.IdentityService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) Services {
	log.Info("Wiring services...")
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY is empty; bearer tokens will be rejected")
	}

	generator := content.NewGenerator(log, c.AI, rules.GenerationPolicy)

	settings := services.NewSettingsService(log, r.Setting)
	publisher := services.NewPublisherService(db, log, r.Queue, r.Page, r.Version, r.State, r.City, settings)
	budget := services.NewGenerationBudget(log, c.Counter, r.Queue)

	return Services{
		Settings:   settings,
		Queue:      services.NewQueueService(db, log, r.Queue, r.State, r.City),
		Budget:     budget,
		Publisher:  publisher,
		Rollback:   services.NewRollbackService(db, log, r.Page, r.Version, r.State, r.City, settings),
		Generation: services.NewGenerationService(log, r.Queue, r.Page, r.State, r.City, generator, settings, budget, publisher),
		Stats:      services.NewStatsService(log, r.State, r.City, r.Queue, r.Version),
		Audit:      services.NewAuditService(db, log, r.Page, r.Version, r.AuditRun, generator, fixRunner(log, cfg.BatchDelay)),
		Identity:   services.NewIdentityService(log, r.UserRole, cfg.JWTSecretKey),
	}
}

func fixRunner(log *logger.Logger, delay time.Duration) *batch.Runner {
	return batch.NewRunner(log.With("batch", "fix_issues"), delay)
}
