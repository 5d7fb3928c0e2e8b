package db

import (
	"fmt"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Geography (seeded elsewhere)
		&types.State{},
		&types.City{},

		// Pipeline
		&types.QueueItem{},
		&types.Page{},
		&types.VersionRecord{},
		&types.Setting{},
		&types.AuditRun{},

		// Identity
		&types.UserRole{},
	)
}

// EnsureIndexes creates indexes gorm tags cannot express. The statements are
// valid on both postgres and sqlite.
func EnsureIndexes(db *gorm.DB) error {
	// At most one active queue item per entity.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_active_entity
		ON page_generation_queue (page_type, entity_id)
		WHERE status IN ('pending', 'processing', 'generated');
	`).Error; err != nil {
		return fmt.Errorf("create idx_queue_active_entity: %w", err)
	}
	// Drain order for schedulers.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_queue_status_priority
		ON page_generation_queue (status, priority DESC, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_queue_status_priority: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_content_versions_page_number
		ON content_versions (seo_page_id, version_number);
	`).Error; err != nil {
		return fmt.Errorf("create idx_content_versions_page_number: %w", err)
	}
	return nil
}
