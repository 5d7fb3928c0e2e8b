package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type Repos struct {
	State    repos.StateRepo
	City     repos.CityRepo
	Queue    repos.QueueRepo
	Page     repos.PageRepo
	Version  repos.VersionRepo
	Setting  repos.SettingRepo
	AuditRun repos.AuditRunRepo
	UserRole repos.UserRoleRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		State:    repos.NewStateRepo(db, log),
		City:     repos.NewCityRepo(db, log),
		Queue:    repos.NewQueueRepo(db, log),
		Page:     repos.NewPageRepo(db, log),
		Version:  repos.NewVersionRepo(db, log),
		Setting:  repos.NewSettingRepo(db, log),
		AuditRun: repos.NewAuditRunRepo(db, log),
		UserRole: repos.NewUserRoleRepo(db, log),
	}
}
