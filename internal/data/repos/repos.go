package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/data/repos/auth"
	"github.com/yungbote/geoseo-backend/internal/data/repos/geo"
	"github.com/yungbote/geoseo-backend/internal/data/repos/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type StateRepo = geo.StateRepo
type CityRepo = geo.CityRepo

type QueueRepo = seo.QueueRepo
type QueueFilter = seo.QueueFilter
type PageRepo = seo.PageRepo
type VersionRepo = seo.VersionRepo
type SettingRepo = seo.SettingRepo
type AuditRunRepo = seo.AuditRunRepo

type UserRoleRepo = auth.UserRoleRepo

func NewStateRepo(db *gorm.DB, baseLog *logger.Logger) StateRepo {
	return geo.NewStateRepo(db, baseLog)
}

func NewCityRepo(db *gorm.DB, baseLog *logger.Logger) CityRepo {
	return geo.NewCityRepo(db, baseLog)
}

func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return seo.NewQueueRepo(db, baseLog)
}

func NewPageRepo(db *gorm.DB, baseLog *logger.Logger) PageRepo {
	return seo.NewPageRepo(db, baseLog)
}

func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return seo.NewVersionRepo(db, baseLog)
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return seo.NewSettingRepo(db, baseLog)
}

func NewAuditRunRepo(db *gorm.DB, baseLog *logger.Logger) AuditRunRepo {
	return seo.NewAuditRunRepo(db, baseLog)
}

func NewUserRoleRepo(db *gorm.DB, baseLog *logger.Logger) UserRoleRepo {
	return auth.NewUserRoleRepo(db, baseLog)
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool { return seo.IsUniqueViolation(err) }
