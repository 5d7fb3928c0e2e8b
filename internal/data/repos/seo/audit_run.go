package seo

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type AuditRunRepo interface {
	Create(dbc dbctx.Context, run *types.AuditRun) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	GetLatestCompleted(dbc dbctx.Context, runType string) (*types.AuditRun, error)
}

type auditRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRunRepo(db *gorm.DB, baseLog *logger.Logger) AuditRunRepo {
	return &auditRunRepo{db: db, log: baseLog.With("repo", "AuditRunRepo")}
}

func (r *auditRunRepo) Create(dbc dbctx.Context, run *types.AuditRun) error {
	return dbc.Conn(r.db).Create(run).Error
}

func (r *auditRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Model(&types.AuditRun{}).Where("id = ?", id).Updates(updates).Error
}

func (r *auditRunRepo) GetLatestCompleted(dbc dbctx.Context, runType string) (*types.AuditRun, error) {
	var run types.AuditRun
	err := dbc.Conn(r.db).
		Where("run_type = ? AND status = ?", runType, seo.AuditStatusCompleted).
		Order("created_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}
