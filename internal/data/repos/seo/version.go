package seo

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type VersionRepo interface {
	Create(dbc dbctx.Context, v *types.VersionRecord) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VersionRecord, error)
	// NextNumber returns max(version_number)+1 for the page, starting at 1.
	NextNumber(dbc dbctx.Context, pageID uuid.UUID) (int, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*types.VersionRecord, error)
	ListByPage(dbc dbctx.Context, pageID uuid.UUID) ([]*types.VersionRecord, error)
}

type versionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return &versionRepo{db: db, log: baseLog.With("repo", "VersionRepo")}
}

func (r *versionRepo) Create(dbc dbctx.Context, v *types.VersionRecord) error {
	return dbc.Conn(r.db).Create(v).Error
}

func (r *versionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VersionRecord, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var v types.VersionRecord
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&v).Error; err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		return nil, nil
	}
	return &v, nil
}

func (r *versionRepo) NextNumber(dbc dbctx.Context, pageID uuid.UUID) (int, error) {
	var max *int
	err := dbc.Conn(r.db).
		Model(&types.VersionRecord{}).
		Where("seo_page_id = ?", pageID).
		Select("MAX(version_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

func (r *versionRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.VersionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	out := []*types.VersionRecord{}
	if err := dbc.Conn(r.db).Order("created_at DESC").Order("version_number DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *versionRepo) ListByPage(dbc dbctx.Context, pageID uuid.UUID) ([]*types.VersionRecord, error) {
	out := []*types.VersionRecord{}
	if pageID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("seo_page_id = ?", pageID).Order("version_number ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
