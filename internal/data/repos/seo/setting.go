package seo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type SettingRepo interface {
	GetByKey(dbc dbctx.Context, key string) (*types.Setting, error)
	List(dbc dbctx.Context) ([]*types.Setting, error)
	Upsert(dbc dbctx.Context, key string, value seo.SettingValue, updatedBy *uuid.UUID) (*types.Setting, error)
	// CreateIfMissing inserts the row unless the key already exists.
	CreateIfMissing(dbc dbctx.Context, s *types.Setting) error
}

type settingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return &settingRepo{db: db, log: baseLog.With("repo", "SettingRepo")}
}

func (r *settingRepo) GetByKey(dbc dbctx.Context, key string) (*types.Setting, error) {
	if key == "" {
		return nil, nil
	}
	var s types.Setting
	if err := dbc.Conn(r.db).Where("setting_key = ?", key).Limit(1).Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *settingRepo) List(dbc dbctx.Context) ([]*types.Setting, error) {
	out := []*types.Setting{}
	if err := dbc.Conn(r.db).Order("setting_key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *settingRepo) Upsert(dbc dbctx.Context, key string, value seo.SettingValue, updatedBy *uuid.UUID) (*types.Setting, error) {
	existing, err := r.GetByKey(dbc, key)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if existing == nil {
		row := &types.Setting{SettingKey: key, SettingValue: value, UpdatedBy: updatedBy, CreatedAt: now, UpdatedAt: now}
		if err := dbc.Conn(r.db).Create(row).Error; err != nil {
			return nil, err
		}
		return row, nil
	}
	if err := dbc.Conn(r.db).Model(&types.Setting{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
		"setting_value": value,
		"updated_by":    updatedBy,
		"updated_at":    now,
	}).Error; err != nil {
		return nil, err
	}
	existing.SettingValue = value
	existing.UpdatedBy = updatedBy
	existing.UpdatedAt = now
	return existing, nil
}

func (r *settingRepo) CreateIfMissing(dbc dbctx.Context, s *types.Setting) error {
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "setting_key"}}, DoNothing: true}).
		Create(s).Error
}
