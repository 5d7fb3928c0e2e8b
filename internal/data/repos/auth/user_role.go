package auth

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type UserRoleRepo interface {
	Create(dbc dbctx.Context, roles []*types.UserRole) ([]*types.UserRole, error)
	HasAnyRole(dbc dbctx.Context, userID uuid.UUID, roles []string) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserRole, error)
}

type userRoleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRoleRepo(db *gorm.DB, baseLog *logger.Logger) UserRoleRepo {
	return &userRoleRepo{db: db, log: baseLog.With("repo", "UserRoleRepo")}
}

func (r *userRoleRepo) Create(dbc dbctx.Context, roles []*types.UserRole) ([]*types.UserRole, error) {
	if len(roles) == 0 {
		return []*types.UserRole{}, nil
	}
	if err := dbc.Conn(r.db).Create(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *userRoleRepo) HasAnyRole(dbc dbctx.Context, userID uuid.UUID, roles []string) (bool, error) {
	if userID == uuid.Nil || len(roles) == 0 {
		return false, nil
	}
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.UserRole{}).
		Where("user_id = ? AND role IN ?", userID, roles).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userRoleRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserRole, error) {
	out := []*types.UserRole{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("user_id = ?", userID).Order("role ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
