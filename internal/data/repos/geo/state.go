package geo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type StateRepo interface {
	Create(dbc dbctx.Context, states []*types.State) ([]*types.State, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.State, error)
	GetBySlug(dbc dbctx.Context, slug string) (*types.State, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Count(dbc dbctx.Context, status *types.SEOStatus) (int64, error)
}

type stateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStateRepo(db *gorm.DB, baseLog *logger.Logger) StateRepo {
	return &stateRepo{db: db, log: baseLog.With("repo", "StateRepo")}
}

func (r *stateRepo) Create(dbc dbctx.Context, states []*types.State) ([]*types.State, error) {
	if len(states) == 0 {
		return []*types.State{}, nil
	}
	if err := dbc.Conn(r.db).Create(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func (r *stateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.State, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.State
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *stateRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.State, error) {
	if slug == "" {
		return nil, nil
	}
	var s types.State
	if err := dbc.Conn(r.db).Where("slug = ?", slug).Limit(1).Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *stateRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).Model(&types.State{}).Where("id = ?", id).Updates(updates).Error
}

func (r *stateRepo) Count(dbc dbctx.Context, status *types.SEOStatus) (int64, error) {
	q := dbc.Conn(r.db).Model(&types.State{})
	if status != nil {
		q = q.Where("seo_status = ?", *status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
