package geo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type CityRepo interface {
	Create(dbc dbctx.Context, cities []*types.City) ([]*types.City, error)
	// GetByID preloads the parent state.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.City, error)
	ListIDsByState(dbc dbctx.Context, stateID uuid.UUID) ([]uuid.UUID, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Count(dbc dbctx.Context, status *types.SEOStatus) (int64, error)
}

type cityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCityRepo(db *gorm.DB, baseLog *logger.Logger) CityRepo {
	return &cityRepo{db: db, log: baseLog.With("repo", "CityRepo")}
}

func (r *cityRepo) Create(dbc dbctx.Context, cities []*types.City) ([]*types.City, error) {
	if len(cities) == 0 {
		return []*types.City{}, nil
	}
	if err := dbc.Conn(r.db).Omit("State").Create(&cities).Error; err != nil {
		return nil, err
	}
	return cities, nil
}

func (r *cityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.City, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.City
	if err := dbc.Conn(r.db).Preload("State").Where("id = ?", id).Limit(1).Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *cityRepo) ListIDsByState(dbc dbctx.Context, stateID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	if stateID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).Model(&types.City{}).Where("state_id = ?", stateID).Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *cityRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).Model(&types.City{}).Where("id = ?", id).Updates(updates).Error
}

func (r *cityRepo) Count(dbc dbctx.Context, status *types.SEOStatus) (int64, error) {
	q := dbc.Conn(r.db).Model(&types.City{})
	if status != nil {
		q = q.Where("seo_status = ?", *status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
