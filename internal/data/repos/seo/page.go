package seo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type PageRepo interface {
	Create(dbc dbctx.Context, page *types.Page) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Page, error)
	GetBySlug(dbc dbctx.Context, slug string, pageType types.PageType) (*types.Page, error)
	ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Page, error)
	// ListSiblings returns up to limit pages of pageType, optionally scoped to
	// entityIDs, excluding excludeEntity.
	ListSiblings(dbc dbctx.Context, pageType types.PageType, entityIDs []uuid.UUID, excludeEntity uuid.UUID, limit int) ([]*types.Page, error)
	ListAll(dbc dbctx.Context, pageType types.PageType) ([]*types.Page, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type pageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPageRepo(db *gorm.DB, baseLog *logger.Logger) PageRepo {
	return &pageRepo{db: db, log: baseLog.With("repo", "PageRepo")}
}

func (r *pageRepo) Create(dbc dbctx.Context, page *types.Page) error {
	return dbc.Conn(r.db).Create(page).Error
}

func (r *pageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Page, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var p types.Page
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *pageRepo) GetBySlug(dbc dbctx.Context, slug string, pageType types.PageType) (*types.Page, error) {
	if slug == "" || pageType == "" {
		return nil, nil
	}
	var p types.Page
	if err := dbc.Conn(r.db).Where("slug = ? AND page_type = ?", slug, pageType).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *pageRepo) ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Page, error) {
	out := []*types.Page{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pageRepo) ListSiblings(dbc dbctx.Context, pageType types.PageType, entityIDs []uuid.UUID, excludeEntity uuid.UUID, limit int) ([]*types.Page, error) {
	out := []*types.Page{}
	if entityIDs != nil && len(entityIDs) == 0 {
		return out, nil
	}
	q := dbc.Conn(r.db).Where("page_type = ?", pageType)
	if len(entityIDs) > 0 {
		q = q.Where("entity_id IN ?", entityIDs)
	}
	if excludeEntity != uuid.Nil {
		q = q.Where("entity_id <> ?", excludeEntity)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pageRepo) ListAll(dbc dbctx.Context, pageType types.PageType) ([]*types.Page, error) {
	q := dbc.Conn(r.db).Model(&types.Page{})
	if pageType != "" {
		q = q.Where("page_type = ?", pageType)
	}
	out := []*types.Page{}
	if err := q.Order("page_type ASC").Order("slug ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).Model(&types.Page{}).Where("id = ?", id).Updates(updates).Error
}

func (r *pageRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Page{}).Error
}
