package seo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type QueueFilter struct {
	Status   types.QueueStatus
	PageType types.PageType
	Limit    int
}

type QueueRepo interface {
	Create(dbc dbctx.Context, item *types.QueueItem) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueueItem, error)
	GetActiveByEntity(dbc dbctx.Context, pageType types.PageType, entityID uuid.UUID) (*types.QueueItem, error)
	// List orders by priority DESC then created_at DESC.
	List(dbc dbctx.Context, filter QueueFilter) ([]*types.QueueItem, error)
	// ListRunnable returns items with the given status in drain order:
	// priority DESC then created_at ASC.
	ListRunnable(dbc dbctx.Context, status types.QueueStatus, limit int) ([]*types.QueueItem, error)
	// MarkProcessing moves the item to processing and counts the attempt.
	// restart begins a fresh attempt cycle for an item that had failed.
	MarkProcessing(dbc dbctx.Context, id uuid.UUID, at time.Time, restart bool) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	CountByStatus(dbc dbctx.Context, status types.QueueStatus) (int64, error)
	// CountAttemptsSince sums generation_attempts over items attempted since
	// the given time.
	CountAttemptsSince(dbc dbctx.Context, since time.Time) (int64, error)
}

type queueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return &queueRepo{db: db, log: baseLog.With("repo", "QueueRepo")}
}

func (r *queueRepo) Create(dbc dbctx.Context, item *types.QueueItem) error {
	return dbc.Conn(r.db).Create(item).Error
}

func (r *queueRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueueItem, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var item types.QueueItem
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *queueRepo) GetActiveByEntity(dbc dbctx.Context, pageType types.PageType, entityID uuid.UUID) (*types.QueueItem, error) {
	if entityID == uuid.Nil || pageType == "" {
		return nil, nil
	}
	var item types.QueueItem
	err := dbc.Conn(r.db).
		Where("page_type = ? AND entity_id = ? AND status IN ?", pageType, entityID, seo.ActiveQueueStatuses).
		Order("created_at DESC").
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *queueRepo) List(dbc dbctx.Context, filter QueueFilter) ([]*types.QueueItem, error) {
	q := dbc.Conn(r.db).Model(&types.QueueItem{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PageType != "" {
		q = q.Where("page_type = ?", filter.PageType)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	out := []*types.QueueItem{}
	if err := q.Order("priority DESC").Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *queueRepo) ListRunnable(dbc dbctx.Context, status types.QueueStatus, limit int) ([]*types.QueueItem, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []*types.QueueItem{}
	err := dbc.Conn(r.db).
		Where("status = ?", status).
		Order("priority DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *queueRepo) MarkProcessing(dbc dbctx.Context, id uuid.UUID, at time.Time, restart bool) error {
	if id == uuid.Nil {
		return nil
	}
	var attempts interface{} = gorm.Expr("generation_attempts + 1")
	if restart {
		attempts = 1
	}
	return dbc.Conn(r.db).
		Model(&types.QueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              types.QueueStatusProcessing,
			"last_attempt_at":     at,
			"generation_attempts": attempts,
			"error_message":       "",
			"updated_at":          at,
		}).Error
}

func (r *queueRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).Model(&types.QueueItem{}).Where("id = ?", id).Updates(updates).Error
}

func (r *queueRepo) CountByStatus(dbc dbctx.Context, status types.QueueStatus) (int64, error) {
	var n int64
	if err := dbc.Conn(r.db).Model(&types.QueueItem{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *queueRepo) CountAttemptsSince(dbc dbctx.Context, since time.Time) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.QueueItem{}).
		Select("COALESCE(SUM(generation_attempts), 0)").
		Where("last_attempt_at >= ?", since).
		Scan(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}
