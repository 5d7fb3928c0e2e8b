package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type EnqueueInput struct {
	PageType          types.PageType
	EntityID          uuid.UUID
	TriggeredBy       string
	TriggeredByUser   *uuid.UUID
	TriggeredByClinic *uuid.UUID
}

type EnqueueResult struct {
	Item    *types.QueueItem
	Created bool
}

type QueueService interface {
	// Enqueue returns the entity's active item when one exists.
	Enqueue(ctx context.Context, in EnqueueInput) (*EnqueueResult, error)
	Get(ctx context.Context, id uuid.UUID) (*types.QueueItem, error)
	List(ctx context.Context, filter repos.QueueFilter) ([]*types.QueueItem, error)
	// Reject forces the item to failed regardless of its current status.
	Reject(ctx context.Context, id uuid.UUID) (*types.QueueItem, error)
}

type queueService struct {
	db       *gorm.DB
	log      *logger.Logger
	queue    repos.QueueRepo
	entities entityStore
}

func NewQueueService(db *gorm.DB, baseLog *logger.Logger, queue repos.QueueRepo, states repos.StateRepo, cities repos.CityRepo) QueueService {
	return &queueService{
		db:       db,
		log:      baseLog.With("service", "QueueService"),
		queue:    queue,
		entities: entityStore{states: states, cities: cities},
	}
}

func (s *queueService) Enqueue(ctx context.Context, in EnqueueInput) (*EnqueueResult, error) {
	if in.EntityID == uuid.Nil {
		return nil, apierr.BadRequest("entityId is required")
	}
	var out *EnqueueResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		ent, err := s.entities.load(dbc, in.PageType, in.EntityID)
		if err != nil {
			return err
		}
		existing, err := s.queue.GetActiveByEntity(dbc, in.PageType, in.EntityID)
		if err != nil {
			return err
		}
		if existing != nil {
			out = &EnqueueResult{Item: existing}
			return nil
		}
		priority := 0
		if in.TriggeredBy == seo.TriggeredByListing {
			priority = seo.ListingPriority
		}
		item := &types.QueueItem{
			ID:                uuid.New(),
			PageType:          in.PageType,
			EntityID:          ent.ID,
			EntitySlug:        ent.Slug,
			StateSlug:         ent.StateSlug(),
			Status:            types.QueueStatusPending,
			Priority:          priority,
			TriggeredBy:       in.TriggeredBy,
			TriggeredByUser:   in.TriggeredByUser,
			TriggeredByClinic: in.TriggeredByClinic,
		}
		if err := s.queue.Create(dbc, item); err != nil {
			return err
		}
		out = &EnqueueResult{Item: item, Created: true}
		return nil
	})
	if err != nil && repos.IsUniqueViolation(err) {
		// Lost the race to a concurrent enqueue; the winner's row is the answer.
		existing, lookupErr := s.queue.GetActiveByEntity(dbctx.Context{Ctx: ctx}, in.PageType, in.EntityID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing == nil {
			return nil, fmt.Errorf("enqueue conflict without active item: %w", err)
		}
		return &EnqueueResult{Item: existing}, nil
	}
	if err != nil {
		return nil, err
	}
	if out.Created {
		s.log.Info("queue item created", "queue_id", out.Item.ID, "page_type", in.PageType, "entity_id", in.EntityID, "priority", out.Item.Priority)
	}
	return out, nil
}

func (s *queueService) Get(ctx context.Context, id uuid.UUID) (*types.QueueItem, error) {
	item, err := s.queue.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apierr.NotFound("Queue item")
	}
	return item, nil
}

func (s *queueService) List(ctx context.Context, filter repos.QueueFilter) ([]*types.QueueItem, error) {
	return s.queue.List(dbctx.Context{Ctx: ctx}, filter)
}

func (s *queueService) Reject(ctx context.Context, id uuid.UUID) (*types.QueueItem, error) {
	dbc := dbctx.Context{Ctx: ctx}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.queue.UpdateFields(dbc, item.ID, map[string]interface{}{
		"status":        types.QueueStatusFailed,
		"error_message": seo.RejectedMessage,
	}); err != nil {
		return nil, err
	}
	item.Status = types.QueueStatusFailed
	item.ErrorMessage = seo.RejectedMessage
	s.log.Info("queue item rejected", "queue_id", item.ID)
	return item, nil
}
