package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/batch"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/services"
)

const ChangedByBatchPublish = "batch-publish"

type GenerateBatchInput struct {
	Status   types.QueueStatus
	Limit    int
	Delay    time.Duration
	OnResult func(batch.ItemResult)
}

// GenerateQueue drains queue items with the given status in priority order.
// Hitting the daily cap stops the remaining items.
func (a *App) GenerateQueue(ctx context.Context, in GenerateBatchInput) (batch.Summary, error) {
	status := in.Status
	if status == "" {
		status = types.QueueStatusPending
	}
	if status != types.QueueStatusPending && status != types.QueueStatusFailed {
		return batch.Summary{}, apierr.BadRequest("cannot generate items in status %s", status)
	}
	items, err := a.Repos.Queue.ListRunnable(dbctx.Context{Ctx: ctx}, status, in.Limit)
	if err != nil {
		return batch.Summary{}, err
	}
	byID := make(map[uuid.UUID]*types.QueueItem, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		ids = append(ids, it.ID)
	}
	a.Log.Info("batch generate", "status", status, "items", len(ids), "delay", in.Delay)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runner := batch.NewRunner(a.Log, in.Delay)
	runner.OnResult = in.OnResult
	return runner.Run(ctx, ids, func(unitCtx context.Context, id uuid.UUID) (any, error) {
		it := byID[id]
		qid := it.ID
		res, err := a.Services.Generation.Generate(unitCtx, services.GenerateInput{
			PageType: it.PageType,
			EntityID: it.EntityID,
			QueueID:  &qid,
		})
		if err != nil {
			if apierr.Is(err, http.StatusTooManyRequests) {
				cancel()
			}
			return nil, err
		}
		if !res.Success {
			return res, errors.New(res.Error)
		}
		return res, nil
	}), nil
}

type PublishBatchInput struct {
	MinConfidence float64
	Limit         int
	Delay         time.Duration
	OnResult      func(batch.ItemResult)
}

// PublishGenerated publishes generated items whose confidence meets the
// threshold. Items below it are left generated.
func (a *App) PublishGenerated(ctx context.Context, in PublishBatchInput) (batch.Summary, error) {
	if in.MinConfidence < 0 || in.MinConfidence > 1 {
		return batch.Summary{}, apierr.BadRequest("min confidence must be between 0 and 1")
	}
	items, err := a.Repos.Queue.ListRunnable(dbctx.Context{Ctx: ctx}, types.QueueStatusGenerated, in.Limit)
	if err != nil {
		return batch.Summary{}, err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if it.AIConfidenceScore != nil && *it.AIConfidenceScore >= in.MinConfidence {
			ids = append(ids, it.ID)
		}
	}
	a.Log.Info("batch publish", "eligible", len(ids), "generated", len(items), "min_confidence", in.MinConfidence)

	runner := batch.NewRunner(a.Log, in.Delay)
	runner.OnResult = in.OnResult
	return runner.Run(ctx, ids, func(unitCtx context.Context, id uuid.UUID) (any, error) {
		res, err := a.Services.Publisher.Publish(unitCtx, services.PublishInput{QueueID: id, ChangedBy: ChangedByBatchPublish})
		if err != nil {
			return nil, fmt.Errorf("publish %s: %w", id, err)
		}
		return res, nil
	}), nil
}
