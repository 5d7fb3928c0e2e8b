package services

import (
	"context"
	"time"

	"github.com/yungbote/geoseo-backend/internal/clients/redis"
	"github.com/yungbote/geoseo-backend/internal/data/repos"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

// GenerationBudget enforces daily_generation_limit. With a Redis counter the
// reservation is atomic across processes; without one it falls back to
// counting today's queue attempts, which ignores preview generations.
type GenerationBudget interface {
	Reserve(ctx context.Context, limit int) (bool, error)
}

type generationBudget struct {
	log     *logger.Logger
	counter redis.GenerationCounter
	queue   repos.QueueRepo
	now     func() time.Time
}

func NewGenerationBudget(baseLog *logger.Logger, counter redis.GenerationCounter, queue repos.QueueRepo) GenerationBudget {
	return &generationBudget{
		log:     baseLog.With("service", "GenerationBudget"),
		counter: counter,
		queue:   queue,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (b *generationBudget) Reserve(ctx context.Context, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	now := b.now()
	if b.counter != nil {
		ok, n, err := b.counter.Reserve(ctx, now, limit)
		if err == nil {
			return ok, nil
		}
		b.log.Warn("redis generation counter unavailable, using queue count", "error", err, "count", n)
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	used, err := b.queue.CountAttemptsSince(dbctx.Context{Ctx: ctx}, day)
	if err != nil {
		return false, err
	}
	return used < int64(limit), nil
}
