package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

// Outcome of one unit. Stopped marks units skipped after cancellation.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeStopped   Outcome = "stopped"
)

type ItemResult struct {
	ID      uuid.UUID `json:"id"`
	Outcome Outcome   `json:"outcome"`
	Error   string    `json:"error,omitempty"`
	Data    any       `json:"data,omitempty"`
}

type Summary struct {
	Results   []ItemResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Stopped   int          `json:"stopped"`
}

// Func processes one id. A returned error is recorded and the run continues.
type Func func(ctx context.Context, id uuid.UUID) (any, error)

type Runner struct {
	log   *logger.Logger
	delay time.Duration
	// OnResult, if set, is called after every unit including stopped ones.
	OnResult func(ItemResult)
}

func NewRunner(baseLog *logger.Logger, delay time.Duration) *Runner {
	if delay < 0 {
		delay = 0
	}
	return &Runner{log: baseLog.With("component", "BatchRunner"), delay: delay}
}

// Run processes ids in order. Cancellation is checked before each unit and
// during the pause between units; an in-flight unit is never interrupted by
// the runner, so fn receives a context detached from cancellation.
func (r *Runner) Run(ctx context.Context, ids []uuid.UUID, fn Func) Summary {
	sum := Summary{Results: make([]ItemResult, 0, len(ids))}
	unitCtx := context.WithoutCancel(ctx)
	stopped := false

	for i, id := range ids {
		if !stopped && i > 0 && r.delay > 0 {
			timer := time.NewTimer(r.delay)
			select {
			case <-ctx.Done():
				stopped = true
			case <-timer.C:
			}
			timer.Stop()
		}
		if !stopped && ctx.Err() != nil {
			stopped = true
		}
		if stopped {
			r.record(&sum, ItemResult{ID: id, Outcome: OutcomeStopped})
			continue
		}

		data, err := fn(unitCtx, id)
		if err != nil {
			r.log.Warn("batch unit failed", "id", id, "index", i, "error", err)
			r.record(&sum, ItemResult{ID: id, Outcome: OutcomeFailed, Error: err.Error(), Data: data})
			continue
		}
		r.record(&sum, ItemResult{ID: id, Outcome: OutcomeSucceeded, Data: data})
	}
	if stopped {
		r.log.Info("batch stopped", "succeeded", sum.Succeeded, "failed", sum.Failed, "stopped", sum.Stopped)
	}
	return sum
}

func (r *Runner) record(sum *Summary, res ItemResult) {
	sum.Results = append(sum.Results, res)
	switch res.Outcome {
	case OutcomeSucceeded:
		sum.Succeeded++
	case OutcomeFailed:
		sum.Failed++
	case OutcomeStopped:
		sum.Stopped++
	}
	if r.OnResult != nil {
		r.OnResult(res)
	}
}
