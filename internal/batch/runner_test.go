package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestRunnerContinuesPastFailures(t *testing.T) {
	r := NewRunner(logger.Nop(), 0)
	in := ids(3)
	sum := r.Run(context.Background(), in, func(_ context.Context, id uuid.UUID) (any, error) {
		if id == in[1] {
			return nil, errors.New("boom")
		}
		return "ok", nil
	})
	if sum.Succeeded != 2 || sum.Failed != 1 || sum.Stopped != 0 {
		t.Fatalf("summary: want 2/1/0 got %d/%d/%d", sum.Succeeded, sum.Failed, sum.Stopped)
	}
	if sum.Results[1].Error != "boom" {
		t.Fatalf("Results[1].Error: want=boom got=%q", sum.Results[1].Error)
	}
}

func TestRunnerStopsBeforeNextUnit(t *testing.T) {
	r := NewRunner(logger.Nop(), time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := ids(4)
	var seen []uuid.UUID
	var callbacks int
	r.OnResult = func(ItemResult) { callbacks++ }
	sum := r.Run(ctx, in, func(unitCtx context.Context, id uuid.UUID) (any, error) {
		seen = append(seen, id)
		if len(seen) == 2 {
			cancel()
			if unitCtx.Err() != nil {
				t.Fatalf("in-flight unit must not observe cancellation")
			}
		}
		return nil, nil
	})
	if len(seen) != 2 {
		t.Fatalf("processed: want=2 got=%d", len(seen))
	}
	if sum.Succeeded != 2 || sum.Stopped != 2 {
		t.Fatalf("summary: want succeeded=2 stopped=2 got %d/%d", sum.Succeeded, sum.Stopped)
	}
	if sum.Results[3].Outcome != OutcomeStopped || callbacks != 4 {
		t.Fatalf("stopped results: outcome=%s callbacks=%d", sum.Results[3].Outcome, callbacks)
	}
}
