package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/pkg/types"
)

// batchConcurrency bounds the number of pipeline executions in flight
// at once during a batch evaluation (spec.md §5).
const batchConcurrency = 20

// EvaluateBatch fans the events out across a fixed-size semaphore,
// preserving the caller's ordering in the response (spec.md §6).
func (p *Pipeline) EvaluateBatch(ctx context.Context, events []types.NotificationEvent) *types.BatchDecisionResult {
	results := make([]types.DecisionResult, len(events))
	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup

	for i := range events {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = *p.evaluateItem(ctx, &events[i])
		}(i)
	}
	wg.Wait()

	return &types.BatchDecisionResult{
		BatchID:     uuid.New().String(),
		Total:       len(events),
		Results:     results,
		ProcessedAt: time.Now(),
	}
}

// evaluateItem runs one event through the pipeline, recovering any panic
// into a synthetic LATER decision instead of letting it take the whole
// batch goroutine down (original_source/app/api/notifications.py's
// eval_one wraps the same call in try/except for the same reason).
func (p *Pipeline) evaluateItem(ctx context.Context, event *types.NotificationEvent) (result *types.DecisionResult) {
	defer func() {
		if r := recover(); r != nil {
			scheduledAt := time.Now().Add(time.Hour)
			result = &types.DecisionResult{
				EventID:  uuid.New().String(),
				UserID:   event.UserID,
				Decision: types.DecisionLater,
				ReasonChain: []types.ReasonStep{{
					Layer:  "L6-Dispatch",
					Check:  "pipeline_error",
					Result: "ERROR",
					Detail: fmt.Sprintf("recovered panic: %v", r),
				}},
				ScheduledAt: &scheduledAt,
				ProcessedAt: time.Now(),
			}
		}
	}()
	return p.Evaluate(ctx, event)
}
