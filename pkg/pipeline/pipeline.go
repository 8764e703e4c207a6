// Package pipeline orchestrates the six-stage decision flow — expiry,
// dedup, rules, enrichment, scoring, arbitration — and hands the
// terminal decision to the dispatcher. Grounded on the stage ordering
// described in spec.md §2 and §5, assembled from the original
// implementation's app/api/routes/notifications.py request handler.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/arbiter"
	"github.com/jsndz/notifyengine/pkg/dedup"
	"github.com/jsndz/notifyengine/pkg/dispatch"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/rules"
	"github.com/jsndz/notifyengine/pkg/scorer"
	"github.com/jsndz/notifyengine/pkg/types"
	"go.uber.org/zap"
)

// Pipeline wires the six stages together behind a single Evaluate call.
type Pipeline struct {
	guard    *dedup.Guard
	rules    *rules.Engine
	enricher *enrich.Enricher
	scorer   *scorer.Scorer
	arbiter  *arbiter.Arbiter
	dispatch *dispatch.Dispatcher
	log      *zap.Logger
}

func New(guard *dedup.Guard, rulesEngine *rules.Engine, enricher *enrich.Enricher, sc *scorer.Scorer, arb *arbiter.Arbiter, disp *dispatch.Dispatcher, log *zap.Logger) *Pipeline {
	return &Pipeline{guard: guard, rules: rulesEngine, enricher: enricher, scorer: sc, arbiter: arb, dispatch: disp, log: log}
}

// Evaluate runs one event through L0-L6, always returning a
// DecisionResult — every stage's outcome is folded into the reason
// chain regardless of where the event terminates (spec.md §2, §7).
func (p *Pipeline) Evaluate(ctx context.Context, event *types.NotificationEvent) *types.DecisionResult {
	eventID := uuid.New()
	now := time.Now()
	var chain []types.ReasonStep

	result := func(decision types.Decision, score *float64, scheduledAt *time.Time, ruleMatched string, aiUsed, fallbackUsed bool) *types.DecisionResult {
		return &types.DecisionResult{
			EventID:      eventID.String(),
			UserID:       event.UserID,
			Decision:     decision,
			Score:        score,
			ScheduledAt:  scheduledAt,
			ReasonChain:  chain,
			AIUsed:       aiUsed,
			FallbackUsed: fallbackUsed,
			RuleMatched:  ruleMatched,
			ProcessedAt:  now,
		}
	}

	terminate := func(decision types.Decision, score *float64, scheduledAt *time.Time, ruleMatched string, aiUsed, fallbackUsed bool) *types.DecisionResult {
		stored, err := p.dispatch.Dispatch(ctx, event, decision, score, scheduledAt, chain, aiUsed, fallbackUsed, ruleMatched)
		if err != nil {
			p.log.Error("pipeline.dispatch_failed", zap.Error(err), zap.String("user_id", event.UserID))
		} else {
			// Report the persisted row's id so audit lookups by the
			// returned event_id find the AuditEntry written with it.
			eventID = stored.ID
		}
		return result(decision, score, scheduledAt, ruleMatched, aiUsed, fallbackUsed)
	}

	metrics.EventsIngestedTotal.WithLabelValues(event.Source, event.EventType).Inc()

	// L0: expiry check.
	if event.ExpiresAt != nil && event.ExpiresAt.Before(now) {
		chain = append(chain, types.ReasonStep{
			Layer: "L0-Validate", Check: "expiry", Result: "SUPPRESS",
			Detail: "event expired before evaluation began",
		})
		metrics.EventsExpiredTotal.WithLabelValues(event.EventType).Inc()
		return terminate(types.DecisionNever, nil, nil, "", false, false)
	}
	chain = append(chain, types.ReasonStep{Layer: "L0-Validate", Check: "expiry", Result: "PASS"})

	// L1: dedup.
	dedupResult, err := p.guard.Check(ctx, event)
	chain = append(chain, dedupResult.Steps...)
	if err != nil {
		p.log.Warn("pipeline.dedup_check_failed", zap.Error(err))
	}
	if dedupResult.SuppressReason != "" {
		return terminate(types.DecisionNever, nil, nil, "", false, false)
	}

	// L2: rules.
	ruleDecision, ruleName, ruleSteps, err := p.rules.Evaluate(ctx, event, now)
	chain = append(chain, ruleSteps...)
	if err != nil {
		p.log.Warn("pipeline.rules_evaluate_failed", zap.Error(err))
	}
	if ruleDecision == "now" || ruleDecision == "never" {
		// A hard rule short-circuits straight to the arbiter, skipping
		// the expensive context+AI stages entirely.
		chain = append(chain, types.ReasonStep{
			Layer: "L4-AIScorer", Check: "skipped", Result: "SKIPPED",
			Detail: "AI scoring skipped — hard rule already decided",
		})
		verdict := p.arbiter.Decide(now, event, ruleDecision, ruleName, scorer.Result{}, &enrich.UserContext{}, chain)
		chain = verdict.ReasonChain
		return terminate(verdict.Decision, nil, verdict.ScheduledAt, ruleName, false, false)
	}

	// L3: context enrichment.
	uc := p.enricher.Enrich(ctx, event)
	chain = append(chain, types.ReasonStep{
		Layer: "L3-Context", Check: "enrichment", Result: "OK",
		Detail: "context gathered for scoring and arbitration",
	})

	// L4: scoring.
	scoreResult := p.scorer.Score(ctx, eventID, event, uc)
	chain = append(chain, scorer.ReasonStep(scoreResult))

	// L5: arbitration.
	verdict := p.arbiter.Decide(now, event, ruleDecision, ruleName, scoreResult, uc, chain)
	chain = verdict.ReasonChain

	score := scoreResult.Score
	return terminate(verdict.Decision, &score, verdict.ScheduledAt, verdict.OverrideNote, scoreResult.AIUsed, scoreResult.FallbackUsed)
}
