package arbiter

import (
	"fmt"
	"time"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/scorer"
	"github.com/jsndz/notifyengine/pkg/types"
)

// Verdict is the arbiter's final output: the decision, an optional
// schedule time, the full reason chain up to and including L5, and an
// override note identifying what drove the decision (spec.md §4.5).
type Verdict struct {
	Decision     types.Decision
	ScheduledAt  *time.Time
	ReasonChain  []types.ReasonStep
	OverrideNote string
}

// Arbiter applies the ten precedence rules of spec.md §4.5 in order,
// appending exactly one reason step for whichever rule decides.
type Arbiter struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Arbiter {
	return &Arbiter{cfg: cfg}
}

// Decide merges the rule verdict, scoring result and context into the
// final decision. priorReasonChain holds the L0-L4 steps accumulated so
// far; Decide appends the L5 step(s) and returns the full chain.
func (a *Arbiter) Decide(
	now time.Time,
	event *types.NotificationEvent,
	ruleDecision, ruleName string,
	scoreResult scorer.Result,
	ctx *enrich.UserContext,
	priorReasonChain []types.ReasonStep,
) Verdict {
	chain := append([]types.ReasonStep{}, priorReasonChain...)
	critical := event.PriorityHint.IsCritical()
	score := scoreResult.Score

	step := func(check, result, detail string) types.ReasonStep {
		return types.ReasonStep{Layer: "L5-Arbiter", Check: check, Result: result, Detail: detail}
	}

	record := func(decision types.Decision) {
		metrics.ArbiterDecisionsTotal.WithLabelValues(string(decision)).Inc()
	}

	// 1. Hard force-now rule.
	if ruleDecision == "now" {
		chain = append(chain, step("rule_override", "NOW", fmt.Sprintf("hard force-now rule %q wins — immediate delivery", ruleName)))
		record(types.DecisionNow)
		return Verdict{Decision: types.DecisionNow, ReasonChain: chain, OverrideNote: "rule:" + ruleName}
	}

	// 2. Hard force-never rule.
	if ruleDecision == "never" {
		chain = append(chain, step("rule_override", "NEVER", fmt.Sprintf("hard suppress rule %q wins — event suppressed", ruleName)))
		record(types.DecisionNever)
		return Verdict{Decision: types.DecisionNever, ReasonChain: chain, OverrideNote: "rule:" + ruleName}
	}

	// 3. Opted-out topic.
	if ctx.IsOptedOut(event.EventType) {
		chain = append(chain, step("topic_opt_out", "NEVER", fmt.Sprintf("user has opted out of %q notifications", event.EventType)))
		record(types.DecisionNever)
		return Verdict{Decision: types.DecisionNever, ReasonChain: chain, OverrideNote: "user_opt_out"}
	}

	// 4. Hourly cap, unless critical or a very-high score bypasses it.
	if ctx.HourlyCapHit() && !critical && score < 0.8 {
		scheduledAt := computeOptimalSendTime(now, ctx, event.ExpiresAt)
		chain = append(chain, step("hourly_cap", "LATER",
			fmt.Sprintf("hourly cap hit (%d/%d) — deferred to %s", ctx.NotificationsLast1h, ctx.HourlyCap, scheduledAt.Format(time.RFC3339))))
		record(types.DecisionLater)
		return Verdict{Decision: types.DecisionLater, ScheduledAt: &scheduledAt, ReasonChain: chain, OverrideNote: "fatigue_hourly_cap"}
	}

	// 5. Daily cap, unless critical.
	if ctx.DailyCapHit() && !critical {
		chain = append(chain, step("daily_cap", "NEVER",
			fmt.Sprintf("daily cap hit (%d/%d) — suppressed", ctx.NotificationsLast24h, ctx.DailyCap)))
		record(types.DecisionNever)
		return Verdict{Decision: types.DecisionNever, ReasonChain: chain, OverrideNote: "fatigue_daily_cap"}
	}

	// 6. DND window, unless critical.
	if ctx.DNDActive && !critical {
		scheduledAt := computeOptimalSendTime(now, ctx, event.ExpiresAt)
		chain = append(chain, step("dnd_active", "LATER",
			fmt.Sprintf("DND active (%d-%d) — deferred to %s", ctx.DNDStartHour, ctx.DNDEndHour, scheduledAt.Format(time.RFC3339))))
		record(types.DecisionLater)
		return Verdict{Decision: types.DecisionLater, ScheduledAt: &scheduledAt, ReasonChain: chain, OverrideNote: "dnd_active"}
	}

	// 7. Soft rule defer.
	if ruleDecision == "later" {
		scheduledAt := computeOptimalSendTime(now, ctx, event.ExpiresAt)
		chain = append(chain, step("rule_defer", "LATER", fmt.Sprintf("rule %q defers — scheduled for %s", ruleName, scheduledAt.Format(time.RFC3339))))
		record(types.DecisionLater)
		return Verdict{Decision: types.DecisionLater, ScheduledAt: &scheduledAt, ReasonChain: chain, OverrideNote: "rule:" + ruleName}
	}

	// 8. Score threshold: now.
	if score >= a.cfg.AIScoreNowThreshold || critical {
		detail := fmt.Sprintf("score %.3f >= threshold %.2f → send now", score, a.cfg.AIScoreNowThreshold)
		if score < a.cfg.AIScoreNowThreshold {
			detail = fmt.Sprintf("critical priority → send now (score %.3f below threshold %.2f)", score, a.cfg.AIScoreNowThreshold)
		}
		chain = append(chain, step("score_threshold", "NOW", detail))
		record(types.DecisionNow)
		return Verdict{Decision: types.DecisionNow, ReasonChain: chain}
	}

	// 9. Score threshold: later.
	if score >= a.cfg.AIScoreLaterThreshold {
		scheduledAt := computeOptimalSendTime(now, ctx, event.ExpiresAt)
		chain = append(chain, step("score_threshold", "LATER",
			fmt.Sprintf("score %.3f in [%.2f, %.2f) → deferred to %s", score, a.cfg.AIScoreLaterThreshold, a.cfg.AIScoreNowThreshold, scheduledAt.Format(time.RFC3339))))
		record(types.DecisionLater)
		return Verdict{Decision: types.DecisionLater, ScheduledAt: &scheduledAt, ReasonChain: chain}
	}

	// 10. Suppressed.
	chain = append(chain, step("score_threshold", "NEVER", fmt.Sprintf("score %.3f < threshold %.2f → suppressed", score, a.cfg.AIScoreLaterThreshold)))
	record(types.DecisionNever)
	return Verdict{Decision: types.DecisionNever, ReasonChain: chain}
}
