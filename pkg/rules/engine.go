package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/jsndz/notifyengine/pkg/types"
)

// compiledRule is a Rule with its JSON payloads pre-decoded once at load
// time rather than on every evaluation.
type compiledRule struct {
	name          string
	ruleType      string
	conditions    map[string]interface{}
	actionParams  map[string]interface{}
	priorityOrder int
}

// snapshot is the immutable rule list readers see; a refresh publishes a
// brand new snapshot rather than mutating the old one in place.
type snapshot struct {
	rules    []compiledRule
	loadedAt time.Time
}

// Engine caches active rules in-process with a 30 s TTL and evaluates
// them against inbound events (spec.md §4.2). Safe for concurrent use —
// readers see either the old snapshot or the new one, never a partial one.
type Engine struct {
	repo    *repositories.RuleRepository
	ttl     time.Duration
	current atomic.Pointer[snapshot]
}

func NewEngine(repo *repositories.RuleRepository, cfg *config.Config) *Engine {
	e := &Engine{repo: repo, ttl: cfg.RulesCacheTTL}
	e.current.Store(&snapshot{})
	return e
}

// Invalidate forces the next Evaluate call to reload from the durable
// store, used by the rule CRUD surface (spec.md §4.2).
func (e *Engine) Invalidate() {
	e.current.Store(&snapshot{})
}

func (e *Engine) loadIfStale(ctx context.Context) error {
	cur := e.current.Load()
	if cur.loadedAt.IsZero() || time.Since(cur.loadedAt) > e.ttl {
		rows, err := e.repo.ListActive(ctx)
		if err != nil {
			metrics.RuleCacheRefreshTotal.WithLabelValues("error").Inc()
			return err
		}
		compiled := make([]compiledRule, 0, len(rows))
		for _, r := range rows {
			var conditions, actionParams map[string]interface{}
			_ = json.Unmarshal(r.Conditions, &conditions)
			_ = json.Unmarshal(r.ActionParams, &actionParams)
			compiled = append(compiled, compiledRule{
				name:          r.RuleName,
				ruleType:      r.RuleType,
				conditions:    conditions,
				actionParams:  actionParams,
				priorityOrder: r.PriorityOrder,
			})
		}
		e.current.Store(&snapshot{rules: compiled, loadedAt: time.Now()})
		metrics.RuleCacheRefreshTotal.WithLabelValues("ok").Inc()
	}
	metrics.RuleCacheAgeSeconds.Set(time.Since(e.current.Load().loadedAt).Seconds())
	return nil
}

// Rule types (spec.md §3).
const (
	TypeForceNow        = "force_now"
	TypeForceNever      = "force_never"
	TypeQuietHours      = "quiet_hours"
	TypeChannelOverride = "channel_override"
	TypeCooldown        = "cooldown"
	TypeCap             = "cap"
)

// Evaluate runs every active rule in ascending priority order and
// returns the first forced decision, or (none, none) if nothing forces
// an outcome (spec.md §4.2).
func (e *Engine) Evaluate(ctx context.Context, event *types.NotificationEvent, now time.Time) (decision string, ruleName string, steps []types.ReasonStep, err error) {
	if err := e.loadIfStale(ctx); err != nil {
		return "", "", nil, err
	}

	fields := newEventFields(event.EventType, event.Source, string(event.Channel), string(event.PriorityHint), event.UserID, event.Metadata)
	snap := e.current.Load()

	for _, rule := range snap.rules {
		if !matchesConditions(fields, rule.conditions) {
			continue
		}

		switch rule.ruleType {
		case TypeForceNow:
			metrics.RuleEvaluationsTotal.WithLabelValues(rule.ruleType, "true").Inc()
			steps = append(steps, types.ReasonStep{
				Layer: "L2-Rules", Check: "rule:" + rule.name, Result: "FORCE_NOW",
				Detail: fmt.Sprintf("rule %q forces immediate delivery", rule.name),
			})
			return "now", rule.name, steps, nil

		case TypeForceNever:
			metrics.RuleEvaluationsTotal.WithLabelValues(rule.ruleType, "true").Inc()
			steps = append(steps, types.ReasonStep{
				Layer: "L2-Rules", Check: "rule:" + rule.name, Result: "FORCE_NEVER",
				Detail: fmt.Sprintf("rule %q suppresses this notification", rule.name),
			})
			return "never", rule.name, steps, nil

		case TypeQuietHours:
			if isQuietHours(rule.actionParams, now) {
				metrics.RuleEvaluationsTotal.WithLabelValues(rule.ruleType, "true").Inc()
				steps = append(steps, types.ReasonStep{
					Layer: "L2-Rules", Check: "rule:" + rule.name, Result: "DEFER",
					Detail: fmt.Sprintf("quiet hours active (%v-%v UTC)", rule.actionParams["start_hour"], rule.actionParams["end_hour"]),
				})
				return "later", rule.name, steps, nil
			}

		case TypeChannelOverride:
			if !channelAllowed(rule.actionParams, string(event.Channel)) {
				metrics.RuleEvaluationsTotal.WithLabelValues(rule.ruleType, "true").Inc()
				steps = append(steps, types.ReasonStep{
					Layer: "L2-Rules", Check: "rule:" + rule.name, Result: "FORCE_NEVER",
					Detail: fmt.Sprintf("channel %q not in allowed list", event.Channel),
				})
				return "never", rule.name, steps, nil
			}

		case TypeCooldown, TypeCap:
			// Declared, but not forcing — spec.md §9 DESIGN NOTES.
			steps = append(steps, types.ReasonStep{
				Layer: "L2-Rules", Check: "rule:" + rule.name, Result: "MATCHED_NO_FORCE",
				Detail: fmt.Sprintf("rule %q matched but did not force decision", rule.name),
			})
			continue
		}

		metrics.RuleEvaluationsTotal.WithLabelValues(rule.ruleType, "true").Inc()
		steps = append(steps, types.ReasonStep{
			Layer: "L2-Rules", Check: "rule:" + rule.name, Result: "MATCHED_NO_FORCE",
			Detail: fmt.Sprintf("rule %q matched but did not force decision", rule.name),
		})
	}

	steps = append(steps, types.ReasonStep{
		Layer: "L2-Rules", Check: "rules_evaluation", Result: "NO_MATCH",
		Detail: fmt.Sprintf("evaluated %d rules — no hard outcome", len(snap.rules)),
	})
	return "", "", steps, nil
}

func isQuietHours(actionParams map[string]interface{}, now time.Time) bool {
	start := intOr(actionParams["start_hour"], 22)
	end := intOr(actionParams["end_hour"], 8)
	h := now.UTC().Hour()
	if start > end {
		return h >= start || h < end
	}
	return start <= h && h < end
}

func channelAllowed(actionParams map[string]interface{}, channel string) bool {
	raw, _ := actionParams["allowed_channels"].([]interface{})
	for _, v := range raw {
		if s, ok := v.(string); ok && s == channel {
			return true
		}
	}
	return false
}

func intOr(v interface{}, fallback int) int {
	f, ok := toFloat(v)
	if !ok {
		return fallback
	}
	return int(f)
}
