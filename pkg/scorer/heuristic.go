// Package scorer computes the L4 priority score for a notification event,
// preferring a Groq-hosted LLM and falling back to a deterministic
// heuristic whenever the LLM path is unavailable, slow, or erroring.
// Grounded on original_source/app/services/ai_scorer.py.
package scorer

import (
	"fmt"
	"strings"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/types"
)

// Result is the outcome of one scoring attempt, LLM or heuristic.
type Result struct {
	Score          float64
	Decision       string // "now" | "later" | "never"
	Urgency        float64
	Engagement     float64
	FatiguePenalty float64
	RecencyBonus   float64
	Reasoning      string
	AIUsed         bool
	FallbackUsed   bool
	FallbackReason string
}

// urgencyKeywords maps an event_type substring to a base urgency. Checked
// in map order is not guaranteed, so longer/more specific keywords are
// listed ahead of their looser relatives where collisions are possible.
var urgencyKeywords = []struct {
	keyword string
	urgency float64
}{
	{"payment_failed", 1.0},
	{"payment_declined", 1.0},
	{"critical", 1.0},
	{"security", 1.0},
	{"2fa", 1.0},
	{"otp", 1.0},
	{"password", 0.9},
	{"account", 0.8},
	{"alert", 0.8},
	{"message", 0.7},
	{"reminder", 0.7},
	{"update", 0.5},
	{"system", 0.5},
	{"promo", 0.2},
	{"promotion", 0.2},
	{"offer", 0.2},
	{"discount", 0.2},
	{"marketing", 0.15},
	{"newsletter", 0.1},
}

var priorityHintUrgency = map[types.PriorityHint]float64{
	types.PriorityCritical: 1.0,
	types.PriorityHigh:     0.8,
	types.PriorityMedium:   0.5,
	types.PriorityLow:      0.2,
}

func eventTypeUrgency(eventType string) float64 {
	et := strings.ToLower(eventType)
	for _, k := range urgencyKeywords {
		if strings.Contains(et, k.keyword) {
			return k.urgency
		}
	}
	return 0.4
}

// Heuristic scores an event with no external dependencies (spec.md §4.4).
func Heuristic(cfg *config.Config, event *types.NotificationEvent, ctx *enrich.UserContext, fallbackReason string) Result {
	urgency := eventTypeUrgency(event.EventType)
	if hint, ok := priorityHintUrgency[event.PriorityHint]; ok {
		if hint > urgency {
			urgency = hint
		}
	}

	engagement := ctx.EngagementScoreForCurrentHour()
	fatiguePenalty := ctx.FatigueRatio1h()
	recencyBonus := ctx.RecencyBonus()

	score := 0.35*urgency + 0.25*engagement - 0.25*fatiguePenalty + 0.15*recencyBonus
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	var decision string
	switch {
	case score >= cfg.AIScoreNowThreshold:
		decision = "now"
	case score >= cfg.AIScoreLaterThreshold:
		decision = "later"
	default:
		decision = "never"
	}

	if fallbackReason == "" {
		fallbackReason = "heuristic_primary"
	}

	return Result{
		Score:          score,
		Decision:       decision,
		Urgency:        urgency,
		Engagement:     engagement,
		FatiguePenalty: fatiguePenalty,
		RecencyBonus:   recencyBonus,
		Reasoning:      fmt.Sprintf("Heuristic scorer (%s): urgency=%.2f, fatigue=%.2f", fallbackReason, urgency, fatiguePenalty),
		AIUsed:         false,
		FallbackUsed:   true,
		FallbackReason: fallbackReason,
	}
}

// ReasonStep renders a scoring result into the audit reason chain
// (spec.md §4.4).
func ReasonStep(r Result) types.ReasonStep {
	label := "groq_llm"
	if !r.AIUsed {
		label = "heuristic_fallback"
	}
	return types.ReasonStep{
		Layer:  "L4-AIScorer",
		Check:  label,
		Result: strings.ToUpper(r.Decision),
		Detail: fmt.Sprintf("score=%.3f | urgency=%.2f | engagement=%.2f | fatigue=%.2f | recency=%.2f | %s",
			r.Score, r.Urgency, r.Engagement, r.FatiguePenalty, r.RecencyBonus, r.Reasoning),
	}
}
