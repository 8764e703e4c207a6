package scorer

import (
	"testing"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/types"
)

func testConfig() *config.Config {
	return &config.Config{
		AIScoreNowThreshold:   0.75,
		AIScoreLaterThreshold: 0.40,
	}
}

func TestEventTypeUrgencyKnownKeyword(t *testing.T) {
	if got := eventTypeUrgency("payment_failed"); got != 1.0 {
		t.Fatalf("expected urgency 1.0 for payment_failed, got %f", got)
	}
	if got := eventTypeUrgency("weekly_newsletter"); got != 0.1 {
		t.Fatalf("expected urgency 0.1 for newsletter, got %f", got)
	}
}

func TestEventTypeUrgencyUnknownDefaultsToMedium(t *testing.T) {
	if got := eventTypeUrgency("some_custom_event"); got != 0.4 {
		t.Fatalf("expected default urgency 0.4, got %f", got)
	}
}

func TestHeuristicPriorityHintRaisesUrgency(t *testing.T) {
	cfg := testConfig()
	event := &types.NotificationEvent{EventType: "newsletter_digest", PriorityHint: types.PriorityCritical}
	uc := &enrich.UserContext{}
	result := Heuristic(cfg, event, uc, "")
	if result.Urgency != 1.0 {
		t.Fatalf("expected priority_hint to override low keyword urgency, got %f", result.Urgency)
	}
}

func TestHeuristicDecisionThresholds(t *testing.T) {
	cfg := testConfig()
	event := &types.NotificationEvent{EventType: "security_alert"}
	uc := &enrich.UserContext{HourlyCap: 5}
	uc.EngagementHeatmap[0] = 1.0
	result := Heuristic(cfg, event, uc, "")
	if result.Decision != "now" {
		t.Fatalf("expected decision 'now' for high urgency, low fatigue event, got %q (score=%f)", result.Decision, result.Score)
	}
	if result.AIUsed {
		t.Fatal("heuristic result must never report ai_used=true")
	}
	if !result.FallbackUsed {
		t.Fatal("heuristic result must always report fallback_used=true")
	}
}

func TestHeuristicScoreClampedToUnitRange(t *testing.T) {
	cfg := testConfig()
	event := &types.NotificationEvent{EventType: "newsletter"}
	uc := &enrich.UserContext{NotificationsLast1h: 50, HourlyCap: 1}
	result := Heuristic(cfg, event, uc, "")
	if result.Score < 0 || result.Score > 1 {
		t.Fatalf("expected score within [0,1], got %f", result.Score)
	}
}
