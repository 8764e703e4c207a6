package arbiter

import (
	"testing"
	"time"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/scorer"
	"github.com/jsndz/notifyengine/pkg/types"
)

func testArbiter() *Arbiter {
	return New(&config.Config{AIScoreNowThreshold: 0.75, AIScoreLaterThreshold: 0.40})
}

func TestForceNowBypassesEverythingIncludingScore(t *testing.T) {
	a := testArbiter()
	event := &types.NotificationEvent{EventType: "promo"}
	ctx := &enrich.UserContext{DNDActive: true, HourlyCap: 1, NotificationsLast1h: 5}
	result := scorer.Result{Score: 0.01}

	v := a.Decide(time.Now(), event, "now", "vip_bypass", result, ctx, nil)
	if v.Decision != types.DecisionNow {
		t.Fatalf("expected force_now rule to win regardless of score/DND, got %v", v.Decision)
	}
	if v.OverrideNote != "rule:vip_bypass" {
		t.Fatalf("expected override note to name the rule, got %q", v.OverrideNote)
	}
}

func TestOptOutSuppressesRegardlessOfScore(t *testing.T) {
	a := testArbiter()
	event := &types.NotificationEvent{EventType: "promo"}
	ctx := &enrich.UserContext{OptedOutTopics: []string{"promo"}}
	result := scorer.Result{Score: 0.99}

	v := a.Decide(time.Now(), event, "", "", result, ctx, nil)
	if v.Decision != types.DecisionNever {
		t.Fatalf("expected opt-out to suppress a high-scoring event, got %v", v.Decision)
	}
	if v.OverrideNote != "user_opt_out" {
		t.Fatalf("expected user_opt_out override note, got %q", v.OverrideNote)
	}
}

func TestCriticalBypassesHourlyCapAndDND(t *testing.T) {
	a := testArbiter()
	event := &types.NotificationEvent{EventType: "security_alert", PriorityHint: types.PriorityCritical}
	ctx := &enrich.UserContext{HourlyCap: 1, NotificationsLast1h: 5, DNDActive: true}
	result := scorer.Result{Score: 0.5}

	v := a.Decide(time.Now(), event, "", "", result, ctx, nil)
	if v.Decision != types.DecisionNow {
		t.Fatalf("expected a critical event to bypass hourly cap and DND, got %v", v.Decision)
	}
}

func TestVeryHighScoreBypassesHourlyCap(t *testing.T) {
	a := testArbiter()
	event := &types.NotificationEvent{EventType: "alert"}
	ctx := &enrich.UserContext{HourlyCap: 1, NotificationsLast1h: 5, DailyCap: 20}
	result := scorer.Result{Score: 0.85}

	v := a.Decide(time.Now(), event, "", "", result, ctx, nil)
	if v.Decision != types.DecisionNow {
		t.Fatalf("expected score >= 0.8 to bypass the hourly cap, got %v", v.Decision)
	}
}

func TestHourlyCapDefersModerateScore(t *testing.T) {
	a := testArbiter()
	event := &types.NotificationEvent{EventType: "alert"}
	ctx := &enrich.UserContext{HourlyCap: 1, NotificationsLast1h: 5, DNDStartHour: 22, DNDEndHour: 8}
	ctx.EngagementHeatmap[12] = 1.0
	result := scorer.Result{Score: 0.5}

	v := a.Decide(time.Now(), event, "", "", result, ctx, nil)
	if v.Decision != types.DecisionLater {
		t.Fatalf("expected hourly cap to defer a moderate-score event, got %v", v.Decision)
	}
	if v.ScheduledAt == nil {
		t.Fatal("expected a scheduled_at to be set for a deferred decision")
	}
}

func TestDailyCapSuppressesNonCritical(t *testing.T) {
	a := testArbiter()
	event := &types.NotificationEvent{EventType: "alert"}
	ctx := &enrich.UserContext{DailyCap: 1, NotificationsLast24h: 5}
	result := scorer.Result{Score: 0.9}

	v := a.Decide(time.Now(), event, "", "", result, ctx, nil)
	if v.Decision != types.DecisionNever {
		t.Fatalf("expected daily cap to suppress a non-critical event, got %v", v.Decision)
	}
}

func TestScoreThresholdsPickCorrectDecision(t *testing.T) {
	a := testArbiter()
	event := &types.NotificationEvent{EventType: "update"}
	ctx := &enrich.UserContext{HourlyCap: 5, DailyCap: 20, DNDStartHour: 22, DNDEndHour: 8}

	if v := a.Decide(time.Now(), event, "", "", scorer.Result{Score: 0.80}, ctx, nil); v.Decision != types.DecisionNow {
		t.Fatalf("expected score 0.80 to resolve NOW, got %v", v.Decision)
	}
	if v := a.Decide(time.Now(), event, "", "", scorer.Result{Score: 0.5}, ctx, nil); v.Decision != types.DecisionLater {
		t.Fatalf("expected score 0.5 to resolve LATER, got %v", v.Decision)
	}
	if v := a.Decide(time.Now(), event, "", "", scorer.Result{Score: 0.1}, ctx, nil); v.Decision != types.DecisionNever {
		t.Fatalf("expected score 0.1 to resolve NEVER, got %v", v.Decision)
	}
}
