package httpapi

import (
	"testing"

	"github.com/jsndz/notifyengine/pkg/models"
)

func TestParseLimitDefaultsWhenEmpty(t *testing.T) {
	if got := parseLimit("", 20, 100); got != 20 {
		t.Fatalf("expected default 20, got %d", got)
	}
}

func TestParseLimitClampsToMax(t *testing.T) {
	if got := parseLimit("500", 20, 100); got != 100 {
		t.Fatalf("expected clamped 100, got %d", got)
	}
}

func TestParseLimitRejectsNonPositive(t *testing.T) {
	if got := parseLimit("-5", 20, 100); got != 20 {
		t.Fatalf("expected fallback to default for negative input, got %d", got)
	}
}

func TestDNDHourWraparound(t *testing.T) {
	for _, h := range []int{22, 23, 0, 7} {
		if !dndHour(22, 8, h) {
			t.Fatalf("hour %d should be in DND window [22,8)", h)
		}
	}
	for _, h := range []int{8, 12, 21} {
		if dndHour(22, 8, h) {
			t.Fatalf("hour %d should not be in DND window [22,8)", h)
		}
	}
}

func TestTopOptimalHoursExcludesDNDAndRanksByEngagement(t *testing.T) {
	profile := &models.UserProfile{DNDStartHour: 22, DNDEndHour: 8}
	heatmap := [24]float64{}
	heatmap[10] = 0.9
	heatmap[14] = 0.95
	heatmap[2] = 1.0 // inside DND, must be excluded
	if err := profile.SetHeatmap(heatmap); err != nil {
		t.Fatalf("SetHeatmap failed: %v", err)
	}

	top := topOptimalHours(profile, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(top))
	}
	if top[0].Hour != 14 || top[1].Hour != 10 {
		t.Fatalf("expected hours [14,10] ranked by engagement, got [%d,%d]", top[0].Hour, top[1].Hour)
	}
}

func TestAddAndRemoveOptOutIsIdempotent(t *testing.T) {
	profile := &models.UserProfile{}
	if err := profile.AddOptOut("promo_offer"); err != nil {
		t.Fatalf("AddOptOut failed: %v", err)
	}
	if err := profile.AddOptOut("promo_offer"); err != nil {
		t.Fatalf("second AddOptOut failed: %v", err)
	}
	if topics := profile.OptOutTopics(); len(topics) != 1 {
		t.Fatalf("expected exactly one topic after duplicate add, got %v", topics)
	}
	if err := profile.RemoveOptOut("promo_offer"); err != nil {
		t.Fatalf("RemoveOptOut failed: %v", err)
	}
	if topics := profile.OptOutTopics(); len(topics) != 0 {
		t.Fatalf("expected no topics after removal, got %v", topics)
	}
}
