package enrich

import "testing"

func TestDNDOvernightWindow(t *testing.T) {
	cases := map[int]bool{
		22: true, 23: true, 0: true, 7: true,
		8: false, 12: false, 21: false,
	}
	for hour, want := range cases {
		if got := isDNDActive(22, 8, hour); got != want {
			t.Errorf("isDNDActive(22,8,%d) = %v, want %v", hour, got, want)
		}
	}
}

func TestFatigueRatioClampedToOne(t *testing.T) {
	uc := &UserContext{NotificationsLast1h: 12, HourlyCap: 5}
	if ratio := uc.FatigueRatio1h(); ratio != 1.0 {
		t.Fatalf("expected fatigue ratio clamped to 1.0, got %f", ratio)
	}
}

func TestRecencyBonusNeverSent(t *testing.T) {
	uc := &UserContext{defaultCooldownSeconds: 3600}
	if bonus := uc.RecencyBonus(); bonus != 1.0 {
		t.Fatalf("expected recency bonus 1.0 when never sent, got %f", bonus)
	}
}
