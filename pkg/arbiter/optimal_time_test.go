package arbiter

import (
	"testing"
	"time"

	"github.com/jsndz/notifyengine/pkg/enrich"
)

func TestComputeOptimalSendTimeRoundsTo15Minutes(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 7, 0, 0, time.UTC)
	ctx := &enrich.UserContext{DNDStartHour: 22, DNDEndHour: 8}
	ctx.EngagementHeatmap[14] = 1.0

	got := computeOptimalSendTime(now, ctx, nil)

	if got.Minute()%15 != 0 {
		t.Fatalf("expected minute aligned to a 15-minute boundary, got %d", got.Minute())
	}
	if got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatal("expected seconds and sub-seconds to be zeroed")
	}
	if got.Hour() != 14 {
		t.Fatalf("expected the best engagement hour (14) to be chosen, got %d", got.Hour())
	}
}

func TestComputeOptimalSendTimeExcludesDND(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	ctx := &enrich.UserContext{DNDStartHour: 22, DNDEndHour: 8}
	// Best engagement hour is inside DND; the next best outside DND must win.
	ctx.EngagementHeatmap[23] = 1.0
	ctx.EngagementHeatmap[9] = 0.9

	got := computeOptimalSendTime(now, ctx, nil)
	if dndActive(ctx.DNDStartHour, ctx.DNDEndHour, got.Hour()) {
		t.Fatalf("optimal send time %v must never fall inside the DND window", got)
	}
	if got.Hour() != 9 {
		t.Fatalf("expected hour 9 (best non-DND score), got %d", got.Hour())
	}
}

func TestComputeOptimalSendTimeDegenerateAllDNDFallsBackToPlusOneHour(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	ctx := &enrich.UserContext{DNDStartHour: 0, DNDEndHour: 24} // start <= hour < end covers every hour
	got := computeOptimalSendTime(now, ctx, nil)
	want := now.Add(time.Hour)
	if got.Hour() != want.Hour() || got.Day() != want.Day() {
		t.Fatalf("expected fallback to now+1h (%v), got %v", want, got)
	}
}

func TestComputeOptimalSendTimeClampsToExpiresAt(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	ctx := &enrich.UserContext{DNDStartHour: 22, DNDEndHour: 8}
	ctx.EngagementHeatmap[23] = 1.0
	expires := now.Add(2 * time.Hour)

	got := computeOptimalSendTime(now, ctx, &expires)
	if got.After(expires) {
		t.Fatalf("expected scheduled time to be clamped before expires_at, got %v > %v", got, expires)
	}
}
