package dispatch

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampOrNowPrefersProvided(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	if got := timestampOrNow(&ts, now); !got.Equal(ts) {
		t.Fatalf("expected provided timestamp to win, got %v", got)
	}
	if got := timestampOrNow(nil, now); !got.Equal(now) {
		t.Fatalf("expected now to be used when no timestamp is provided, got %v", got)
	}
}

func TestSendNowMessageMarshalsDispatchedAt(t *testing.T) {
	msg := sendNowMessage{
		EventID:      "e1",
		UserID:       "u1",
		DispatchedAt: time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if decoded["dispatched_at"] == nil {
		t.Fatal("expected dispatched_at to be present in the published body")
	}
}
