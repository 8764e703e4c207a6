// Package arbiter merges the rule verdict, scoring result, and user
// context into the terminal NOW/LATER/NEVER decision, computing an
// optimal send time for every deferral. Grounded on
// original_source/app/services/arbiter.py.
package arbiter

import (
	"time"

	"github.com/jsndz/notifyengine/pkg/enrich"
)

// computeOptimalSendTime scans the next 24 hourly offsets from now,
// skipping DND hours, and picks the offset with the highest heatmap
// value (ties favor the earliest). Hours are read in the user's
// timezone (UTC when it cannot be loaded), the same local hours the
// heatmap and DND window are kept in. Falls back to now+1h if every hour
// is in DND. Never schedules past expiresAt, and rounds down to the
// nearest 15-minute boundary (spec.md §4.5.1).
func computeOptimalSendTime(now time.Time, ctx *enrich.UserContext, expiresAt *time.Time) time.Time {
	var best time.Time
	bestScore := -1.0
	found := false

	loc, err := time.LoadLocation(ctx.Timezone)
	if err != nil {
		loc = time.UTC
	}

	for offset := 1; offset <= 24; offset++ {
		candidate := now.Add(time.Duration(offset) * time.Hour)
		hour := candidate.In(loc).Hour()

		if dndActive(ctx.DNDStartHour, ctx.DNDEndHour, hour) {
			continue
		}

		score := ctx.EngagementHeatmap[hour%24]
		if score > bestScore {
			bestScore = score
			best = candidate
			found = true
		}
	}

	if !found {
		best = now.Add(time.Hour)
	}

	if expiresAt != nil && best.After(*expiresAt) {
		best = expiresAt.Add(-5 * time.Minute)
	}

	minute := best.Minute() - (best.Minute() % 15)
	return time.Date(best.Year(), best.Month(), best.Day(), best.Hour(), minute, 0, 0, best.Location())
}

func dndActive(start, end, hour int) bool {
	if start > end {
		return hour >= start || hour < end
	}
	return start <= hour && hour < end
}
