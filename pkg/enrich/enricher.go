package enrich

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/database"
	"github.com/jsndz/notifyengine/pkg/models"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/jsndz/notifyengine/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Enricher fans out the three context fetches in parallel and never
// returns an error — every subsystem failure degrades to a safe default
// (spec.md §4.3).
type Enricher struct {
	rdb      *redis.Client
	profiles *repositories.ProfileRepository
	cfg      *config.Config
	log      *zap.Logger
}

func NewEnricher(rdb *redis.Client, profiles *repositories.ProfileRepository, cfg *config.Config, log *zap.Logger) *Enricher {
	return &Enricher{rdb: rdb, profiles: profiles, cfg: cfg, log: log}
}

type profileSnapshot struct {
	Timezone           string                 `json:"timezone"`
	DNDStartHour       int                    `json:"dnd_start_hour"`
	DNDEndHour         int                    `json:"dnd_end_hour"`
	ChannelPreferences map[string]interface{} `json:"channel_preferences"`
	OptedOutTopics     []string               `json:"opted_out_topics"`
	HourlyCapOverride  *int                   `json:"hourly_cap_override"`
	DailyCapOverride   *int                   `json:"daily_cap_override"`
	Segment            string                 `json:"segment"`
	EngagementHeatmap  [24]float64            `json:"engagement_heatmap"`
}

// Enrich builds a UserContext for the event, running the three fetches
// concurrently via errgroup (spec.md §4.3).
func (e *Enricher) Enrich(ctx context.Context, event *types.NotificationEvent) *UserContext {
	uc := &UserContext{
		UserID:                 event.UserID,
		HourlyCap:              e.cfg.DefaultHourlyCap,
		DailyCap:               e.cfg.DefaultDailyCap,
		DNDStartHour:           22,
		DNDEndHour:             8,
		Timezone:               "UTC",
		EngagementHeatmap:      models.DefaultHeatmap(),
		defaultCooldownSeconds: e.cfg.DefaultCooldown.Seconds(),
	}

	var count1h, count24h int
	var secondsSince *float64
	var profile *profileSnapshot

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		defer func() { metrics.ContextEnrichmentDuration.WithLabelValues("counters").Observe(time.Since(start).Seconds()) }()
		c1, err := e.rdb.Get(gctx, database.KeyCount1h(event.UserID)).Int()
		if err != nil && err != redis.Nil {
			e.log.Warn("context counter fetch failed", zap.Error(err))
		} else {
			count1h = c1
		}
		c24, err := e.rdb.Get(gctx, database.KeyCount24h(event.UserID)).Int()
		if err != nil && err != redis.Nil {
			e.log.Warn("context counter fetch failed", zap.Error(err))
		} else {
			count24h = c24
		}
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		defer func() { metrics.ContextEnrichmentDuration.WithLabelValues("last_send").Observe(time.Since(start).Seconds()) }()
		tsStr, err := e.rdb.Get(gctx, database.KeyLastSend(event.UserID, event.EventType)).Result()
		if err != nil {
			return nil // no recency recorded or transient failure; safe default
		}
		lastTS, err := strconv.ParseFloat(tsStr, 64)
		if err == nil {
			seconds := float64(time.Now().Unix()) - lastTS
			if seconds < 0 {
				seconds = 0
			}
			secondsSince = &seconds
		}
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		defer func() { metrics.ContextEnrichmentDuration.WithLabelValues("profile").Observe(time.Since(start).Seconds()) }()
		p, err := e.fetchProfile(gctx, event.UserID)
		if err != nil {
			e.log.Warn("context profile fetch failed", zap.Error(err))
			return nil
		}
		profile = p
		return nil
	})

	_ = g.Wait() // each goroutine already swallows its own errors

	uc.NotificationsLast1h = count1h
	uc.NotificationsLast24h = count24h
	uc.SecondsSinceLastSameType = secondsSince

	if profile != nil {
		uc.ProfileFound = true
		uc.Timezone = profile.Timezone
		uc.DNDStartHour = profile.DNDStartHour
		uc.DNDEndHour = profile.DNDEndHour
		uc.ChannelPreferences = profile.ChannelPreferences
		uc.OptedOutTopics = profile.OptedOutTopics
		uc.Segment = profile.Segment
		uc.EngagementHeatmap = profile.EngagementHeatmap
		if profile.HourlyCapOverride != nil {
			uc.HourlyCap = *profile.HourlyCapOverride
		}
		if profile.DailyCapOverride != nil {
			uc.DailyCap = *profile.DailyCapOverride
		}
	}

	uc.CurrentLocalHour = LocalHour(uc.Timezone)
	uc.DNDActive = isDNDActive(uc.DNDStartHour, uc.DNDEndHour, uc.CurrentLocalHour)

	return uc
}

// fetchProfile is the read-through cache: Redis first, durable store on
// miss, writing the cache back with a 300 s TTL (spec.md §3, §4.3).
func (e *Enricher) fetchProfile(ctx context.Context, userID string) (*profileSnapshot, error) {
	cacheKey := database.KeyUserProfileCache(userID)

	if cached, err := e.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var snap profileSnapshot
		if jsonErr := json.Unmarshal([]byte(cached), &snap); jsonErr == nil {
			return &snap, nil
		}
	}

	row, err := e.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var optedOut []string
	_ = json.Unmarshal(row.OptedOutTopics, &optedOut)

	snap := &profileSnapshot{
		Timezone:           row.Timezone,
		DNDStartHour:       row.DNDStartHour,
		DNDEndHour:         row.DNDEndHour,
		ChannelPreferences: row.ChannelPreferences,
		OptedOutTopics:     optedOut,
		HourlyCapOverride:  row.HourlyCapOverride,
		DailyCapOverride:   row.DailyCapOverride,
		Segment:            row.Segment,
		EngagementHeatmap:  row.Heatmap(),
	}

	if raw, err := json.Marshal(snap); err == nil {
		_ = e.rdb.Set(ctx, cacheKey, raw, 300*time.Second).Err()
	}

	return snap, nil
}

// LocalHour derives the current hour in the given IANA zone, falling
// back to UTC on lookup failure (spec.md §9 DESIGN NOTES).
func LocalHour(tz string) int {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Now().UTC().Hour()
	}
	return time.Now().In(loc).Hour()
}
