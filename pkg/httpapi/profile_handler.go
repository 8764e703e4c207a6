package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/pkg/database"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/models"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentDecisionsLimit = 10

// ProfileHandler serves per-user preference, opt-out, and feedback
// endpoints (spec.md §6), reading counters straight from the KV store
// the context enricher writes to.
type ProfileHandler struct {
	profiles *repositories.ProfileRepository
	events   *repositories.EventRepository
	rdb      *redis.Client
	cfg      *config.Config
	log      *zap.Logger
}

func NewProfileHandler(profiles *repositories.ProfileRepository, events *repositories.EventRepository, rdb *redis.Client, cfg *config.Config, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, events: events, rdb: rdb, cfg: cfg, log: log}
}

// getOrDefault loads the profile, falling back to the same defaults the
// enricher applies for a profile that does not exist yet (spec.md §4.3).
func (h *ProfileHandler) getOrDefault(c *gin.Context, userID string) (*models.UserProfile, bool) {
	profile, err := h.profiles.GetByUserID(c.Request.Context(), userID)
	if err == nil {
		return profile, true
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	}
	return &models.UserProfile{
		UserID:       userID,
		Timezone:     "UTC",
		DNDStartHour: 22,
		DNDEndHour:   8,
		Segment:      "standard",
	}, true
}

type decisionSummary struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Decision  string    `json:"decision"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type optimalHour struct {
	Hour       int     `json:"hour"`
	Engagement float64 `json:"engagement"`
}

type profileResponse struct {
	UserID             string                 `json:"user_id"`
	Timezone           string                 `json:"timezone"`
	DNDStartHour       int                    `json:"dnd_start_hour"`
	DNDEndHour         int                    `json:"dnd_end_hour"`
	ChannelPreferences map[string]interface{} `json:"channel_preferences,omitempty"`
	OptedOutTopics     []string               `json:"opted_out_topics"`
	HourlyCap          int                    `json:"hourly_cap"`
	DailyCap           int                    `json:"daily_cap"`
	Segment            string                 `json:"segment"`
	Count1h            int64                  `json:"count_1h"`
	Count24h           int64                  `json:"count_24h"`
	OptimalSendHours   []optimalHour          `json:"optimal_send_hours"`
	RecentDecisions    []decisionSummary      `json:"recent_decisions"`
}

// GetProfile handles GET /v1/users/{id}/notification-profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := c.Param("id")
	profile, ok := h.getOrDefault(c, userID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	hourlyCap := h.cfg.DefaultHourlyCap
	if profile.HourlyCapOverride != nil {
		hourlyCap = *profile.HourlyCapOverride
	}
	dailyCap := h.cfg.DefaultDailyCap
	if profile.DailyCapOverride != nil {
		dailyCap = *profile.DailyCapOverride
	}

	count1h, _ := h.rdb.Get(c.Request.Context(), database.KeyCount1h(userID)).Int64()
	count24h, _ := h.rdb.Get(c.Request.Context(), database.KeyCount24h(userID)).Int64()

	events, err := h.events.ListByUser(c.Request.Context(), userID, recentDecisionsLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	decisions := make([]decisionSummary, 0, len(events))
	for _, e := range events {
		decisions = append(decisions, decisionSummary{
			EventID:   e.ID.String(),
			EventType: e.EventType,
			Decision:  e.Decision,
			Score:     e.Score,
			CreatedAt: e.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, profileResponse{
		UserID:             userID,
		Timezone:           profile.Timezone,
		DNDStartHour:       profile.DNDStartHour,
		DNDEndHour:         profile.DNDEndHour,
		ChannelPreferences: profile.ChannelPreferences,
		OptedOutTopics:     emptyIfNil(profile.OptOutTopics()),
		HourlyCap:          hourlyCap,
		DailyCap:           dailyCap,
		Segment:            profile.Segment,
		Count1h:            count1h,
		Count24h:           count24h,
		OptimalSendHours:   topOptimalHours(profile, 5),
		RecentDecisions:    decisions,
	})
}

func emptyIfNil(topics []string) []string {
	if topics == nil {
		return []string{}
	}
	return topics
}

// topOptimalHours ranks non-DND hours by heatmap engagement, highest
// first, breaking ties by earliest hour (spec.md §6, §4.5.1).
func topOptimalHours(profile *models.UserProfile, n int) []optimalHour {
	heatmap := profile.Heatmap()
	candidates := make([]optimalHour, 0, 24)
	for hour := 0; hour < 24; hour++ {
		if dndHour(profile.DNDStartHour, profile.DNDEndHour, hour) {
			continue
		}
		candidates = append(candidates, optimalHour{Hour: hour, Engagement: heatmap[hour]})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Engagement != candidates[j].Engagement {
			return candidates[i].Engagement > candidates[j].Engagement
		}
		return candidates[i].Hour < candidates[j].Hour
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

func dndHour(start, end, hour int) bool {
	if start > end {
		return hour >= start || hour < end
	}
	return start <= hour && hour < end
}

type preferencesPatch struct {
	Timezone           *string                `json:"timezone"`
	DNDStartHour       *int                   `json:"dnd_start_hour"`
	DNDEndHour         *int                   `json:"dnd_end_hour"`
	ChannelPreferences map[string]interface{} `json:"channel_preferences"`
	HourlyCapOverride  *int                   `json:"hourly_cap_override"`
	DailyCapOverride   *int                   `json:"daily_cap_override"`
	Segment            *string                `json:"segment"`
}

// PatchPreferences handles PATCH /v1/users/{id}/preferences.
func (h *ProfileHandler) PatchPreferences(c *gin.Context) {
	userID := c.Param("id")
	profile, ok := h.getOrDefault(c, userID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	var patch preferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if patch.Timezone != nil {
		profile.Timezone = *patch.Timezone
	}
	if patch.DNDStartHour != nil {
		profile.DNDStartHour = *patch.DNDStartHour
	}
	if patch.DNDEndHour != nil {
		profile.DNDEndHour = *patch.DNDEndHour
	}
	if patch.ChannelPreferences != nil {
		profile.ChannelPreferences = patch.ChannelPreferences
	}
	if patch.HourlyCapOverride != nil {
		profile.HourlyCapOverride = patch.HourlyCapOverride
	}
	if patch.DailyCapOverride != nil {
		profile.DailyCapOverride = patch.DailyCapOverride
	}
	if patch.Segment != nil {
		profile.Segment = *patch.Segment
	}

	if err := h.profiles.Upsert(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.invalidateCache(c, userID)
	c.JSON(http.StatusOK, profile)
}

// OptOut handles POST /v1/users/{id}/opt-out/{topic}.
func (h *ProfileHandler) OptOut(c *gin.Context) {
	h.mutateOptOut(c, func(p *models.UserProfile, topic string) error { return p.AddOptOut(topic) })
}

// OptIn handles DELETE /v1/users/{id}/opt-out/{topic}.
func (h *ProfileHandler) OptIn(c *gin.Context) {
	h.mutateOptOut(c, func(p *models.UserProfile, topic string) error { return p.RemoveOptOut(topic) })
}

func (h *ProfileHandler) mutateOptOut(c *gin.Context, mutate func(*models.UserProfile, string) error) {
	userID := c.Param("id")
	topic := c.Param("topic")

	profile, ok := h.getOrDefault(c, userID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if err := mutate(profile, topic); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.profiles.Upsert(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.invalidateCache(c, userID)
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "opted_out_topics": emptyIfNil(profile.OptOutTopics())})
}

var validFeedbackActions = map[string]bool{
	"opened":    true,
	"dismissed": true,
	"muted":     true,
	"clicked":   true,
}

// Feedback handles POST /v1/users/{id}/feedback?event_id&action
// (spec.md §6: "heatmap[...] += 0.1" for opened/clicked, "-= 0.1" for
// dismissed/muted).
func (h *ProfileHandler) Feedback(c *gin.Context) {
	userID := c.Param("id")
	action := c.Query("action")
	if !validFeedbackActions[action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be one of opened, dismissed, muted, clicked"})
		return
	}
	profile, ok := h.getOrDefault(c, userID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	engaged := action == "opened" || action == "clicked"
	hour := enrich.LocalHour(profile.Timezone)
	if err := h.profiles.RecordFeedback(c.Request.Context(), userID, hour, engaged); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.invalidateCache(c, userID)
	c.JSON(http.StatusOK, gin.H{
		"user_id":    userID,
		"event_id":   c.Query("event_id"),
		"action":     action,
		"local_hour": hour,
	})
}

func (h *ProfileHandler) invalidateCache(c *gin.Context, userID string) {
	if err := h.rdb.Del(c.Request.Context(), database.KeyUserProfileCache(userID)).Err(); err != nil {
		h.log.Warn("profile.cache_invalidate_failed", zap.String("user_id", userID), zap.Error(err))
	}
}
