package repositories

import (
	"context"
	"errors"

	"github.com/jsndz/notifyengine/pkg/models"
	"gorm.io/gorm"
)

// ProfileRepository reads and writes per-user preferences, DND windows,
// and the engagement heatmap (spec.md §3, §4.3, §4.5). Adapted from the
// teacher's pkg/repositories/template-repository.go lookup shape.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// RecordFeedback nudges the heatmap bucket for the given local hour,
// backing the feedback endpoint: +0.1 for opened/clicked, -0.1 for
// dismissed/muted, each clamped to [0,1]. The source indexes this
// bucket by UTC hour while the optimal-send picker reads it by local
// hour; this module resolves that inconsistency by indexing by local
// hour everywhere (spec.md §9 DESIGN NOTES). A user with no profile row
// yet gets one created from the default profile values.
func (r *ProfileRepository) RecordFeedback(ctx context.Context, userID string, localHour int, engaged bool) error {
	profile, err := r.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = &models.UserProfile{UserID: userID, Timezone: "UTC", DNDStartHour: 22, DNDEndHour: 8, Segment: "standard"}
	} else if err != nil {
		return err
	}
	heatmap := profile.Heatmap()
	delta := -0.1
	if engaged {
		delta = 0.1
	}
	heatmap[localHour%24] = clamp(heatmap[localHour%24]+delta, 0, 1)
	if err := profile.SetHeatmap(heatmap); err != nil {
		return err
	}
	return r.Upsert(ctx, profile)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
