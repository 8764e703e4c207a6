package repositories

import (
	"context"

	"github.com/jsndz/notifyengine/pkg/models"
	"gorm.io/gorm"
)

// AILogRepository persists the scorer's audit trail — one row per
// scoring attempt, AI or fallback (spec.md §4.4).
type AILogRepository struct {
	db *gorm.DB
}

func NewAILogRepository(db *gorm.DB) *AILogRepository {
	return &AILogRepository{db: db}
}

func (r *AILogRepository) Create(ctx context.Context, log *models.AIInteractionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *AILogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.AIInteractionLog, error) {
	var logs []models.AIInteractionLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListRecent backs GET /v1/notifications/ai-logs when called without a
// user_id filter (spec.md §6).
func (r *AILogRepository) ListRecent(ctx context.Context, limit int) ([]models.AIInteractionLog, error) {
	var logs []models.AIInteractionLog
	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
