package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/pkg/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DigestRepository manages deferred-delivery batches (spec.md §3, §4.7).
// Adapted from the teacher's pkg/repositories/delivery-attempt-repository.go.
type DigestRepository struct {
	db *gorm.DB
}

func NewDigestRepository(db *gorm.DB) *DigestRepository {
	return &DigestRepository{db: db}
}

// FindOpenBatch returns the pending batch for (userID, channel) whose
// scheduled window has not yet closed, or nil if none exists.
func (r *DigestRepository) FindOpenBatch(ctx context.Context, userID, channel string, now time.Time) (*models.DigestBatch, error) {
	var batch models.DigestBatch
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel = ? AND status = ? AND scheduled_at > ?",
			userID, channel, models.DigestStatusPending, now).
		Order("scheduled_at asc").
		First(&batch).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *DigestRepository) Create(ctx context.Context, batch *models.DigestBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *DigestRepository) AppendEvent(ctx context.Context, batchID uuid.UUID, eventIDs []uuid.UUID) error {
	idsJSON, err := json.Marshal(eventIDs)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.DigestBatch{}).
		Where("id = ?", batchID).
		Update("event_ids", datatypes.JSON(idsJSON)).Error
}

// DueBatches returns up to limit pending batches whose scheduled_at has
// passed, the shape the scheduler polls for (spec.md §4.7, §5).
func (r *DigestRepository) DueBatches(ctx context.Context, now time.Time, limit int) ([]models.DigestBatch, error) {
	var batches []models.DigestBatch
	if err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.DigestStatusPending, now).
		Order("scheduled_at asc").
		Limit(limit).
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *DigestRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.DigestBatch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  models.DigestStatusSent,
			"sent_at": sentAt,
		}).Error
}

func (r *DigestRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DigestBatch{}).
		Where("id = ?", id).
		Update("status", models.DigestStatusCancelled).Error
}
