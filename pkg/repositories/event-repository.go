package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/pkg/models"
	"gorm.io/gorm"
)

// EventRepository persists decided events and their audit trail.
// Adapted from the teacher's pkg/repositories/notification-repository.go.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// SaveDecision writes the StoredEvent and its AuditEntry in a single
// transaction, matching the dispatcher's durability requirement
// (spec.md §4.6, §7: partial writes are not tolerated).
func (r *EventRepository) SaveDecision(ctx context.Context, event *models.StoredEvent, audit *models.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		audit.EventID = event.ID
		if err := tx.Create(audit).Error; err != nil {
			return err
		}
		return nil
	})
}

func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoredEvent, error) {
	var event models.StoredEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// GetAuditByEventID backs GET /v1/notifications/audit/{event_id}
// (spec.md §6: 404 if absent).
func (r *EventRepository) GetAuditByEventID(ctx context.Context, eventID uuid.UUID) (*models.AuditEntry, error) {
	var audit models.AuditEntry
	if err := r.db.WithContext(ctx).First(&audit, "event_id = ?", eventID).Error; err != nil {
		return nil, err
	}
	return &audit, nil
}

func (r *EventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.StoredEvent, error) {
	var events []models.StoredEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CreateSuppression records a durable suppression outside the hot path.
// Nothing in this module calls it; the feedback endpoint only updates
// the heatmap.
func (r *EventRepository) CreateSuppression(ctx context.Context, rec *models.SuppressionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}
