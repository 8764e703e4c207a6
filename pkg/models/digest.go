package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DigestStatusPending   = "pending"
	DigestStatusSent      = "sent"
	DigestStatusCancelled = "cancelled"
)

// DigestBatch aggregates deferred events for one user/channel so the
// scheduler can deliver them together (spec.md §3, §4.7). At most one
// pending batch per (user_id, channel) per aggregation window.
type DigestBatch struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      string         `gorm:"size:64;not null;index"`
	Channel     string         `gorm:"size:20;not null"`
	EventIDs    datatypes.JSON `gorm:"type:jsonb"`
	ScheduledAt time.Time      `gorm:"not null;index"`
	SentAt      *time.Time
	Status      string    `gorm:"size:20;not null;default:pending"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (DigestBatch) TableName() string { return "digest_batches" }
