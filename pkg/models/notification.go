package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StoredEvent is the durable record of an evaluated notification (spec.md
// §3, StoredEvent). Immutable once written — dispatch writes it exactly
// once per event_id.
type StoredEvent struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              string    `gorm:"size:64;not null;index"`
	EventType           string    `gorm:"size:128;not null;index"`
	Title               string    `gorm:"type:text;not null"`
	Message             string    `gorm:"type:text;not null"`
	Source              string    `gorm:"size:64;not null"`
	Channel             string    `gorm:"size:20;not null;default:push"`
	PriorityHint        string    `gorm:"size:20"`
	DedupeKey           string    `gorm:"size:256"`
	ComputedFingerprint string    `gorm:"size:64;not null;index"`
	ExpiresAt           *time.Time
	EventTimestamp      time.Time                        `gorm:"not null"`
	Metadata            datatypes.JSONMap                `gorm:"type:jsonb"`

	Decision     string `gorm:"size:10;index"`
	Score        *float64
	ScheduledAt  *time.Time
	ReasonChain  datatypes.JSON `gorm:"type:jsonb"`
	AIUsed       bool
	FallbackUsed bool
	RuleMatched  string `gorm:"size:128"`

	CreatedAt   time.Time `gorm:"autoCreateTime"`
	ProcessedAt *time.Time
}

func (StoredEvent) TableName() string { return "notification_events" }

// AuditEntry is the append-only flattened copy written for every terminal
// outcome, including early suppressions (spec.md §3, AuditEntry).
type AuditEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID      string    `gorm:"size:64;not null;index"`
	EventType   string    `gorm:"size:128;not null"`
	Decision    string    `gorm:"size:10;not null"`
	Score       *float64
	AIUsed      bool
	FallbackUsed bool
	RuleMatched string         `gorm:"size:128"`
	ReasonChain datatypes.JSON `gorm:"type:jsonb"`
	RawEvent    datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index"`
}

func (AuditEntry) TableName() string { return "audit_log" }

// SuppressionRecord is reserved for durable suppressions; not on the
// decision hot path (spec.md §3).
type SuppressionRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           string    `gorm:"size:64;not null;index"`
	Fingerprint      string    `gorm:"size:64;not null"`
	Reason           string    `gorm:"size:128;not null"`
	SuppressedUntil  time.Time `gorm:"not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (SuppressionRecord) TableName() string { return "suppression_records" }
