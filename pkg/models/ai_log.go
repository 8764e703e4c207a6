package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AIInteractionLog records the prompt, raw LLM response (if any), parsed
// sub-scores and fallback reason for every scoring call — LLM or
// heuristic alike (spec.md §3, §4.4).
type AIInteractionLog struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    string    `gorm:"size:64;not null;index"`
	EventType string    `gorm:"size:128;not null"`

	Prompt         string         `gorm:"type:text;not null"`
	Response       datatypes.JSON `gorm:"type:jsonb"`
	AIUsed         bool           `gorm:"default:true"`
	FallbackReason string         `gorm:"size:128"`

	Score          *float64
	Decision       string `gorm:"size:10"`
	Urgency        *float64
	Engagement     *float64
	FatiguePenalty *float64
	RecencyBonus   *float64
	Reasoning      string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (AIInteractionLog) TableName() string { return "ai_interaction_logs" }
