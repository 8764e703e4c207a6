package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Rule is an operator-configurable matching rule (spec.md §3, §4.2).
// rule_type is one of force_now, force_never, cooldown, cap, quiet_hours,
// channel_override. conditions and action_params are opaque JSON whose
// shape depends on rule_type; see pkg/rules for the evaluator.
type Rule struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RuleName       string         `gorm:"size:128;not null;uniqueIndex"`
	RuleType       string         `gorm:"size:32;not null"`
	Conditions     datatypes.JSON `gorm:"type:jsonb;not null"`
	ActionParams   datatypes.JSON `gorm:"type:jsonb"`
	PriorityOrder  int            `gorm:"not null;default:100"`
	IsActive       bool           `gorm:"not null;default:true"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (Rule) TableName() string { return "rule_configs" }
