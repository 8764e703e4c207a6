// Package types holds the wire-level shapes shared across the pipeline:
// the inbound notification event, decision results, and the reason chain
// that makes every decision explainable.
package types

import (
	"errors"
	"fmt"
	"time"
)

// Channel is the delivery channel a notification targets.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelPush, ChannelEmail, ChannelSMS, ChannelInApp:
		return true
	}
	return false
}

// PriorityHint is the caller's best-effort hint about urgency.
type PriorityHint string

const (
	PriorityCritical PriorityHint = "critical"
	PriorityHigh     PriorityHint = "high"
	PriorityMedium   PriorityHint = "medium"
	PriorityLow      PriorityHint = "low"
	PriorityNone     PriorityHint = ""
)

func (p PriorityHint) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	}
	return false
}

func (p PriorityHint) IsCritical() bool {
	return p == PriorityCritical
}

// Decision is the terminal outcome of the pipeline.
type Decision string

const (
	DecisionNow   Decision = "now"
	DecisionLater Decision = "later"
	DecisionNever Decision = "never"
)

// NotificationEvent is the inbound request shape (spec.md §3, NotificationEvent input).
type NotificationEvent struct {
	UserID       string                 `json:"user_id" binding:"required"`
	EventType    string                 `json:"event_type" binding:"required"`
	Title        string                 `json:"title" binding:"required"`
	Message      string                 `json:"message" binding:"required"`
	Source       string                 `json:"source" binding:"required"`
	Channel      Channel                `json:"channel"`
	PriorityHint PriorityHint           `json:"priority_hint,omitempty"`
	DedupeKey    string                 `json:"dedupe_key,omitempty"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
	Timestamp    *time.Time             `json:"timestamp,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

const (
	maxUserIDLen    = 64
	maxEventTypeLen = 128
	maxTitleLen     = 256
	maxDedupeKeyLen = 256
	maxBatchSize    = 500
)

// Validate enforces spec.md §3's NotificationEvent invariants. It mutates
// the event to apply the push-channel default, matching the teacher's
// pattern of defaulting Channel at bind time.
func (e *NotificationEvent) Validate(now time.Time) error {
	if e.UserID == "" || len(e.UserID) > maxUserIDLen {
		return fmt.Errorf("user_id must be 1-%d characters", maxUserIDLen)
	}
	if e.EventType == "" || len(e.EventType) > maxEventTypeLen {
		return fmt.Errorf("event_type must be 1-%d characters", maxEventTypeLen)
	}
	if e.Title == "" || len(e.Title) > maxTitleLen {
		return fmt.Errorf("title must be 1-%d characters", maxTitleLen)
	}
	if e.Message == "" {
		return errors.New("message must not be empty")
	}
	if e.Source == "" {
		return errors.New("source is required")
	}
	if e.Channel == "" {
		e.Channel = ChannelPush
	}
	if !e.Channel.Valid() {
		return fmt.Errorf("channel %q is not one of push,email,sms,in_app", e.Channel)
	}
	if !e.PriorityHint.Valid() {
		return fmt.Errorf("priority_hint %q is not valid", e.PriorityHint)
	}
	if len(e.DedupeKey) > maxDedupeKeyLen {
		return fmt.Errorf("dedupe_key must be at most %d characters", maxDedupeKeyLen)
	}
	if e.ExpiresAt != nil && e.ExpiresAt.Before(now) {
		return errors.New("expires_at must be in the future")
	}
	return nil
}

// BatchNotificationEvent is the request body for /v1/notifications/batch-evaluate.
type BatchNotificationEvent struct {
	Events []NotificationEvent `json:"events" binding:"required"`
}

func (b *BatchNotificationEvent) Validate() error {
	if len(b.Events) == 0 || len(b.Events) > maxBatchSize {
		return fmt.Errorf("events must contain 1-%d items", maxBatchSize)
	}
	return nil
}

// ReasonStep is one entry in the audit-grade explanation of a decision.
type ReasonStep struct {
	Layer  string `json:"layer"`
	Check  string `json:"check"`
	Result string `json:"result"`
	Detail string `json:"detail,omitempty"`
}

// DecisionResult is the response to a single evaluation.
type DecisionResult struct {
	EventID      string       `json:"event_id"`
	UserID       string       `json:"user_id"`
	Decision     Decision     `json:"decision"`
	Score        *float64     `json:"score,omitempty"`
	ScheduledAt  *time.Time   `json:"scheduled_at,omitempty"`
	ReasonChain  []ReasonStep `json:"reason_chain"`
	AIUsed       bool         `json:"ai_used"`
	FallbackUsed bool         `json:"fallback_used"`
	RuleMatched  string       `json:"rule_matched,omitempty"`
	ProcessedAt  time.Time    `json:"processed_at"`
}

// BatchDecisionResult preserves per-item order (spec.md §6).
type BatchDecisionResult struct {
	BatchID     string           `json:"batch_id"`
	Total       int              `json:"total"`
	Results     []DecisionResult `json:"results"`
	ProcessedAt time.Time        `json:"processed_at"`
}
