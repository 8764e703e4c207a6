// Package dispatch is the L6 stage: it durably persists a decision and,
// for NOW/LATER outcomes, fans it out to the message bus and the
// ephemeral counters the context enricher reads back. Grounded on
// spec.md §4.6 and the teacher's cmd/email_worker publish path.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/database"
	"github.com/jsndz/notifyengine/pkg/dedup"
	"github.com/jsndz/notifyengine/pkg/kafka"
	"github.com/jsndz/notifyengine/pkg/models"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/jsndz/notifyengine/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	TopicSendNow = "send_now_queue"
	TopicDefer   = "defer_queue"
)

// Dispatcher writes the terminal decision and, for non-suppressed
// outcomes, publishes it and advances the ephemeral counter/cooldown
// state (spec.md §4.6).
type Dispatcher struct {
	events   *repositories.EventRepository
	digests  *repositories.DigestRepository
	producer *kafka.Producer
	guard    *dedup.Guard
	rdb      *redis.Client
	cfg      *config.Config
	log      *zap.Logger
}

func New(events *repositories.EventRepository, digests *repositories.DigestRepository, producer *kafka.Producer, guard *dedup.Guard, rdb *redis.Client, cfg *config.Config, log *zap.Logger) *Dispatcher {
	return &Dispatcher{events: events, digests: digests, producer: producer, guard: guard, rdb: rdb, cfg: cfg, log: log}
}

// sendNowMessage is the wire body published to the send_now topic.
type sendNowMessage struct {
	EventID       string                 `json:"event_id"`
	UserID        string                 `json:"user_id"`
	EventType     string                 `json:"event_type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Channel       string                 `json:"channel"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	DispatchedAt  time.Time              `json:"dispatched_at"`
	ScheduledSend bool                   `json:"scheduled_send,omitempty"`
}

type deferMessage struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Channel     string    `json:"channel"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Dispatch persists the StoredEvent/AuditEntry transactionally, then
// carries out whatever side effects the decision implies.
func (d *Dispatcher) Dispatch(ctx context.Context, event *types.NotificationEvent, decision types.Decision, score *float64, scheduledAt *time.Time, reasonChain []types.ReasonStep, aiUsed, fallbackUsed bool, ruleMatched string) (*models.StoredEvent, error) {
	reasonJSON, _ := json.Marshal(reasonChain)
	rawEventJSON, _ := json.Marshal(event)

	now := time.Now()
	stored := &models.StoredEvent{
		UserID:         event.UserID,
		EventType:      event.EventType,
		Title:          event.Title,
		Message:        event.Message,
		Source:         event.Source,
		Channel:        string(event.Channel),
		PriorityHint:   string(event.PriorityHint),
		DedupeKey:      event.DedupeKey,
		ExpiresAt:      event.ExpiresAt,
		EventTimestamp: timestampOrNow(event.Timestamp, now),
		Decision:       string(decision),
		Score:          score,
		ScheduledAt:    scheduledAt,
		ReasonChain:    datatypes.JSON(reasonJSON),
		AIUsed:         aiUsed,
		FallbackUsed:   fallbackUsed,
		RuleMatched:    ruleMatched,
		ProcessedAt:    &now,
	}
	if event.Metadata != nil {
		stored.Metadata = event.Metadata
	}

	audit := &models.AuditEntry{
		UserID:       event.UserID,
		EventType:    event.EventType,
		Decision:     string(decision),
		Score:        score,
		AIUsed:       aiUsed,
		FallbackUsed: fallbackUsed,
		RuleMatched:  ruleMatched,
		ReasonChain:  datatypes.JSON(reasonJSON),
		RawEvent:     datatypes.JSON(rawEventJSON),
	}

	if err := d.events.SaveDecision(ctx, stored, audit); err != nil {
		return nil, err
	}

	switch decision {
	case types.DecisionNow:
		d.onNow(ctx, event, stored, now)
	case types.DecisionLater:
		d.onLater(ctx, event, stored, scheduledAt)
	case types.DecisionNever:
		// Audit row already written; nothing further to do.
	}

	return stored, nil
}

func (d *Dispatcher) onNow(ctx context.Context, event *types.NotificationEvent, stored *models.StoredEvent, dispatchedAt time.Time) {
	msg := sendNowMessage{
		EventID:      stored.ID.String(),
		UserID:       event.UserID,
		EventType:    event.EventType,
		Title:        event.Title,
		Message:      event.Message,
		Channel:      string(event.Channel),
		Metadata:     event.Metadata,
		DispatchedAt: dispatchedAt,
	}
	body, _ := json.Marshal(msg)
	if err := d.producer.Publish(ctx, TopicSendNow, []byte(event.UserID), body); err != nil {
		d.log.Warn("dispatch.publish_failed", zap.String("topic", TopicSendNow), zap.Error(err))
		metrics.DispatchTotal.WithLabelValues(TopicSendNow, "failure").Inc()
	} else {
		metrics.DispatchTotal.WithLabelValues(TopicSendNow, "success").Inc()
	}

	d.bumpCounters(ctx, event)

	if err := d.guard.RegisterCooldown(ctx, event); err != nil {
		d.log.Warn("dispatch.cooldown_register_failed", zap.Error(err))
	}
}

// bumpCounters increments the rolling 1h/24h send counters, pinning
// each one's TTL only on the write that created it (spec.md §4.6, §5 —
// "INCR count_1h (set 3600s TTL iff not already set)").
const (
	count1hTTL  = 3600 * time.Second
	count24hTTL = 86400 * time.Second
)

func (d *Dispatcher) bumpCounters(ctx context.Context, event *types.NotificationEvent) {
	if err := d.incrWithTTLPin(ctx, database.KeyCount1h(event.UserID), count1hTTL); err != nil {
		d.log.Warn("dispatch.count_1h_failed", zap.Error(err))
	}
	if err := d.incrWithTTLPin(ctx, database.KeyCount24h(event.UserID), count24hTTL); err != nil {
		d.log.Warn("dispatch.count_24h_failed", zap.Error(err))
	}
	if err := d.rdb.Set(ctx, database.KeyLastSend(event.UserID, event.EventType), time.Now().Unix(), 24*time.Hour).Err(); err != nil {
		d.log.Warn("dispatch.last_send_failed", zap.Error(err))
	}
}

func (d *Dispatcher) incrWithTTLPin(ctx context.Context, key string, ttl time.Duration) error {
	count, err := d.rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return d.rdb.Expire(ctx, key, ttl).Err()
	}
	return nil
}

func (d *Dispatcher) onLater(ctx context.Context, event *types.NotificationEvent, stored *models.StoredEvent, scheduledAt *time.Time) {
	if scheduledAt == nil {
		now := time.Now().Add(time.Hour)
		scheduledAt = &now
	}

	msg := deferMessage{
		EventID:     stored.ID.String(),
		UserID:      event.UserID,
		Channel:     string(event.Channel),
		ScheduledAt: *scheduledAt,
	}
	body, _ := json.Marshal(msg)
	if err := d.producer.Publish(ctx, TopicDefer, []byte(event.UserID), body); err != nil {
		d.log.Warn("dispatch.publish_failed", zap.String("topic", TopicDefer), zap.Error(err))
		metrics.DispatchTotal.WithLabelValues(TopicDefer, "failure").Inc()
	} else {
		metrics.DispatchTotal.WithLabelValues(TopicDefer, "success").Inc()
	}

	if err := d.assignDigestBatch(ctx, event, stored.ID, *scheduledAt); err != nil {
		d.log.Warn("dispatch.digest_assign_failed", zap.Error(err))
	}
}

// assignDigestBatch implements spec.md §4.6's batch assignment: reuse
// the one open pending batch for (user_id, channel) within the
// aggregation window, or start a new one.
func (d *Dispatcher) assignDigestBatch(ctx context.Context, event *types.NotificationEvent, eventID uuid.UUID, scheduledAt time.Time) error {
	now := time.Now()
	channel := string(event.Channel)

	existing, err := d.digests.FindOpenBatch(ctx, event.UserID, channel, now)
	if err != nil {
		return err
	}

	if existing != nil && existing.ScheduledAt.Sub(now) <= d.cfg.DigestBatchWindow {
		var ids []uuid.UUID
		_ = json.Unmarshal(existing.EventIDs, &ids)
		ids = append(ids, eventID)
		return d.digests.AppendEvent(ctx, existing.ID, ids)
	}

	idsJSON, _ := json.Marshal([]uuid.UUID{eventID})
	batch := &models.DigestBatch{
		UserID:      event.UserID,
		Channel:     channel,
		EventIDs:    datatypes.JSON(idsJSON),
		ScheduledAt: scheduledAt,
		Status:      models.DigestStatusPending,
	}
	return d.digests.Create(ctx, batch)
}

func timestampOrNow(ts *time.Time, now time.Time) time.Time {
	if ts != nil {
		return *ts
	}
	return now
}
