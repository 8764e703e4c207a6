// Package scheduler runs the long-lived background task that flushes
// due digest batches to the message bus. Grounded on
// original_source/app/services/scheduler.py and the teacher's
// cmd/email_worker worker-loop style.
package scheduler

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/dispatch"
	"github.com/jsndz/notifyengine/pkg/kafka"
	"github.com/jsndz/notifyengine/pkg/models"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"go.uber.org/zap"
)

const (
	batchesPerTick      = 100
	defaultPriorityOrder = 5
)

// digestItem is one event's projection inside a published digest
// message (spec.md §4.7).
type digestItem struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	PriorityOrder int                    `json:"-"`
}

type digestMessage struct {
	Type      string       `json:"type"`
	Items     []digestItem `json:"items"`
	ItemCount int          `json:"item_count"`
}

type singleEventMessage struct {
	EventID       string                 `json:"event_id"`
	UserID        string                 `json:"user_id"`
	EventType     string                 `json:"event_type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	ScheduledSend bool                   `json:"scheduled_send"`
}

// Scheduler polls for due digest batches and flushes them to the bus
// (spec.md §4.7).
type Scheduler struct {
	digests  *repositories.DigestRepository
	events   *repositories.EventRepository
	producer *kafka.Producer
	cfg      *config.Config
	log      *zap.Logger
}

func New(digests *repositories.DigestRepository, events *repositories.EventRepository, producer *kafka.Producer, cfg *config.Config, log *zap.Logger) *Scheduler {
	return &Scheduler{digests: digests, events: events, producer: producer, cfg: cfg, log: log}
}

// Run blocks, ticking at cfg.SchedulerPollInterval until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SchedulerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick processes up to batchesPerTick due batches, logging per-batch
// errors without aborting the rest of the tick (spec.md §4.7).
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	now := time.Now()

	batches, err := s.digests.DueBatches(ctx, now, batchesPerTick)
	if err != nil {
		s.log.Error("scheduler.due_batches_failed", zap.Error(err))
		metrics.SchedulerBatchesProcessedTotal.WithLabelValues("error").Inc()
		metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
		return
	}

	for _, batch := range batches {
		if err := s.processBatch(ctx, batch, now); err != nil {
			s.log.Error("scheduler.process_batch_failed", zap.String("batch_id", batch.ID.String()), zap.Error(err))
			metrics.SchedulerBatchesProcessedTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.SchedulerBatchesProcessedTotal.WithLabelValues("ok").Inc()
	}

	metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
}

func (s *Scheduler) processBatch(ctx context.Context, batch models.DigestBatch, now time.Time) error {
	var ids []uuid.UUID
	if err := json.Unmarshal(batch.EventIDs, &ids); err != nil {
		return err
	}

	var live []models.StoredEvent
	for _, id := range ids {
		event, err := s.events.GetByID(ctx, id)
		if err != nil {
			s.log.Warn("scheduler.event_load_failed", zap.String("event_id", id.String()), zap.Error(err))
			continue
		}
		if event.ExpiresAt != nil && event.ExpiresAt.Before(now) {
			continue
		}
		live = append(live, *event)
	}

	if len(live) == 0 {
		return s.digests.MarkCancelled(ctx, batch.ID)
	}

	if len(live) == 1 {
		if err := s.publishSingle(ctx, live[0]); err != nil {
			s.log.Warn("scheduler.publish_failed", zap.Error(err))
		}
	} else {
		if err := s.publishDigest(ctx, batch.UserID, live); err != nil {
			s.log.Warn("scheduler.publish_failed", zap.Error(err))
		}
	}

	return s.digests.MarkSent(ctx, batch.ID, now)
}

func (s *Scheduler) publishSingle(ctx context.Context, event models.StoredEvent) error {
	metadata := map[string]interface{}(event.Metadata)

	msg := singleEventMessage{
		EventID:       event.ID.String(),
		UserID:        event.UserID,
		EventType:     event.EventType,
		Title:         event.Title,
		Message:       event.Message,
		Metadata:      metadata,
		ScheduledSend: true,
	}
	body, _ := json.Marshal(msg)
	return s.producer.Publish(ctx, dispatch.TopicSendNow, []byte(event.UserID), body)
}

// sortByPriority orders digest items ascending by priority_order,
// stable so equal-priority events keep arrival order (spec.md §4.7).
func sortByPriority(items []digestItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].PriorityOrder < items[j].PriorityOrder })
}

func (s *Scheduler) publishDigest(ctx context.Context, userID string, events []models.StoredEvent) error {
	items := make([]digestItem, 0, len(events))
	for _, e := range events {
		metadata := map[string]interface{}(e.Metadata)

		priority := defaultPriorityOrder
		if raw, ok := metadata["priority_order"]; ok {
			if f, ok := raw.(float64); ok {
				priority = int(f)
			}
		}

		items = append(items, digestItem{
			EventID:       e.ID.String(),
			EventType:     e.EventType,
			Title:         e.Title,
			Message:       e.Message,
			Metadata:      metadata,
			PriorityOrder: priority,
		})
	}

	sortByPriority(items)

	msg := digestMessage{Type: "digest", Items: items, ItemCount: len(items)}
	body, _ := json.Marshal(msg)
	return s.producer.Publish(ctx, dispatch.TopicSendNow, []byte(userID), body)
}
