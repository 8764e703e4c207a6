package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/database"
	"github.com/jsndz/notifyengine/pkg/types"
	"github.com/redis/go-redis/v9"
)

// Suppression reasons (spec.md §4.1).
const (
	ReasonExactDuplicate = "exact_duplicate"
	ReasonNearDuplicate  = "near_duplicate"
	ReasonTopicCooldown  = "topic_cooldown"
)

// nearDupSkipLen is the message-length floor under which the near-dup
// check is skipped entirely (spec.md §4.1).
const nearDupSkipLen = 20

// scanPageSize bounds each SCAN call when hunting near-duplicate
// signatures for one user (spec.md §4.1).
const scanPageSize = 100

// Guard runs the three dedup tiers against the KV store.
type Guard struct {
	rdb *redis.Client
	cfg *config.Config
}

func NewGuard(rdb *redis.Client, cfg *config.Config) *Guard {
	return &Guard{rdb: rdb, cfg: cfg}
}

// Result is the outcome of running the guard over one event.
type Result struct {
	SuppressReason string // "" if the event passed every tier
	Fingerprint    string
	Steps          []types.ReasonStep
}

// Check runs exact, near-duplicate, and cooldown checks in order,
// short-circuiting on the first suppression (spec.md §4.1).
func (g *Guard) Check(ctx context.Context, event *types.NotificationEvent) (Result, error) {
	fp := Fingerprint(event.UserID, event.EventType, event.DedupeKey, event.Title, event.Source)
	res := Result{Fingerprint: fp}

	exactDup, step, err := g.checkExact(ctx, fp)
	res.Steps = append(res.Steps, step)
	if err != nil {
		return res, err
	}
	if exactDup {
		res.SuppressReason = ReasonExactDuplicate
		metrics.DedupSuppressionsTotal.WithLabelValues("exact").Inc()
		return res, nil
	}

	if len(event.Message) > nearDupSkipLen {
		nearDup, step, err := g.checkNear(ctx, event, fp)
		res.Steps = append(res.Steps, step)
		if err != nil {
			return res, err
		}
		if nearDup {
			res.SuppressReason = ReasonNearDuplicate
			metrics.DedupSuppressionsTotal.WithLabelValues("near").Inc()
			return res, nil
		}
	}

	cooling, step := g.checkCooldown(ctx, event)
	res.Steps = append(res.Steps, step)
	if cooling {
		res.SuppressReason = ReasonTopicCooldown
		metrics.DedupSuppressionsTotal.WithLabelValues("cooldown").Inc()
		return res, nil
	}

	return res, nil
}

func (g *Guard) checkExact(ctx context.Context, fp string) (bool, types.ReasonStep, error) {
	key := database.KeyExactDedup(fp)
	// SET NX is the SETNX-equivalent the spec calls for: only the first
	// writer wins, and its TTL sticks for every concurrent racer.
	ok, err := g.rdb.SetNX(ctx, key, "1", g.cfg.ExactDedupTTL).Result()
	if err != nil {
		return false, types.ReasonStep{}, err
	}
	if !ok {
		return true, types.ReasonStep{
			Layer:  "L1-Dedup",
			Check:  "exact_duplicate",
			Result: "SUPPRESS",
			Detail: fmt.Sprintf("fingerprint %s... seen within TTL window", fp[:12]),
		}, nil
	}
	return false, types.ReasonStep{
		Layer:  "L1-Dedup",
		Check:  "exact_duplicate",
		Result: "PASS",
		Detail: "no exact duplicate found",
	}, nil
}

func (g *Guard) checkNear(ctx context.Context, event *types.NotificationEvent, fp string) (bool, types.ReasonStep, error) {
	currentSig := Signature(event.Title, event.Message)

	pattern := database.KeyNearDedupScanPattern(event.UserID)
	iter := g.rdb.Scan(ctx, 0, pattern, scanPageSize).Iterator()
	for iter.Next(ctx) {
		raw, err := g.rdb.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var storedSig []uint64
		if err := json.Unmarshal([]byte(raw), &storedSig); err != nil {
			continue
		}
		similarity := EstimateJaccard(currentSig, storedSig)
		if similarity >= g.cfg.LSHJaccardThreshold {
			return true, types.ReasonStep{
				Layer:  "L1-Dedup",
				Check:  "near_duplicate_lsh",
				Result: "SUPPRESS",
				Detail: fmt.Sprintf("jaccard similarity %.2f >= threshold %.2f", similarity, g.cfg.LSHJaccardThreshold),
			}, nil
		}
	}
	if err := iter.Err(); err != nil {
		return false, types.ReasonStep{}, err
	}

	sigJSON, err := json.Marshal(currentSig)
	if err != nil {
		return false, types.ReasonStep{}, err
	}
	storeKey := database.KeyNearDedup(event.UserID, fp)
	if err := g.rdb.Set(ctx, storeKey, sigJSON, g.cfg.NearDedupTTL).Err(); err != nil {
		return false, types.ReasonStep{}, err
	}

	return false, types.ReasonStep{
		Layer:  "L1-Dedup",
		Check:  "near_duplicate_lsh",
		Result: "PASS",
		Detail: "no near-duplicate found above threshold",
	}, nil
}

func (g *Guard) checkCooldown(ctx context.Context, event *types.NotificationEvent) (bool, types.ReasonStep) {
	if event.PriorityHint.IsCritical() {
		return false, types.ReasonStep{
			Layer:  "L1-Dedup",
			Check:  "topic_cooldown",
			Result: "BYPASS",
			Detail: "critical priority bypasses cooldown",
		}
	}

	key := database.KeyCooldown(event.UserID, event.EventType)
	ttl, err := g.rdb.TTL(ctx, key).Result()
	if err == nil && ttl > 0 {
		return true, types.ReasonStep{
			Layer:  "L1-Dedup",
			Check:  "topic_cooldown",
			Result: "DEFER",
			Detail: fmt.Sprintf("topic %s in cooldown — %s remaining", event.EventType, ttl.Round(time.Second)),
		}
	}

	return false, types.ReasonStep{
		Layer:  "L1-Dedup",
		Check:  "topic_cooldown",
		Result: "PASS",
		Detail: "no active cooldown for this topic",
	}
}

// RegisterCooldown sets a cooldown after a successful NOW dispatch.
// Critical events never set one (spec.md §3, §4.6).
func (g *Guard) RegisterCooldown(ctx context.Context, event *types.NotificationEvent) error {
	if event.PriorityHint.IsCritical() {
		return nil
	}
	key := database.KeyCooldown(event.UserID, event.EventType)
	return g.rdb.Set(ctx, key, "1", g.cfg.DefaultCooldown).Err()
}
