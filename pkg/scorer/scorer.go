package scorer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/models"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/jsndz/notifyengine/pkg/types"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// fallback reason codes, matching spec.md §4.4's literal enumeration
// verbatim so external consumers of AIInteractionLog.FallbackReason
// (e.g. the /ai-logs endpoint) can pattern-match against it.
const (
	fallbackReasonHeuristicPrimary = "heuristic_primary"
	fallbackReasonCircuitOpen      = "circuit_breaker_open"
	fallbackReasonLLMTimeout       = "llm_timeout"
	fallbackReasonLLMErrorPrefix   = "llm_error:"
	fallbackKindTransport          = "transport"
	fallbackKindNoChoices          = "no_choices"
	fallbackKindDecode             = "decode"
)

// classifyGroqError maps a groqClient.call error to the llm_error:<kind>
// reason spec.md §4.4 expects, using the sentinel errors groq.go wraps
// its failures with instead of string-matching the message.
func classifyGroqError(err error) string {
	switch {
	case errors.Is(err, ErrGroqNoChoices):
		return fallbackReasonLLMErrorPrefix + fallbackKindNoChoices
	case errors.Is(err, ErrGroqDecode):
		return fallbackReasonLLMErrorPrefix + fallbackKindDecode
	default:
		return fallbackReasonLLMErrorPrefix + fallbackKindTransport
	}
}

const (
	breakerFailureThreshold = 3
	breakerRecoveryTimeout  = 30 * time.Second
)

// Scorer is the L4 stage: it prefers Groq, gated by a circuit breaker,
// and falls back to the deterministic heuristic whenever the breaker is
// open, the call times out, or the call otherwise errors. Every attempt
// — AI or fallback — is logged (spec.md §4.4).
type Scorer struct {
	cfg     *config.Config
	groq    *groqClient
	breaker *Breaker
	logs    *repositories.AILogRepository
	log     *zap.Logger
}

func New(cfg *config.Config, logs *repositories.AILogRepository, log *zap.Logger) *Scorer {
	s := &Scorer{
		cfg:     cfg,
		logs:    logs,
		log:     log,
		breaker: NewBreaker(breakerFailureThreshold, breakerRecoveryTimeout),
	}
	if cfg.GroqAPIKey != "" {
		s.groq = newGroqClient(cfg)
	}
	return s
}

// Score runs the AI-first, heuristic-fallback scoring flow and persists
// an AIInteractionLog row for the attempt.
func (s *Scorer) Score(ctx context.Context, eventID uuid.UUID, event *types.NotificationEvent, uc *enrich.UserContext) Result {
	prompt := buildPrompt(event, uc)
	start := time.Now()

	if s.groq == nil {
		result := Heuristic(s.cfg, event, uc, fallbackReasonHeuristicPrimary)
		s.record("fallback", start)
		s.persist(ctx, eventID, event, prompt, result, nil)
		return result
	}

	if !s.breaker.Allow() {
		s.log.Warn("scorer.circuit_open_using_heuristic")
		result := Heuristic(s.cfg, event, uc, fallbackReasonCircuitOpen)
		s.record("fallback", start)
		s.persist(ctx, eventID, event, prompt, result, nil)
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GroqTimeout)
	defer cancel()

	raw, rawContent, err := s.groq.call(callCtx, prompt)
	if err != nil {
		s.breaker.RecordFailure()
		reason := fallbackReasonLLMTimeout
		if callCtx.Err() != context.DeadlineExceeded {
			reason = classifyGroqError(err)
		}
		s.log.Warn("scorer.groq_call_failed", zap.Error(err), zap.String("reason", reason))
		result := Heuristic(s.cfg, event, uc, reason)
		s.record("fallback", start)
		s.persist(ctx, eventID, event, prompt, result, nil)
		return result
	}

	s.breaker.RecordSuccess()
	s.record("ai", start)

	decision := raw.Decision
	if decision == "" {
		decision = "later"
	}
	result := Result{
		Score:          clamp01(raw.Score),
		Decision:       decision,
		Urgency:        clamp01(raw.Urgency),
		Engagement:     clamp01(raw.Engagement),
		FatiguePenalty: clamp01(raw.FatiguePenalty),
		RecencyBonus:   clamp01(raw.RecencyBonus),
		Reasoning:      raw.Reasoning,
		AIUsed:         true,
		FallbackUsed:   false,
	}
	if result.Reasoning == "" {
		result.Reasoning = "AI scored this event"
	}

	s.persist(ctx, eventID, event, prompt, result, []byte(rawContent))
	return result
}

func (s *Scorer) persist(ctx context.Context, eventID uuid.UUID, event *types.NotificationEvent, prompt string, result Result, rawResponse datatypes.JSON) {
	entry := &models.AIInteractionLog{
		EventID:        eventID,
		UserID:         event.UserID,
		EventType:      event.EventType,
		Prompt:         prompt,
		Response:       rawResponse,
		AIUsed:         result.AIUsed,
		FallbackReason: result.FallbackReason,
		Score:          &result.Score,
		Decision:       result.Decision,
		Urgency:        &result.Urgency,
		Engagement:     &result.Engagement,
		FatiguePenalty: &result.FatiguePenalty,
		RecencyBonus:   &result.RecencyBonus,
		Reasoning:      result.Reasoning,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.log.Warn("scorer.log_save_failed", zap.Error(err))
		return
	}
	s.log.Info("scorer.log_saved",
		zap.String("event_id", eventID.String()),
		zap.String("decision", result.Decision),
		zap.Float64("score", result.Score))
}

func (s *Scorer) record(path string, start time.Time) {
	metrics.ScoringRequestsTotal.WithLabelValues(path).Inc()
	metrics.ScoringDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
