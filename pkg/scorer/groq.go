package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/types"
	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Sentinel errors identifying the kind of Groq call failure, so callers
// can classify a failure into spec.md §4.4's llm_error:<kind> without
// string-matching the wrapped message.
var (
	ErrGroqTransport = errors.New("transport")
	ErrGroqNoChoices = errors.New("no_choices")
	ErrGroqDecode    = errors.New("decode")
)

// groqClient wraps the OpenAI-compatible client pointed at Groq's
// endpoint, matching the pattern used for other OpenAI-compatible
// providers in this codebase (custom BaseURL, default client otherwise).
type groqClient struct {
	client *openai.Client
	model  string
}

func newGroqClient(cfg *config.Config) *groqClient {
	oc := openai.DefaultConfig(cfg.GroqAPIKey)
	oc.BaseURL = groqBaseURL
	return &groqClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.GroqModel,
	}
}

// rawScore is the JSON document the prompt asks the model to return.
type rawScore struct {
	Score          float64 `json:"score"`
	Decision       string  `json:"decision"`
	Urgency        float64 `json:"urgency"`
	Engagement     float64 `json:"engagement"`
	FatiguePenalty float64 `json:"fatigue_penalty"`
	RecencyBonus   float64 `json:"recency_bonus"`
	Reasoning      string  `json:"reasoning"`
}

func buildPrompt(event *types.NotificationEvent, ctx *enrich.UserContext) string {
	message := event.Message
	if len(message) > 300 {
		message = message[:300]
	}
	secondsSince := "never_sent"
	if ctx.SecondsSinceLastSameType != nil {
		secondsSince = fmt.Sprintf("%.0f", *ctx.SecondsSinceLastSameType)
	}

	return fmt.Sprintf(`You are a notification prioritization engine. Analyze this notification and return ONLY valid JSON — no explanation, no markdown.

NOTIFICATION EVENT:
- event_type: %s
- title: %s
- message: %s
- source: %s
- channel: %s
- priority_hint: %s

USER CONTEXT:
- notifications_sent_last_1h: %d (cap: %d)
- notifications_sent_last_24h: %d (cap: %d)
- seconds_since_last_same_type: %s
- dnd_active: %v
- current_local_hour: %d
- user_segment: %s
- engagement_at_current_hour: %.2f
- opted_out_topics: %v

SCORING FORMULA: score = (0.35 * urgency) + (0.25 * engagement) - (0.25 * fatigue_penalty) + (0.15 * recency_bonus)

Return this exact JSON structure:
{
  "score": <float 0.0-1.0>,
  "decision": "<now|later|never>",
  "urgency": <float 0.0-1.0>,
  "engagement": <float 0.0-1.0>,
  "fatigue_penalty": <float 0.0-1.0>,
  "recency_bonus": <float 0.0-1.0>,
  "reasoning": "<one sentence explanation>"
}`,
		event.EventType, event.Title, message, event.Source, event.Channel, event.PriorityHint,
		ctx.NotificationsLast1h, ctx.HourlyCap, ctx.NotificationsLast24h, ctx.DailyCap,
		secondsSince, ctx.DNDActive, ctx.CurrentLocalHour, ctx.Segment,
		ctx.EngagementScoreForCurrentHour(), ctx.OptedOutTopics)
}

// call sends the prompt to Groq and parses the JSON response. Transport
// and timeout errors, empty responses, and decode errors are wrapped with
// ErrGroqTransport, ErrGroqNoChoices and ErrGroqDecode respectively — the
// caller decides how to classify them for breaker/fallback purposes.
func (g *groqClient) call(ctx context.Context, prompt string) (rawScore, string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.1,
		MaxTokens:      256,
	})
	if err != nil {
		return rawScore{}, "", fmt.Errorf("groq chat completion: %w: %w", ErrGroqTransport, err)
	}
	if len(resp.Choices) == 0 {
		return rawScore{}, "", fmt.Errorf("groq returned no choices: %w", ErrGroqNoChoices)
	}

	content := resp.Choices[0].Message.Content
	var raw rawScore
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return rawScore{}, content, fmt.Errorf("decode groq response: %w: %w", ErrGroqDecode, err)
	}
	return raw, content, nil
}
