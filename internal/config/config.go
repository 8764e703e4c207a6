package config

import (
	"time"

	"github.com/jsndz/notifyengine/pkg/utils"
)

// Config centralizes every environment-selectable default the pipeline
// reads from. Adapted from the teacher's pkg/config/config.go, which
// loaded a YAML mailer config — this loads flat env vars instead, since
// nothing here is provider-shaped.
type Config struct {
	DatabaseURL           string
	RedisURL              string
	KafkaBootstrapServers string

	GroqAPIKey        string
	GroqModel         string
	GroqTimeout       time.Duration
	AIScoreNowThreshold   float64
	AIScoreLaterThreshold float64

	DefaultHourlyCap      int
	DefaultDailyCap       int
	DefaultCooldown       time.Duration
	ExactDedupTTL         time.Duration
	NearDedupTTL          time.Duration
	LSHJaccardThreshold   float64
	LSHNumPerm            int
	SchedulerPollInterval time.Duration
	DigestBatchWindow     time.Duration
	RulesCacheTTL         time.Duration
}

// Load reads the config from the environment, applying the defaults
// spec.md §6 names.
func Load() *Config {
	return &Config{
		DatabaseURL:           utils.GetEnv("DATABASE_URL"),
		RedisURL:              utils.GetEnvDefault("REDIS_URL", "redis://localhost:6379/0"),
		KafkaBootstrapServers: utils.GetEnvDefault("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),

		GroqAPIKey:            utils.GetEnv("GROQ_API_KEY"),
		GroqModel:             utils.GetEnvDefault("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqTimeout:           floatSeconds(utils.GetEnvDefault("GROQ_TIMEOUT_SECONDS", "1.5")),
		AIScoreNowThreshold:   floatVal(utils.GetEnvDefault("AI_SCORE_NOW_THRESHOLD", "0.75")),
		AIScoreLaterThreshold: floatVal(utils.GetEnvDefault("AI_SCORE_LATER_THRESHOLD", "0.40")),

		DefaultHourlyCap:      intVal(utils.GetEnvDefault("DEFAULT_HOURLY_CAP", "5")),
		DefaultDailyCap:       intVal(utils.GetEnvDefault("DEFAULT_DAILY_CAP", "20")),
		DefaultCooldown:       intSeconds(utils.GetEnvDefault("DEFAULT_COOLDOWN_SECONDS", "3600")),
		ExactDedupTTL:         intSeconds(utils.GetEnvDefault("EXACT_DEDUP_TTL_SECONDS", "3600")),
		NearDedupTTL:          intSeconds(utils.GetEnvDefault("NEAR_DEDUP_TTL_SECONDS", "86400")),
		LSHJaccardThreshold:   floatVal(utils.GetEnvDefault("LSH_JACCARD_THRESHOLD", "0.85")),
		LSHNumPerm:            intVal(utils.GetEnvDefault("LSH_NUM_PERM", "128")),
		SchedulerPollInterval: intSeconds(utils.GetEnvDefault("SCHEDULER_POLL_INTERVAL_SECONDS", "30")),
		DigestBatchWindow:     intMinutes(utils.GetEnvDefault("DIGEST_BATCH_WINDOW_MINUTES", "30")),
		RulesCacheTTL:         30 * time.Second,
	}
}
