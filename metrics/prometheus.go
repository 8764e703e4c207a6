package metrics

import "github.com/prometheus/client_golang/prometheus"

// HTTP surface — kept from the teacher's middlewares/metrics.go pattern.

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

// Pipeline stages — one counter per decision layer so each of the six
// stages is independently observable.

var EventsIngestedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "events_ingested_total",
		Help: "Total number of notification events accepted for processing",
	},
	[]string{"source", "event_type"},
)

var EventsExpiredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "events_expired_total",
		Help: "Total number of events dropped for already being past expires_at",
	},
	[]string{"event_type"},
)

var DedupSuppressionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dedup_suppressions_total",
		Help: "Total number of events suppressed by the dedup layer, by tier",
	},
	[]string{"tier"}, // exact | near | cooldown
)

var RuleEvaluationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rule_evaluations_total",
		Help: "Total number of rule evaluations, by rule type and outcome",
	},
	[]string{"rule_type", "matched"},
)

var RuleCacheRefreshTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rule_cache_refresh_total",
		Help: "Total number of in-process rule cache reloads, by outcome",
	},
	[]string{"outcome"}, // ok | error
)

var RuleCacheAgeSeconds = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "rule_cache_age_seconds",
		Help: "Seconds since the in-process rule cache was last refreshed",
	},
)

var ContextEnrichmentDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "context_enrichment_duration_seconds",
		Help:    "Time spent fanning out counters/last-send/profile lookups",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"component"}, // counters | last_send | profile
)

var ScoringRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scoring_requests_total",
		Help: "Total number of scoring attempts, by path taken",
	},
	[]string{"path"}, // ai | fallback
)

var ScoringDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "scoring_duration_seconds",
		Help:    "Time spent scoring an event, by path taken",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"path"},
)

var CircuitBreakerStateChangesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "circuit_breaker_state_changes_total",
		Help: "Total number of scorer circuit breaker state transitions",
	},
	[]string{"from", "to"},
)

var CircuitBreakerState = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current scorer circuit breaker state (0=closed, 1=open, 2=half_open)",
	},
)

var ArbiterDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "arbiter_decisions_total",
		Help: "Total number of arbiter decisions, by outcome",
	},
	[]string{"decision"}, // now | later | never
)

var DispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dispatch_total",
		Help: "Total number of dispatcher publishes, by queue and outcome",
	},
	[]string{"queue", "outcome"},
)

var SchedulerBatchesProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_batches_processed_total",
		Help: "Total number of digest batches the scheduler has dispatched",
	},
	[]string{"outcome"}, // ok | error
)

var SchedulerTickDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "scheduler_tick_duration_seconds",
		Help:    "Time spent processing one scheduler poll tick",
		Buckets: prometheus.DefBuckets,
	},
)

// External collaborators.

var ExternalAPISuccessTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "external_api_success_total",
		Help: "Total number of successful external API calls",
	},
	[]string{"provider", "service"},
)

var ExternalAPIFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "external_api_failure_total",
		Help: "Total number of failed external API calls",
	},
	[]string{"provider", "service"},
)

var ExternalAPIDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "external_api_duration_seconds",
		Help:    "Duration of external API calls in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider", "service"},
)

// Bus.

var KafkaPublishSuccessTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_success_total",
		Help: "Total number of successful Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaPublishFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_failure_total",
		Help: "Total number of failed Kafka publishes",
	},
	[]string{"topic"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
	prometheus.MustRegister(HttpRateLimitRejectionsTotal)
}

func InitPipelineMetrics() {
	prometheus.MustRegister(EventsIngestedTotal)
	prometheus.MustRegister(EventsExpiredTotal)
	prometheus.MustRegister(DedupSuppressionsTotal)
	prometheus.MustRegister(RuleEvaluationsTotal)
	prometheus.MustRegister(RuleCacheRefreshTotal)
	prometheus.MustRegister(RuleCacheAgeSeconds)
	prometheus.MustRegister(ContextEnrichmentDuration)
	prometheus.MustRegister(ScoringRequestsTotal)
	prometheus.MustRegister(ScoringDuration)
	prometheus.MustRegister(CircuitBreakerStateChangesTotal)
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(ArbiterDecisionsTotal)
	prometheus.MustRegister(DispatchTotal)
}

func InitSchedulerMetrics() {
	prometheus.MustRegister(SchedulerBatchesProcessedTotal)
	prometheus.MustRegister(SchedulerTickDuration)
}

func InitExternalMetrics() {
	prometheus.MustRegister(ExternalAPISuccessTotal)
	prometheus.MustRegister(ExternalAPIFailureTotal)
	prometheus.MustRegister(ExternalAPIDuration)
}

func InitKafkaMetrics() {
	prometheus.MustRegister(KafkaPublishSuccessTotal)
	prometheus.MustRegister(KafkaPublishFailureTotal)
}
