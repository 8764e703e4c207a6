package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/logger"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/middlewares"
	"github.com/jsndz/notifyengine/pkg/arbiter"
	"github.com/jsndz/notifyengine/pkg/database"
	"github.com/jsndz/notifyengine/pkg/dedup"
	"github.com/jsndz/notifyengine/pkg/dispatch"
	"github.com/jsndz/notifyengine/pkg/enrich"
	"github.com/jsndz/notifyengine/pkg/httpapi"
	"github.com/jsndz/notifyengine/pkg/kafka"
	"github.com/jsndz/notifyengine/pkg/models"
	"github.com/jsndz/notifyengine/pkg/pipeline"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/jsndz/notifyengine/pkg/rules"
	"github.com/jsndz/notifyengine/pkg/scorer"
	"github.com/jsndz/notifyengine/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	cfg := config.Load()

	db, err := database.InitDB(cfg.DatabaseURL)
	if err != nil {
		panic("DB not init  " + err.Error())
	}
	if err := database.MigrateDB(db,
		&models.Rule{},
		&models.UserProfile{},
		&models.StoredEvent{},
		&models.AuditEntry{},
		&models.SuppressionRecord{},
		&models.AIInteractionLog{},
		&models.DigestBatch{},
	); err != nil {
		panic("DB migration failed  " + err.Error())
	}

	rdb, err := database.InitRedis(cfg.RedisURL)
	if err != nil {
		panic("Redis not init  " + err.Error())
	}

	zlog, err := logger.InitLogger()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	zlog.Info("Logger initialized")

	shutdownTracer := tracing.InitTracer("notification_api", zlog)

	metrics.InitAPIMetrics()
	metrics.InitPipelineMetrics()
	metrics.InitKafkaMetrics()

	producer, err := kafka.NewProducerFromEnv()
	if err != nil {
		panic("Kafka producer not init  " + err.Error())
	}
	zlog.Info("Kafka producer initialized", zap.String("brokers", cfg.KafkaBootstrapServers))

	eventRepo := repositories.NewEventRepository(db)
	ruleRepo := repositories.NewRuleRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	ailogRepo := repositories.NewAILogRepository(db)
	digestRepo := repositories.NewDigestRepository(db)

	guard := dedup.NewGuard(rdb, cfg)
	rulesEngine := rules.NewEngine(ruleRepo, cfg)
	enricher := enrich.NewEnricher(rdb, profileRepo, cfg, zlog)
	sc := scorer.New(cfg, ailogRepo, zlog)
	arb := arbiter.New(cfg)
	disp := dispatch.New(eventRepo, digestRepo, producer, guard, rdb, cfg, zlog)
	pipe := pipeline.New(guard, rulesEngine, enricher, sc, arb, disp, zlog)

	router := gin.Default()
	router.Use(middlewares.GinMetricsMiddleware())

	router.GET("/health", httpapi.NewHealthHandler(db, rdb).Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ingestLimiter := middlewares.NewRateLimiter(rate.Limit(10), 20)

	v1 := router.Group("/v1")
	httpapi.Notifications(v1.Group("/notifications"), httpapi.NewNotificationHandler(pipe, eventRepo, ailogRepo, zlog), ingestLimiter)
	httpapi.Rules(v1.Group("/rules"), httpapi.NewRuleHandler(ruleRepo, rulesEngine, zlog))
	httpapi.Users(v1.Group("/users"), httpapi.NewProfileHandler(profileRepo, eventRepo, rdb, cfg, zlog))

	go handleShutdown(producer, shutdownTracer, zlog)

	if err := router.Run(":3000"); err != nil {
		zlog.Fatal("Failed to start server", zap.Error(err))
	}
}

func handleShutdown(producer *kafka.Producer, shutdownTracer func(), log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	if err := producer.Close(); err != nil {
		log.Error("Error closing Kafka producer", zap.Error(err))
	} else {
		log.Info("Kafka producer closed cleanly")
	}

	shutdownTracer()
	os.Exit(0)
}
