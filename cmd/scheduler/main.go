package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jsndz/notifyengine/internal/config"
	"github.com/jsndz/notifyengine/logger"
	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/database"
	"github.com/jsndz/notifyengine/pkg/kafka"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/jsndz/notifyengine/pkg/scheduler"
)

// main runs the background digest-flush loop as its own process,
// mirroring the teacher's cmd/email_worker split between the API
// process and the long-running consumer/poller (spec.md §4.7).
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	cfg := config.Load()

	db, err := database.InitDB(cfg.DatabaseURL)
	if err != nil {
		panic("DB not init  " + err.Error())
	}

	zlog, err := logger.InitLogger()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	zlog.Info("Logger initialized")

	metrics.InitSchedulerMetrics()
	metrics.InitKafkaMetrics()

	producer, err := kafka.NewProducerFromEnv()
	if err != nil {
		panic("Kafka producer not init  " + err.Error())
	}
	zlog.Info("Kafka producer initialized", zap.String("brokers", cfg.KafkaBootstrapServers))

	digestRepo := repositories.NewDigestRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	sched := scheduler.New(digestRepo, eventRepo, producer, cfg, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)
	zlog.Info("Scheduler started", zap.Duration("poll_interval", cfg.SchedulerPollInterval))

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	go func() {
		if err := router.Run(":3001"); err != nil {
			zlog.Fatal("Failed to start health server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zlog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	if err := producer.Close(); err != nil {
		zlog.Error("Error closing Kafka producer", zap.Error(err))
	} else {
		zlog.Info("Kafka producer closed cleanly")
	}
	os.Exit(0)
}
