package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"time"

	"github.com/jsndz/notifyengine/metrics"
	"github.com/jsndz/notifyengine/pkg/utils"
	"github.com/segmentio/kafka-go"
)

// Producer is the message bus client (spec.md §6's bus topics). One
// writer per process with a 5ms batch timeout (linger) to batch writes.
// The writer does not enable idempotent delivery: a retried write can
// reach the broker twice.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 5 * time.Millisecond,
			Async:        false,
		},
	}
}

// Publish writes one message, keyed by user_id so downstream consumers
// get per-user ordering (spec.md §5).
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
	if err != nil {
		log.Printf("kafka publish failed topic=%s: %v", topic, err)
		metrics.KafkaPublishFailureTotal.WithLabelValues(topic).Inc()
		return err
	}
	metrics.KafkaPublishSuccessTotal.WithLabelValues(topic).Inc()
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NewProducerTLS dials a TLS-secured broker (e.g. a managed Kafka
// offering) using a client cert/key/CA bundle decoded from environment
// variables — adapted from the teacher's NewProducerAvien.
func NewProducerTLS(brokerURL string, keypair tls.Certificate, caCertPool *x509.CertPool) *Producer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		TLS: &tls.Config{
			Certificates: []tls.Certificate{keypair},
			RootCAs:      caCertPool,
		},
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      []string{brokerURL},
		Dialer:       dialer,
		BatchTimeout: 5 * time.Millisecond,
	})
	return &Producer{writer: writer}
}

// NewProducerFromEnv picks a local or TLS-secured broker based on the
// APP_ENV variable, matching the teacher's STATE-driven switch in
// NewProducerFromEnv.
func NewProducerFromEnv() (*Producer, error) {
	if utils.GetEnv("APP_ENV") == "prod" {
		keypair, caCertPool, err := utils.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode tls bundle: %w", err)
		}
		return NewProducerTLS(utils.GetEnv("KAFKA_BOOTSTRAP_SERVERS"), keypair, caCertPool), nil
	}
	brokers := []string{utils.GetEnvDefault("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")}
	return NewProducer(brokers), nil
}
