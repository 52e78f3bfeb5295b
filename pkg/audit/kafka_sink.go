package audit

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/metrics"
)

// KafkaSinkConfig configures a KafkaSink.
type KafkaSinkConfig struct {
	Brokers []string
	Topic   string
	// TLS enables TLS with system roots on the broker connection.
	TLS bool
	// BatchTimeout is the maximum time to wait before flushing a batch.
	// Default: 1 second.
	BatchTimeout time.Duration
	// WriteTimeout bounds a single write. Default: 10 seconds.
	WriteTimeout time.Duration
}

// KafkaSink writes decision events to a Kafka topic, keyed by cluster so one
// cluster's events stay ordered within a partition.
type KafkaSink struct {
	log    *zap.SugaredLogger
	writer *kafka.Writer
}

func NewKafkaSink(log *zap.SugaredLogger, cfg KafkaSinkConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	transport := &kafka.Transport{}
	if cfg.TLS {
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Transport:    transport,
	}
	log.Infow("Audit kafka sink enabled", "brokers", cfg.Brokers, "topic", cfg.Topic, "tls", cfg.TLS)
	return &KafkaSink{log: log, writer: writer}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		metrics.AuditEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Cluster),
		Value: payload,
	}); err != nil {
		metrics.AuditEvents.WithLabelValues("error").Inc()
		s.log.Warnw("Failed to publish audit event", "cluster", event.Cluster, "error", err)
		return err
	}
	metrics.AuditEvents.WithLabelValues("success").Inc()
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
