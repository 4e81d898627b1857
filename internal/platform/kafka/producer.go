// Package kafka wraps the franz-go producer used by the audit outbox worker.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"scorewise/internal/platform/config"
)

const kafkaAdminTimeout = 10 * time.Second

// Producer publishes audit records to the configured topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the Kafka cluster and ensures the audit topic
// exists. Returns nil if no brokers are configured (dev mode: outbox rows
// stay unpublished).
func NewProducer(cfg config.Kafka) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(client, cfg.AuditTopic); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client, topic: cfg.AuditTopic}, nil
}

// ensureTopic creates the audit topic if the cluster does not know it yet.
// Already-exists responses are not errors; brokers race on creation.
func ensureTopic(client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	ctx, cancel := context.WithTimeout(context.Background(), kafkaAdminTimeout)
	defer cancel()

	topics, err := adm.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}

	resp, err := adm.CreateTopic(ctx, 3, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create kafka topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create kafka topic %q: %w", topic, resp.Err)
	}
	return nil
}

// Publish produces one record synchronously. The key groups records per
// scorecard so per-scorecard ordering is preserved.
func (p *Producer) Publish(ctx context.Context, key, payload []byte) error {
	record := &kgo.Record{Topic: p.topic, Key: key, Value: payload}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}
