//go:build integration

package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"scorewise/internal/audit/worker"
	"scorewise/internal/platform/logger"
	"scorewise/pkg/testutil/containers"
)

type recordingProducer struct {
	mu        sync.Mutex
	fail      bool
	published [][]byte
}

func (p *recordingProducer) Publish(_ context.Context, _, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, payload)
	return nil
}

func (p *recordingProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func (p *recordingProducer) setFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

type OutboxWorkerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
}

func TestOutboxWorkerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxWorkerSuite))
}

func (s *OutboxWorkerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), "../../../migrations")
}

func (s *OutboxWorkerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *OutboxWorkerSuite) insertPending(n int) {
	ctx := context.Background()
	for i := range n {
		_, err := s.postgres.DB.ExecContext(ctx, `
			INSERT INTO audit_outbox (id, partition_key, payload, created_at)
			VALUES ($1, $2, $3, $4)
		`, uuid.New(), "applicant-1", fmt.Sprintf(`{"seq":%d}`, i), time.Now().Add(time.Duration(i)*time.Millisecond))
		s.Require().NoError(err)
	}
}

func (s *OutboxWorkerSuite) pendingCount() int {
	var count int
	err := s.postgres.DB.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM audit_outbox WHERE published_at IS NULL`).Scan(&count)
	s.Require().NoError(err)
	return count
}

func (s *OutboxWorkerSuite) runUntil(outbox *worker.Outbox, cond func() bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = outbox.Run(ctx)
	}()

	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done
	s.Require().True(cond(), "condition not reached before timeout")
}

func (s *OutboxWorkerSuite) TestPublishesPendingRowsAndMarksThem() {
	s.insertPending(5)
	producer := &recordingProducer{}
	outbox := worker.NewOutbox(s.postgres.DB, producer, logger.New(), 25*time.Millisecond, 100)

	s.runUntil(outbox, func() bool { return producer.count() == 5 })

	s.Equal(0, s.pendingCount())
}

func (s *OutboxWorkerSuite) TestPublishesInCreatedAtOrder() {
	s.insertPending(3)
	producer := &recordingProducer{}
	outbox := worker.NewOutbox(s.postgres.DB, producer, logger.New(), 25*time.Millisecond, 100)

	s.runUntil(outbox, func() bool { return producer.count() == 3 })

	s.Equal(`{"seq": 0}`, string(producer.published[0]))
	s.Equal(`{"seq": 2}`, string(producer.published[2]))
}

func (s *OutboxWorkerSuite) TestBrokerFailureLeavesRowsForRetry() {
	s.insertPending(4)
	producer := &recordingProducer{fail: true}
	outbox := worker.NewOutbox(s.postgres.DB, producer, logger.New(), 25*time.Millisecond, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = outbox.Run(ctx)
	}()
	<-done
	cancel()

	s.Equal(0, producer.count())
	s.Equal(4, s.pendingCount())

	// Broker recovery drains the backlog.
	producer.setFail(false)
	s.runUntil(outbox, func() bool { return producer.count() == 4 })
	s.Equal(0, s.pendingCount())
}

func (s *OutboxWorkerSuite) TestBatchSizeLimitsOnePass() {
	s.insertPending(7)
	producer := &recordingProducer{}
	outbox := worker.NewOutbox(s.postgres.DB, producer, logger.New(), 25*time.Millisecond, 3)

	// Multiple passes still drain everything.
	s.runUntil(outbox, func() bool { return producer.count() == 7 })
	s.Equal(0, s.pendingCount())
}
