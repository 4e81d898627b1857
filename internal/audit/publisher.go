package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher hands evaluation logs to the store, synchronously by default or
// through a buffered channel with WithAsyncBuffer. Async mode trades
// at-most-once delivery under a full buffer for caller latency; compliance
// deployments run synchronous so an evaluation only completes once its log
// row is durable.
type Publisher struct {
	store  Store
	logger *slog.Logger

	inbox   chan EvaluationLog
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer switches the publisher to buffered async emission.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		p.inbox = make(chan EvaluationLog, size)
	}
}

// WithLogger attaches a logger for drop/failure reporting.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a publisher over the given store.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{}), stopped: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	} else {
		close(p.stopped)
	}
	return p
}

// Emit records one evaluation log. In async mode a full buffer drops the
// entry and reports the drop; in sync mode the store error propagates to
// the caller.
func (p *Publisher) Emit(ctx context.Context, entry EvaluationLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, entry)
	}
	select {
	case p.inbox <- entry:
		return nil
	default:
		if p.logger != nil {
			p.logger.Error("audit buffer full, dropping evaluation log",
				"evaluation_id", entry.ID,
				"request_id", entry.RequestID,
			)
		}
		return nil
	}
}

// List exposes the store's applicant view for callers holding a publisher.
func (p *Publisher) List(ctx context.Context, applicantID string) ([]EvaluationLog, error) {
	return p.store.ListByApplicant(ctx, applicantID)
}

func (p *Publisher) drain() {
	defer close(p.stopped)
	for {
		select {
		case entry := <-p.inbox:
			p.append(entry)
		case <-p.done:
			// Drain whatever is left before exiting.
			for {
				select {
				case entry := <-p.inbox:
					p.append(entry)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) append(entry EvaluationLog) {
	if err := p.store.Append(context.Background(), entry); err != nil && p.logger != nil {
		p.logger.Error("failed to persist evaluation log",
			"evaluation_id", entry.ID,
			"error", err,
		)
	}
}

// Close stops async processing after draining buffered entries and waits
// for the drain to finish.
func (p *Publisher) Close() {
	p.once.Do(func() {
		close(p.done)
	})
	<-p.stopped
}
