// Package worker drains the audit outbox into Kafka. The store writes one
// outbox row per evaluation log inside the log's transaction; this worker
// publishes unpublished rows in order and marks them published, so the
// topic eventually reflects every committed evaluation exactly once per
// row even across crashes (re-publishing an unmarked row is possible and
// acceptable: consumers key on evaluation_id).
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer is the Kafka seam; satisfied by internal/platform/kafka.Producer.
type Producer interface {
	Publish(ctx context.Context, key, payload []byte) error
}

// Outbox polls the audit_outbox table and publishes pending rows.
type Outbox struct {
	db       *sql.DB
	producer Producer
	logger   *slog.Logger

	interval  time.Duration
	batchSize int
}

// NewOutbox constructs the outbox worker.
func NewOutbox(db *sql.DB, producer Producer, logger *slog.Logger, interval time.Duration, batchSize int) *Outbox {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Outbox{db: db, producer: producer, logger: logger, interval: interval, batchSize: batchSize}
}

// Run polls until ctx is cancelled. Publish failures are logged and left in
// the outbox for the next pass.
func (w *Outbox) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if published, err := w.publishBatch(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox publish pass failed", "error", err)
			} else if published > 0 {
				w.logger.DebugContext(ctx, "outbox batch published", "count", published)
			}
		}
	}
}

type outboxRow struct {
	id      uuid.UUID
	key     string
	payload []byte
}

// publishBatch claims up to batchSize pending rows and publishes them.
// SKIP LOCKED lets multiple instances share the table without contention.
func (w *Outbox) publishBatch(ctx context.Context) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, partition_key, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("select outbox rows: %w", err)
	}

	var batch []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.key, &row.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	published := 0
	for _, row := range batch {
		if err := w.producer.Publish(ctx, []byte(row.key), row.payload); err != nil {
			// Leave this and later rows for the next pass to preserve
			// per-key ordering.
			break
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE audit_outbox SET published_at = $1 WHERE id = $2
		`, time.Now(), row.id); err != nil {
			return 0, fmt.Errorf("mark outbox row published: %w", err)
		}
		published++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox transaction: %w", err)
	}
	return published, nil
}
