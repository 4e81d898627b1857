package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "scorewise/pkg/domain"
	txcontext "scorewise/pkg/platform/tx"
)

// PostgresStore persists evaluation logs in PostgreSQL using the
// transactional outbox pattern: every log row gets a matching outbox row in
// the same transaction, and the outbox worker publishes those to Kafka.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	EvaluationID  string          `json:"evaluation_id"`
	ScorecardID   string          `json:"scorecard_id"`
	VersionID     string          `json:"version_id"`
	VersionNumber int             `json:"version_number"`
	ApplicantID   string          `json:"applicant_id"`
	RequestID     string          `json:"request_id"`
	SourceSystem  string          `json:"source_system"`
	TotalScore    int             `json:"total_score"`
	Grade         string          `json:"grade"`
	Status        string          `json:"status"`
	Result        json.RawMessage `json:"result"`
	CreatedAt     string          `json:"created_at"`
}

// Append writes the log entry and its outbox row within one transaction
// (joining a caller transaction from context when present).
func (s *PostgresStore) Append(ctx context.Context, entry EvaluationLog) error {
	dataBytes, err := json.Marshal(entry.ApplicantData)
	if err != nil {
		return fmt.Errorf("marshal applicant data: %w", err)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	payload := outboxPayload{
		EvaluationID:  entry.ID.String(),
		ScorecardID:   entry.ScorecardID.String(),
		VersionID:     entry.VersionID.String(),
		VersionNumber: entry.VersionNumber,
		ApplicantID:   entry.ApplicantID,
		RequestID:     entry.RequestID,
		SourceSystem:  entry.SourceSystem,
		TotalScore:    entry.TotalScore,
		Grade:         entry.Grade,
		Status:        entry.Status,
		Result:        entry.Result,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339Nano),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	if tx, joined := txcontext.From(ctx); joined {
		return s.appendWithExecer(ctx, tx, entry, dataBytes, payloadBytes)
	}
	return txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		return s.appendWithExecer(ctx, tx, entry, dataBytes, payloadBytes)
	})
}

func (s *PostgresStore) appendWithExecer(ctx context.Context, exec dbExecutor, entry EvaluationLog, dataBytes, payloadBytes []byte) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO evaluation_logs (
			id, scorecard_id, version_id, version_number,
			applicant_id, request_id, source_system, applicant_data,
			result, total_score, grade, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.ScorecardID),
		uuid.UUID(entry.VersionID),
		entry.VersionNumber,
		entry.ApplicantID,
		entry.RequestID,
		entry.SourceSystem,
		dataBytes,
		[]byte(entry.Result),
		entry.TotalScore,
		entry.Grade,
		entry.Status,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation log: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, partition_key, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		uuid.New(),
		entry.ScorecardID.String(),
		payloadBytes,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantID string) ([]EvaluationLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scorecard_id, version_id, version_number,
		       applicant_id, request_id, source_system, applicant_data,
		       result, total_score, grade, status, created_at
		FROM evaluation_logs
		WHERE applicant_id = $1
		ORDER BY created_at
	`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("list evaluation logs: %w", err)
	}
	defer rows.Close()

	var entries []EvaluationLog
	for rows.Next() {
		var entry EvaluationLog
		var entryID, scorecardID, versionID uuid.UUID
		var dataBytes, resultBytes []byte
		if err := rows.Scan(
			&entryID, &scorecardID, &versionID, &entry.VersionNumber,
			&entry.ApplicantID, &entry.RequestID, &entry.SourceSystem, &dataBytes,
			&resultBytes, &entry.TotalScore, &entry.Grade, &entry.Status, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan evaluation log: %w", err)
		}
		entry.ID = id.EvaluationID(entryID)
		entry.ScorecardID = id.ScorecardID(scorecardID)
		entry.VersionID = id.VersionID(versionID)
		entry.Result = resultBytes
		if err := json.Unmarshal(dataBytes, &entry.ApplicantData); err != nil {
			return nil, fmt.Errorf("unmarshal applicant data: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) VersionReferenced(ctx context.Context, versionID id.VersionID) (bool, error) {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM evaluation_logs WHERE version_id = $1)
	`, uuid.UUID(versionID)).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("check version references: %w", err)
	}
	return referenced, nil
}
