//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"scorewise/internal/audit"
	id "scorewise/pkg/domain"
	"scorewise/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), "../../migrations")
	s.store = audit.NewPostgres(s.postgres.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresAuditSuite) newEntry(applicantID string) audit.EvaluationLog {
	return audit.EvaluationLog{
		ID:            id.NewEvaluationID(),
		ScorecardID:   id.NewScorecardID(),
		VersionID:     id.NewVersionID(),
		VersionNumber: 2,
		ApplicantID:   applicantID,
		RequestID:     "req-1",
		SourceSystem:  "loan-origination",
		ApplicantData: map[string]any{"monthly_income": float64(6200)},
		Result:        json.RawMessage(`{"total_score":612,"grade":"C"}`),
		TotalScore:    612,
		Grade:         "C",
		Status:        "eligible",
	}
}

func (s *PostgresAuditSuite) TestAppendAndListRoundTrip() {
	ctx := context.Background()
	entry := s.newEntry("app-1")
	s.Require().NoError(s.store.Append(ctx, entry))

	entries, err := s.store.ListByApplicant(ctx, "app-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	got := entries[0]
	s.Equal(entry.ID, got.ID)
	s.Equal(entry.ScorecardID, got.ScorecardID)
	s.Equal(entry.VersionID, got.VersionID)
	s.Equal(2, got.VersionNumber)
	s.Equal("loan-origination", got.SourceSystem)
	s.Equal(entry.ApplicantData, got.ApplicantData)
	s.JSONEq(string(entry.Result), string(got.Result))
	s.Equal(612, got.TotalScore)
	s.Equal("C", got.Grade)
	s.Equal("eligible", got.Status)
	s.False(got.CreatedAt.IsZero())
}

func (s *PostgresAuditSuite) TestListOrderedByCreatedAt() {
	ctx := context.Background()

	older := s.newEntry("app-2")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := s.newEntry("app-2")

	s.Require().NoError(s.store.Append(ctx, newer))
	s.Require().NoError(s.store.Append(ctx, older))

	entries, err := s.store.ListByApplicant(ctx, "app-2")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(older.ID, entries[0].ID)
	s.Equal(newer.ID, entries[1].ID)
}

func (s *PostgresAuditSuite) TestAppendWritesOutboxRowInSameTransaction() {
	ctx := context.Background()
	entry := s.newEntry("app-3")
	s.Require().NoError(s.store.Append(ctx, entry))

	var partitionKey string
	var payloadBytes []byte
	err := s.postgres.DB.QueryRowContext(ctx, `
		SELECT partition_key, payload FROM audit_outbox WHERE published_at IS NULL
	`).Scan(&partitionKey, &payloadBytes)
	s.Require().NoError(err)
	s.Equal(entry.ScorecardID.String(), partitionKey)

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(payloadBytes, &payload))
	s.Equal(entry.ID.String(), payload["evaluation_id"])
	s.Equal("eligible", payload["status"])
}

func (s *PostgresAuditSuite) TestVersionReferenced() {
	ctx := context.Background()
	entry := s.newEntry("app-4")
	s.Require().NoError(s.store.Append(ctx, entry))

	referenced, err := s.store.VersionReferenced(ctx, entry.VersionID)
	s.Require().NoError(err)
	s.True(referenced)

	referenced, err = s.store.VersionReferenced(ctx, id.NewVersionID())
	s.Require().NoError(err)
	s.False(referenced)
}
