//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"scorewise/internal/scorecard/models"
	"scorewise/internal/scorecard/store"
	id "scorewise/pkg/domain"
	"scorewise/pkg/platform/sentinel"
	"scorewise/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), "../../../migrations")
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) createConfig(ctx context.Context) *models.ScorecardConfig {
	cfg := &models.ScorecardConfig{
		ID:            id.NewScorecardID(),
		InstitutionID: id.NewInstitutionID(),
		Name:          "consumer-lending",
		MinScore:      300,
		MaxScore:      850,
		PassingScore:  600,
	}
	s.Require().NoError(s.store.CreateConfig(ctx, cfg))
	return cfg
}

func (s *PostgresStoreSuite) createVersion(ctx context.Context, scorecardID id.ScorecardID) *models.ScorecardVersion {
	v := &models.ScorecardVersion{
		ID:          id.NewVersionID(),
		ScorecardID: scorecardID,
		Factors: []models.ScoringFactor{
			{
				Code:      "income",
				Name:      "Monthly Income",
				Weight:    1,
				MaxPoints: 100,
				Rule: models.Rule{
					Kind: models.RuleKindThreshold,
					Threshold: &models.ThresholdRule{
						Field:  "monthly_income",
						Ranges: []models.PointRange{{Min: 0, Max: 4999, Points: 20}, {Min: 5000, Max: 7499, Points: 50}},
					},
				},
			},
		},
		Bands: []models.GradeBand{
			{Min: 300, Max: 599, Grade: "D"},
			{Min: 600, Max: 850, Grade: "A"},
		},
	}
	s.Require().NoError(s.store.CreateVersion(ctx, v))
	return v
}

func (s *PostgresStoreSuite) TestConfigRoundTrip() {
	ctx := context.Background()
	cfg := s.createConfig(ctx)

	got, err := s.store.GetConfig(ctx, cfg.ID)
	s.Require().NoError(err)
	s.Equal(cfg.Name, got.Name)
	s.Equal(cfg.InstitutionID, got.InstitutionID)
	s.Equal(cfg.MaxScore, got.MaxScore)

	_, err = s.store.GetConfig(ctx, id.NewScorecardID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateInstitutionConflicts() {
	ctx := context.Background()
	cfg := s.createConfig(ctx)

	dup := &models.ScorecardConfig{
		ID:            id.NewScorecardID(),
		InstitutionID: cfg.InstitutionID,
		Name:          "second",
		MinScore:      0,
		MaxScore:      100,
		PassingScore:  50,
	}
	err := s.store.CreateConfig(ctx, dup)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestVersionRoundTripPreservesRules() {
	ctx := context.Background()
	cfg := s.createConfig(ctx)
	v := s.createVersion(ctx, cfg.ID)

	got, err := s.store.GetVersion(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(1, got.Number)
	s.Require().Len(got.Factors, 1)
	s.Equal(models.RuleKindThreshold, got.Factors[0].Rule.Kind)
	s.Require().NotNil(got.Factors[0].Rule.Threshold)
	s.Equal("monthly_income", got.Factors[0].Rule.Threshold.Field)
	s.Len(got.Bands, 2)
}

func (s *PostgresStoreSuite) TestConcurrentCreateVersionNumbers() {
	ctx := context.Background()
	cfg := s.createConfig(ctx)
	const goroutines = 10

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.CreateVersion(ctx, &models.ScorecardVersion{
				ID:          id.NewVersionID(),
				ScorecardID: cfg.ID,
				Factors:     []models.ScoringFactor{},
				Bands:       []models.GradeBand{},
			}); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load(), "concurrent creations should all succeed")

	versions, err := s.store.ListVersions(ctx, cfg.ID)
	s.Require().NoError(err)
	s.Require().Len(versions, goroutines)
	for i, v := range versions {
		s.Equal(i+1, v.Number, "version numbers must be dense and ordered")
	}
}

func (s *PostgresStoreSuite) TestActivateIsAtomic() {
	ctx := context.Background()
	cfg := s.createConfig(ctx)
	v1 := s.createVersion(ctx, cfg.ID)
	v2 := s.createVersion(ctx, cfg.ID)

	s.Require().NoError(s.store.Activate(ctx, cfg.ID, v1.ID))
	active, err := s.store.GetActiveVersion(ctx, cfg.ID)
	s.Require().NoError(err)
	s.Equal(v1.ID, active.ID)

	s.Require().NoError(s.store.Activate(ctx, cfg.ID, v2.ID))
	active, err = s.store.GetActiveVersion(ctx, cfg.ID)
	s.Require().NoError(err)
	s.Equal(v2.ID, active.ID)

	old, err := s.store.GetVersion(ctx, v1.ID)
	s.Require().NoError(err)
	s.False(old.Active)
}

func (s *PostgresStoreSuite) TestConcurrentActivateSingleWinner() {
	ctx := context.Background()
	cfg := s.createConfig(ctx)

	versions := make([]*models.ScorecardVersion, 8)
	for i := range versions {
		versions[i] = s.createVersion(ctx, cfg.ID)
	}

	var wg sync.WaitGroup
	for _, v := range versions {
		wg.Add(1)
		go func(versionID id.VersionID) {
			defer wg.Done()
			s.NoError(s.store.Activate(ctx, cfg.ID, versionID))
		}(v.ID)
	}
	wg.Wait()

	all, err := s.store.ListVersions(ctx, cfg.ID)
	s.Require().NoError(err)
	activeCount := 0
	for _, v := range all {
		if v.Active {
			activeCount++
		}
	}
	s.Equal(1, activeCount, "exactly one active version after concurrent activations")
}

func (s *PostgresStoreSuite) TestDeleteVersionGuards() {
	ctx := context.Background()
	cfg := s.createConfig(ctx)
	v1 := s.createVersion(ctx, cfg.ID)
	v2 := s.createVersion(ctx, cfg.ID)
	s.Require().NoError(s.store.Activate(ctx, cfg.ID, v2.ID))

	err := s.store.DeleteVersion(ctx, v2.ID)
	s.ErrorIs(err, sentinel.ErrInvalidState, "active version must not be deletable")

	s.Require().NoError(s.store.DeleteVersion(ctx, v1.ID))
	_, err = s.store.GetVersion(ctx, v1.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDeleteVersionReferencedByLog() {
	ctx := context.Background()
	cfg := s.createConfig(ctx)
	v := s.createVersion(ctx, cfg.ID)

	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO evaluation_logs (
			id, scorecard_id, version_id, version_number,
			applicant_id, request_id, source_system, applicant_data,
			result, total_score, grade, status, created_at
		)
		VALUES ($1, $2, $3, 1, 'app-1', 'req-1', 'portal', '{}', '{}', 700, 'A', 'eligible', now())
	`, id.NewEvaluationID().String(), cfg.ID.String(), v.ID.String())
	s.Require().NoError(err)

	err = s.store.DeleteVersion(ctx, v.ID)
	s.ErrorIs(err, sentinel.ErrInvalidState, "referenced version must survive deletion")

	_, err = s.store.GetVersion(ctx, v.ID)
	s.Require().NoError(err)
}
