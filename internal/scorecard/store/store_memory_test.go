package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorewise/internal/scorecard/models"
	id "scorewise/pkg/domain"
	"scorewise/pkg/platform/sentinel"
)

func newTestConfig() *models.ScorecardConfig {
	return &models.ScorecardConfig{
		ID:            id.NewScorecardID(),
		InstitutionID: id.NewInstitutionID(),
		Name:          "consumer-lending",
		MinScore:      300,
		MaxScore:      850,
		PassingScore:  600,
	}
}

func newTestVersion(scorecardID id.ScorecardID) *models.ScorecardVersion {
	return &models.ScorecardVersion{
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
}

func TestInMemory_ConfigLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cfg := newTestConfig()

	require.NoError(t, s.CreateConfig(ctx, cfg))

	got, err := s.GetConfig(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, got.Name)
	assert.Equal(t, cfg.MaxScore, got.MaxScore)

	_, err = s.GetConfig(ctx, id.NewScorecardID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	all, err := s.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInMemory_VersionNumbersAreSequential(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cfg := newTestConfig()
	require.NoError(t, s.CreateConfig(ctx, cfg))

	for i := 1; i <= 3; i++ {
		v := newTestVersion(cfg.ID)
		require.NoError(t, s.CreateVersion(ctx, v))
		assert.Equal(t, i, v.Number)
		assert.False(t, v.Active, "new versions start inactive")
	}

	versions, err := s.ListVersions(ctx, cfg.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Number)
	}
}

func TestInMemory_CreateVersionUnknownConfig(t *testing.T) {
	s := NewInMemory()
	err := s.CreateVersion(context.Background(), newTestVersion(id.NewScorecardID()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_ActivateSwitchesPointer(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cfg := newTestConfig()
	require.NoError(t, s.CreateConfig(ctx, cfg))

	v1 := newTestVersion(cfg.ID)
	v2 := newTestVersion(cfg.ID)
	require.NoError(t, s.CreateVersion(ctx, v1))
	require.NoError(t, s.CreateVersion(ctx, v2))

	_, err := s.GetActiveVersion(ctx, cfg.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "no version active before first activation")

	require.NoError(t, s.Activate(ctx, cfg.ID, v1.ID))
	active, err := s.GetActiveVersion(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, active.ID)

	require.NoError(t, s.Activate(ctx, cfg.ID, v2.ID))
	active, err = s.GetActiveVersion(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, active.ID)

	old, err := s.GetVersion(ctx, v1.ID)
	require.NoError(t, err)
	assert.False(t, old.Active, "previous version deactivated")
}

func TestInMemory_ActivateUnknownVersion(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cfg := newTestConfig()
	require.NoError(t, s.CreateConfig(ctx, cfg))

	err := s.Activate(ctx, cfg.ID, id.NewVersionID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_ConcurrentActivateSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cfg := newTestConfig()
	require.NoError(t, s.CreateConfig(ctx, cfg))

	versions := make([]*models.ScorecardVersion, 8)
	for i := range versions {
		versions[i] = newTestVersion(cfg.ID)
		require.NoError(t, s.CreateVersion(ctx, versions[i]))
	}

	var wg sync.WaitGroup
	for _, v := range versions {
		wg.Add(1)
		go func(versionID id.VersionID) {
			defer wg.Done()
			assert.NoError(t, s.Activate(ctx, cfg.ID, versionID))
		}(v.ID)
	}
	wg.Wait()

	activeCount := 0
	all, err := s.ListVersions(ctx, cfg.ID)
	require.NoError(t, err)
	for _, v := range all {
		if v.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount, "exactly one version active after concurrent activations")
}

func TestInMemory_DeleteVersion(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cfg := newTestConfig()
	require.NoError(t, s.CreateConfig(ctx, cfg))

	v1 := newTestVersion(cfg.ID)
	v2 := newTestVersion(cfg.ID)
	require.NoError(t, s.CreateVersion(ctx, v1))
	require.NoError(t, s.CreateVersion(ctx, v2))
	require.NoError(t, s.Activate(ctx, cfg.ID, v2.ID))

	err := s.DeleteVersion(ctx, v2.ID)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState, "active version cannot be deleted")

	require.NoError(t, s.DeleteVersion(ctx, v1.ID))
	_, err = s.GetVersion(ctx, v1.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cfg := newTestConfig()
	require.NoError(t, s.CreateConfig(ctx, cfg))

	v := newTestVersion(cfg.ID)
	require.NoError(t, s.CreateVersion(ctx, v))

	got, err := s.GetVersion(ctx, v.ID)
	require.NoError(t, err)
	got.Factors[0].Code = "mutated"

	again, err := s.GetVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "income", again.Factors[0].Code, "stored version unaffected by caller mutation")
}
