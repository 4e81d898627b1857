package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "scorewise/pkg/domain-errors"
)

func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseScorecardID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseScorecardID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseScorecardID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		parsed, err := ParseScorecardID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ScorecardID(validUUID), parsed)
	})
}

func TestParse_EachKind(t *testing.T) {
	valid := uuid.New().String()

	institution, err := ParseInstitutionID(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, institution.String())

	version, err := ParseVersionID(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, version.String())

	evaluation, err := ParseEvaluationID(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, evaluation.String())
}

func TestIsNil(t *testing.T) {
	assert.True(t, ScorecardID{}.IsNil())
	assert.True(t, VersionID{}.IsNil())
	assert.False(t, NewScorecardID().IsNil())
	assert.False(t, NewVersionID().IsNil())
}
