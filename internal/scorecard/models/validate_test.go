package models

import (
	"testing"

	id "scorewise/pkg/domain"
	dErrors "scorewise/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() ScorecardConfig {
	return ScorecardConfig{
		ID:            id.NewScorecardID(),
		InstitutionID: id.NewInstitutionID(),
		Name:          "Consumer Lending",
		MinScore:      300,
		MaxScore:      850,
		PassingScore:  600,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScorecardConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*ScorecardConfig) {}},
		{name: "missing name", mutate: func(c *ScorecardConfig) { c.Name = "" }, wantErr: true},
		{name: "nil institution", mutate: func(c *ScorecardConfig) { c.InstitutionID = id.InstitutionID{} }, wantErr: true},
		{name: "min equals max", mutate: func(c *ScorecardConfig) { c.MinScore = 850 }, wantErr: true},
		{name: "min above max", mutate: func(c *ScorecardConfig) { c.MinScore = 900 }, wantErr: true},
		{name: "passing below min", mutate: func(c *ScorecardConfig) { c.PassingScore = 299 }, wantErr: true},
		{name: "passing above max", mutate: func(c *ScorecardConfig) { c.PassingScore = 851 }, wantErr: true},
		{name: "passing at min", mutate: func(c *ScorecardConfig) { c.PassingScore = 300 }},
		{name: "passing at max", mutate: func(c *ScorecardConfig) { c.PassingScore = 850 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func thresholdFactor(code string) ScoringFactor {
	return ScoringFactor{
		Code:      code,
		Name:      "Monthly Income",
		Weight:    5,
		MaxPoints: 100,
		Rule: Rule{
			Kind: RuleKindThreshold,
			Threshold: &ThresholdRule{
				Field: "monthly_income",
				Ranges: []PointRange{
					{Min: 0, Max: 4999, Points: 20},
					{Min: 5000, Max: 7499, Points: 50},
					{Min: 7500, Max: 1_000_000_000, Points: 100},
				},
			},
		},
	}
}

func TestValidateFactors(t *testing.T) {
	tests := []struct {
		name    string
		factors []ScoringFactor
		wantErr string
	}{
		{
			name:    "valid threshold factor",
			factors: []ScoringFactor{thresholdFactor("income")},
		},
		{
			name:    "no factors",
			factors: nil,
			wantErr: "at least one scoring factor",
		},
		{
			name: "missing code",
			factors: []ScoringFactor{func() ScoringFactor {
				f := thresholdFactor("income")
				f.Code = ""
				return f
			}()},
			wantErr: "factor code is required",
		},
		{
			name:    "duplicate codes",
			factors: []ScoringFactor{thresholdFactor("income"), thresholdFactor("income")},
			wantErr: "duplicate factor code",
		},
		{
			name: "negative weight",
			factors: []ScoringFactor{func() ScoringFactor {
				f := thresholdFactor("income")
				f.Weight = -1
				return f
			}()},
			wantErr: "weight must not be negative",
		},
		{
			name: "zero max points",
			factors: []ScoringFactor{func() ScoringFactor {
				f := thresholdFactor("income")
				f.MaxPoints = 0
				return f
			}()},
			wantErr: "max_points must be positive",
		},
		{
			name: "unknown rule kind",
			factors: []ScoringFactor{{
				Code: "income", Weight: 1, MaxPoints: 10,
				Rule: Rule{Kind: RuleKind("regex")},
			}},
			wantErr: "unknown rule kind",
		},
		{
			name: "threshold without payload",
			factors: []ScoringFactor{{
				Code: "income", Weight: 1, MaxPoints: 10,
				Rule: Rule{Kind: RuleKindThreshold},
			}},
			wantErr: "threshold payload is required",
		},
		{
			name: "threshold range min above max",
			factors: []ScoringFactor{{
				Code: "income", Weight: 1, MaxPoints: 10,
				Rule: Rule{Kind: RuleKindThreshold, Threshold: &ThresholdRule{
					Field:  "monthly_income",
					Ranges: []PointRange{{Min: 100, Max: 50, Points: 10}},
				}},
			}},
			wantErr: "min above max",
		},
		{
			name: "threshold overlapping ranges",
			factors: []ScoringFactor{{
				Code: "income", Weight: 1, MaxPoints: 10,
				Rule: Rule{Kind: RuleKindThreshold, Threshold: &ThresholdRule{
					Field: "monthly_income",
					Ranges: []PointRange{
						{Min: 0, Max: 5000, Points: 10},
						{Min: 4000, Max: 9000, Points: 20},
					},
				}},
			}},
			wantErr: "non-overlapping",
		},
		{
			name: "condition without cases",
			factors: []ScoringFactor{{
				Code: "defaults", Weight: 1, MaxPoints: 10,
				Rule: Rule{Kind: RuleKindCondition, Condition: &ConditionRule{}},
			}},
			wantErr: "at least one condition case",
		},
		{
			name: "condition case without comparisons",
			factors: []ScoringFactor{{
				Code: "defaults", Weight: 1, MaxPoints: 10,
				Rule: Rule{Kind: RuleKindCondition, Condition: &ConditionRule{
					Cases: []ConditionCase{{Points: 5}},
				}},
			}},
			wantErr: "at least one comparison",
		},
		{
			name: "condition unknown operator",
			factors: []ScoringFactor{{
				Code: "defaults", Weight: 1, MaxPoints: 10,
				Rule: Rule{Kind: RuleKindCondition, Condition: &ConditionRule{
					Cases: []ConditionCase{{
						When:   []Comparison{{Field: "defaults", Op: CompareOp("like"), Value: 0}},
						Points: 5,
					}},
				}},
			}},
			wantErr: "unknown comparison operator",
		},
		{
			name: "expression without text",
			factors: []ScoringFactor{{
				Code: "dti", Weight: 1, MaxPoints: 10,
				Rule: Rule{Kind: RuleKindExpression, Expression: &ExpressionRule{}},
			}},
			wantErr: "expression is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFactors(tt.factors)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateBands(t *testing.T) {
	contiguous := []GradeBand{
		{Min: 300, Max: 499, Grade: "D"},
		{Min: 500, Max: 649, Grade: "C"},
		{Min: 650, Max: 749, Grade: "B"},
		{Min: 750, Max: 850, Grade: "A"},
	}

	tests := []struct {
		name    string
		bands   []GradeBand
		wantErr string
	}{
		{name: "contiguous full cover", bands: contiguous},
		{
			name: "order independent",
			bands: []GradeBand{
				{Min: 750, Max: 850, Grade: "A"},
				{Min: 300, Max: 499, Grade: "D"},
				{Min: 650, Max: 749, Grade: "B"},
				{Min: 500, Max: 649, Grade: "C"},
			},
		},
		{name: "no bands", bands: nil, wantErr: "at least one grade band"},
		{
			name: "does not start at min",
			bands: []GradeBand{
				{Min: 301, Max: 850, Grade: "A"},
			},
			wantErr: "start at min_score",
		},
		{
			name: "does not end at max",
			bands: []GradeBand{
				{Min: 300, Max: 849, Grade: "A"},
			},
			wantErr: "end at max_score",
		},
		{
			name: "gap between bands",
			bands: []GradeBand{
				{Min: 300, Max: 499, Grade: "D"},
				{Min: 501, Max: 850, Grade: "A"},
			},
			wantErr: "contiguous",
		},
		{
			name: "overlapping bands",
			bands: []GradeBand{
				{Min: 300, Max: 500, Grade: "D"},
				{Min: 500, Max: 850, Grade: "A"},
			},
			wantErr: "contiguous",
		},
		{
			name: "missing grade letter",
			bands: []GradeBand{
				{Min: 300, Max: 850, Grade: ""},
			},
			wantErr: "letter is required",
		},
		{
			name: "band min above its max",
			bands: []GradeBand{
				{Min: 300, Max: 299, Grade: "D"},
				{Min: 300, Max: 850, Grade: "A"},
			},
			wantErr: "min above max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBands(tt.bands, 300, 850)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRuleFields(t *testing.T) {
	threshold := thresholdFactor("income").Rule
	assert.Equal(t, []string{"monthly_income"}, threshold.Fields())

	condition := Rule{Kind: RuleKindCondition, Condition: &ConditionRule{
		Cases: []ConditionCase{
			{When: []Comparison{
				{Field: "defaults", Op: OpEqual, Value: 0},
				{Field: "region", Op: OpEqual, Value: "EU"},
			}},
			{When: []Comparison{{Field: "defaults", Op: OpLessOrEqual, Value: 2}}},
		},
	}}
	assert.Equal(t, []string{"defaults", "region"}, condition.Fields())

	expression := Rule{Kind: RuleKindExpression, Expression: &ExpressionRule{Expression: "income / 100"}}
	assert.Nil(t, expression.Fields())
}
