package models

import (
	"fmt"
	"sort"

	dErrors "scorewise/pkg/domain-errors"
)

// ValidateConfig checks the score bounds of a new scorecard config.
func ValidateConfig(cfg ScorecardConfig) error {
	if cfg.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "scorecard name is required")
	}
	if cfg.InstitutionID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "institution id is required")
	}
	if cfg.MinScore >= cfg.MaxScore {
		return dErrors.New(dErrors.CodeValidation, "min_score must be below max_score")
	}
	if cfg.PassingScore < cfg.MinScore || cfg.PassingScore > cfg.MaxScore {
		return dErrors.New(dErrors.CodeValidation, "passing_score must lie within [min_score, max_score]")
	}
	return nil
}

// ValidateFactors checks structural rules for a version's factors:
// unique codes, sane weights and point caps, and well-formed rule payloads.
// Expression text is additionally parse-checked by the service against the
// restricted grammar before the version is persisted.
func ValidateFactors(factors []ScoringFactor) error {
	if len(factors) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one scoring factor is required")
	}

	codes := make(map[string]struct{}, len(factors))
	for _, factor := range factors {
		if factor.Code == "" {
			return dErrors.New(dErrors.CodeValidation, "factor code is required")
		}
		if _, dup := codes[factor.Code]; dup {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate factor code %q", factor.Code))
		}
		codes[factor.Code] = struct{}{}

		if factor.Weight < 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: weight must not be negative", factor.Code))
		}
		if factor.MaxPoints <= 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: max_points must be positive", factor.Code))
		}
		if err := validateRule(factor.Code, factor.Rule); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(code string, rule Rule) error {
	switch rule.Kind {
	case RuleKindThreshold:
		if rule.Threshold == nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: threshold payload is required", code))
		}
		return validateThreshold(code, rule.Threshold)
	case RuleKindCondition:
		if rule.Condition == nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: condition payload is required", code))
		}
		return validateCondition(code, rule.Condition)
	case RuleKindExpression:
		if rule.Expression == nil || rule.Expression.Expression == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: expression is required", code))
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: unknown rule kind %q", code, rule.Kind))
	}
}

func validateThreshold(code string, rule *ThresholdRule) error {
	if rule.Field == "" {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: threshold field is required", code))
	}
	if len(rule.Ranges) == 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: at least one range is required", code))
	}
	for i, r := range rule.Ranges {
		if r.Min > r.Max {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("factor %q: range %d has min above max", code, i))
		}
		if i > 0 && r.Min <= rule.Ranges[i-1].Max {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("factor %q: ranges must be ordered and non-overlapping", code))
		}
	}
	return nil
}

func validateCondition(code string, rule *ConditionRule) error {
	if len(rule.Cases) == 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: at least one condition case is required", code))
	}
	for _, c := range rule.Cases {
		if len(c.When) == 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: condition case needs at least one comparison", code))
		}
		for _, cmp := range c.When {
			if cmp.Field == "" {
				return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("factor %q: comparison field is required", code))
			}
			if !ValidCompareOp(cmp.Op) {
				return dErrors.New(dErrors.CodeValidation,
					fmt.Sprintf("factor %q: unknown comparison operator %q", code, cmp.Op))
			}
		}
	}
	return nil
}

// ValidateBands enforces the grade-band invariant at configuration time:
// bands must be contiguous, non-overlapping, and cover exactly
// [min_score, max_score]. Every integer in the range maps to one grade.
func ValidateBands(bands []GradeBand, minScore, maxScore int) error {
	if len(bands) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one grade band is required")
	}

	sorted := make([]GradeBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	if sorted[0].Min != minScore {
		return dErrors.New(dErrors.CodeValidation, "grade bands must start at min_score")
	}
	for i, band := range sorted {
		if band.Grade == "" {
			return dErrors.New(dErrors.CodeValidation, "grade band letter is required")
		}
		if band.Min > band.Max {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("grade band %q has min above max", band.Grade))
		}
		if i > 0 && band.Min != sorted[i-1].Max+1 {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("grade bands must be contiguous: gap or overlap before band %q", band.Grade))
		}
	}
	if sorted[len(sorted)-1].Max != maxScore {
		return dErrors.New(dErrors.CodeValidation, "grade bands must end at max_score")
	}
	return nil
}
