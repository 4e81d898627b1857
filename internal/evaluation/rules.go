package evaluation

import (
	"fmt"

	"scorewise/internal/evaluation/expr"
	"scorewise/internal/scorecard/models"
)

// EvaluateFactor applies one factor's rule to the applicant data record.
// This is pure domain logic - no I/O, no side effects. Rule failures are
// contained: the factor scores 0 and is flagged, never aborting the
// evaluation of the remaining factors.
func EvaluateFactor(factor models.ScoringFactor, data map[string]any) FactorResult {
	result := FactorResult{
		Code:      factor.Code,
		Name:      factor.Name,
		MaxPoints: factor.MaxPoints,
		Weight:    factor.Weight,
	}

	switch factor.Rule.Kind {
	case models.RuleKindThreshold:
		evaluateThreshold(&result, factor.Rule.Threshold, data)
	case models.RuleKindCondition:
		evaluateCondition(&result, factor.Rule.Condition, data)
	case models.RuleKindExpression:
		evaluateExpression(&result, factor.Rule.Expression, data)
	default:
		result.RuleError = true
		result.Reasoning = fmt.Sprintf("unknown rule kind %q", factor.Rule.Kind)
	}

	// Raw points never exceed the factor cap; weighting happens in the
	// aggregator.
	if result.Points > factor.MaxPoints {
		result.Points = factor.MaxPoints
	}
	if result.Points < 0 {
		result.Points = 0
	}
	return result
}

func evaluateThreshold(result *FactorResult, rule *models.ThresholdRule, data map[string]any) {
	if rule == nil {
		result.RuleError = true
		result.Reasoning = "threshold rule payload missing"
		return
	}

	raw, ok := data[rule.Field]
	if !ok {
		result.FieldMissing = true
		result.Reasoning = fmt.Sprintf("field %q missing", rule.Field)
		return
	}
	value, ok := asNumber(raw)
	if !ok {
		result.RuleError = true
		result.Reasoning = fmt.Sprintf("field %q is not numeric", rule.Field)
		return
	}

	for _, r := range rule.Ranges {
		if value >= r.Min && value <= r.Max {
			result.Points = r.Points
			result.Reasoning = fmt.Sprintf("%s=%v matched range [%v, %v]: %v points",
				rule.Field, value, r.Min, r.Max, r.Points)
			return
		}
	}
	result.Reasoning = fmt.Sprintf("%s=%v outside all configured ranges", rule.Field, value)
}

func evaluateCondition(result *FactorResult, rule *models.ConditionRule, data map[string]any) {
	if rule == nil {
		result.RuleError = true
		result.Reasoning = "condition rule payload missing"
		return
	}

	// Completeness accounting looks at every referenced field, not just the
	// ones the winning case touched.
	for _, c := range rule.Cases {
		for _, cmp := range c.When {
			if _, ok := data[cmp.Field]; !ok {
				result.FieldMissing = true
			}
		}
	}

	for i, c := range rule.Cases {
		matched := true
		for _, cmp := range c.When {
			holds, err := compare(cmp, data)
			if err != nil {
				result.RuleError = true
				result.Reasoning = err.Error()
				return
			}
			if !holds {
				matched = false
				break
			}
		}
		if matched {
			result.Points = c.Points
			result.Reasoning = fmt.Sprintf("condition case %d matched: %v points", i+1, c.Points)
			return
		}
	}
	result.Reasoning = "no condition case matched"
}

// compare evaluates one comparison. A missing field makes the predicate
// false rather than an error, so a sparse applicant record degrades to
// zero points instead of a flagged rule failure.
func compare(cmp models.Comparison, data map[string]any) (bool, error) {
	raw, ok := data[cmp.Field]
	if !ok {
		return false, nil
	}

	if want, ok := asNumber(cmp.Value); ok {
		have, ok := asNumber(raw)
		if !ok {
			return false, nil
		}
		switch cmp.Op {
		case models.OpEqual:
			return have == want, nil
		case models.OpNotEqual:
			return have != want, nil
		case models.OpLessThan:
			return have < want, nil
		case models.OpLessOrEqual:
			return have <= want, nil
		case models.OpGreaterThan:
			return have > want, nil
		case models.OpGreaterEqual:
			return have >= want, nil
		}
		return false, fmt.Errorf("unknown comparison operator %q", cmp.Op)
	}

	// Non-numeric comparisons support equality only, and only on primitive
	// values. JSONB config and request JSON can both carry objects or
	// arrays; comparing those with == panics, so anything non-primitive is
	// a rule error rather than a crash.
	if !isComparablePrimitive(cmp.Value) {
		return false, fmt.Errorf("comparison value for field %q is not a primitive", cmp.Field)
	}
	if !isComparablePrimitive(raw) {
		return false, fmt.Errorf("field %q holds a non-primitive value", cmp.Field)
	}
	switch cmp.Op {
	case models.OpEqual:
		return raw == cmp.Value, nil
	case models.OpNotEqual:
		return raw != cmp.Value, nil
	default:
		return false, fmt.Errorf("operator %q requires a numeric comparison value", cmp.Op)
	}
}

func isComparablePrimitive(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64:
		return true
	}
	return false
}

func evaluateExpression(result *FactorResult, rule *models.ExpressionRule, data map[string]any) {
	if rule == nil {
		result.RuleError = true
		result.Reasoning = "expression rule payload missing"
		return
	}

	compiled, err := expr.Parse(rule.Expression)
	if err != nil {
		// Fail closed: unsafe or malformed expressions score zero and flag
		// the factor, but the evaluation as a whole proceeds.
		result.RuleError = true
		result.Reasoning = fmt.Sprintf("expression rejected: %v", err)
		return
	}

	value, err := compiled.Eval(data)
	if err != nil {
		result.RuleError = true
		result.Reasoning = fmt.Sprintf("expression failed: %v", err)
		return
	}

	// Boolean expressions award the full cap on true, zero on false; numeric
	// expressions are clamped to [0, max_points] by the caller.
	if value.IsBool {
		if value.Bool {
			result.Points = result.MaxPoints
			result.Reasoning = "expression evaluated true: full points"
		} else {
			result.Reasoning = "expression evaluated false: 0 points"
		}
		return
	}
	result.Points = value.Num
	result.Reasoning = fmt.Sprintf("expression evaluated to %v points", value.Num)
}

func asNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}
