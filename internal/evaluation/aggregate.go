package evaluation

import "math"

// Aggregate combines per-factor results into the total score and the
// completeness/confidence estimates. Raw points were already capped at the
// factor's max_points; weight is applied here, so the summed total lands in
// the configured score range only through clamping.
func Aggregate(factors []FactorResult, minScore, maxScore int) (total int, completeness, confidence float64) {
	var weighted float64
	var incomplete, ruleErrors int

	for _, f := range factors {
		weighted += f.Points * f.Weight
		if f.FieldMissing || f.RuleError {
			incomplete++
		}
		if f.RuleError {
			ruleErrors++
		}
	}

	total = int(math.Round(weighted))
	if total < minScore {
		total = minScore
	}
	if total > maxScore {
		total = maxScore
	}

	if len(factors) == 0 {
		return total, 0, 0
	}
	n := float64(len(factors))
	completeness = (n - float64(incomplete)) / n
	errorRate := float64(ruleErrors) / n
	// Monotonic in completeness and error-freeness; informational for
	// downstream risk policy, never gating eligibility.
	confidence = completeness * (1 - errorRate)
	return total, completeness, confidence
}
