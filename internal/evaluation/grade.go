package evaluation

import (
	"fmt"

	"scorewise/internal/scorecard/models"
)

// Classify maps a total score onto the version's band table. The store
// validated contiguity at configuration time, so every in-range score hits
// exactly one band; the empty-grade return is a guard for corrupted data.
func Classify(total int, bands []models.GradeBand) string {
	for _, band := range bands {
		if total >= band.Min && total <= band.Max {
			return band.Grade
		}
	}
	return ""
}

// Recommendations derives templated improvement suggestions from the
// weakest factors, in factor order. A factor scoring below half its cap
// contributes one suggestion; missing-data and failed-rule factors get a
// data-oriented one. Purely deterministic lookup, not a model.
func Recommendations(factors []FactorResult) []string {
	recommendations := make([]string, 0, len(factors))
	for _, f := range factors {
		switch {
		case f.FieldMissing:
			recommendations = append(recommendations,
				fmt.Sprintf("Provide the missing data for %s to improve scoring accuracy.", f.Name))
		case f.RuleError:
			recommendations = append(recommendations,
				fmt.Sprintf("The %s factor could not be scored; contact your institution to review its configuration.", f.Name))
		case f.Points < f.MaxPoints/2:
			recommendations = append(recommendations,
				fmt.Sprintf("Improving %s would have the largest impact on this score.", f.Name))
		}
	}
	return recommendations
}

// GenericRecommendations accompany the neutral fallback result.
func GenericRecommendations() []string {
	return []string{
		"The score could not be fully computed; a neutral result was returned.",
		"Retry the evaluation or contact support if the problem persists.",
	}
}
