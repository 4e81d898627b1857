// Package evaluation implements the scoring pipeline: per-factor rule
// evaluation, weighted aggregation, grade classification, and the
// request/response orchestration around them.
package evaluation

import (
	"strings"
	"time"

	id "scorewise/pkg/domain"
	dErrors "scorewise/pkg/domain-errors"
)

// Request is one evaluation request from a calling system. It is transient;
// only the audit record persists it.
type Request struct {
	ScorecardID  id.ScorecardID
	ApplicantID  string
	RequestID    string
	SourceSystem string
	Data         map[string]any
}

// Validate enforces the request contract before any scoring happens.
func (r Request) Validate() error {
	if r.ScorecardID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "scorecard id is required")
	}
	if strings.TrimSpace(r.ApplicantID) == "" {
		return dErrors.New(dErrors.CodeValidation, "applicant id is required")
	}
	if strings.TrimSpace(r.RequestID) == "" {
		return dErrors.New(dErrors.CodeValidation, "request id is required")
	}
	if strings.TrimSpace(r.SourceSystem) == "" {
		return dErrors.New(dErrors.CodeValidation, "source system is required")
	}
	if r.Data == nil {
		return dErrors.New(dErrors.CodeValidation, "applicant data is required")
	}
	return nil
}

// EligibilityStatus is the decision attached to a result. Fallback results
// report "pending" because no reliable decision was computed.
type EligibilityStatus string

const (
	StatusEligible   EligibilityStatus = "eligible"
	StatusIneligible EligibilityStatus = "ineligible"
	StatusPending    EligibilityStatus = "pending"
)

// FactorResult is the outcome of evaluating one scoring factor.
// Points are raw rule output capped at MaxPoints; the weight is applied
// during aggregation, not here.
type FactorResult struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Points       float64 `json:"points"`
	MaxPoints    float64 `json:"max_points"`
	Weight       float64 `json:"weight"`
	Reasoning    string  `json:"reasoning"`
	RuleError    bool    `json:"rule_error"`
	FieldMissing bool    `json:"field_missing"`
}

// Result is the immutable outcome of one evaluation.
type Result struct {
	EvaluationID  id.EvaluationID   `json:"evaluation_id"`
	ScorecardID   id.ScorecardID    `json:"scorecard_id"`
	VersionID     id.VersionID      `json:"version_id"`
	VersionNumber int               `json:"version_number"`
	TotalScore    int               `json:"total_score"`
	Grade         string            `json:"grade"`
	Eligible      bool              `json:"eligible"`
	Status        EligibilityStatus `json:"status"`
	Factors       []FactorResult    `json:"factors"`
	Completeness  float64           `json:"data_completeness"`
	Confidence    float64           `json:"confidence_score"`

	Recommendations []string `json:"recommendations"`

	// Fallback marks the documented neutral result produced when the
	// active version or the audit sink was unavailable.
	Fallback bool `json:"fallback"`

	EvaluatedAt time.Time     `json:"evaluated_at"`
	Duration    time.Duration `json:"processing_duration"`
}
