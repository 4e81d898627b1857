package handler

import (
	"time"

	"scorewise/internal/audit"
	"scorewise/internal/evaluation"
)

// EvaluateResponse is the HTTP response for POST /evaluations.
type EvaluateResponse struct {
	EvaluationID  string `json:"evaluation_id"`
	ScorecardID   string `json:"scorecard_id"`
	VersionID     string `json:"version_id,omitempty"`
	VersionNumber int    `json:"version_number,omitempty"`

	TotalScore int    `json:"total_score"`
	Grade      string `json:"grade"`
	Eligible   bool   `json:"eligible"`
	Status     string `json:"status"`

	Factors         []FactorResponse `json:"factors"`
	Completeness    float64          `json:"data_completeness"`
	Confidence      float64          `json:"confidence_score"`
	Recommendations []string         `json:"recommendations"`
	Fallback        bool             `json:"fallback"`

	EvaluatedAt        time.Time `json:"evaluated_at"`
	ProcessingDuration string    `json:"processing_duration"`
}

// FactorResponse is one per-factor outcome in the response.
type FactorResponse struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Points       float64 `json:"points"`
	MaxPoints    float64 `json:"max_points"`
	Weight       float64 `json:"weight"`
	Reasoning    string  `json:"reasoning"`
	RuleError    bool    `json:"rule_error,omitempty"`
	FieldMissing bool    `json:"field_missing,omitempty"`
}

// FromResult converts a domain Result to an HTTP response.
func FromResult(result *evaluation.Result) *EvaluateResponse {
	factors := make([]FactorResponse, len(result.Factors))
	for i, f := range result.Factors {
		factors[i] = FactorResponse{
			Code:         f.Code,
			Name:         f.Name,
			Points:       f.Points,
			MaxPoints:    f.MaxPoints,
			Weight:       f.Weight,
			Reasoning:    f.Reasoning,
			RuleError:    f.RuleError,
			FieldMissing: f.FieldMissing,
		}
	}

	resp := &EvaluateResponse{
		EvaluationID:       result.EvaluationID.String(),
		ScorecardID:        result.ScorecardID.String(),
		TotalScore:         result.TotalScore,
		Grade:              result.Grade,
		Eligible:           result.Eligible,
		Status:             string(result.Status),
		Factors:            factors,
		Completeness:       result.Completeness,
		Confidence:         result.Confidence,
		Recommendations:    result.Recommendations,
		Fallback:           result.Fallback,
		EvaluatedAt:        result.EvaluatedAt,
		ProcessingDuration: result.Duration.String(),
	}
	if !result.VersionID.IsNil() {
		resp.VersionID = result.VersionID.String()
		resp.VersionNumber = result.VersionNumber
	}
	return resp
}

// HistoryEntryResponse is one audit entry in the applicant history listing.
type HistoryEntryResponse struct {
	EvaluationID  string    `json:"evaluation_id"`
	ScorecardID   string    `json:"scorecard_id"`
	VersionID     string    `json:"version_id"`
	VersionNumber int       `json:"version_number"`
	TotalScore    int       `json:"total_score"`
	Grade         string    `json:"grade"`
	Status        string    `json:"status"`
	SourceSystem  string    `json:"source_system"`
	RequestID     string    `json:"request_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryResponse is the HTTP response for the applicant history listing.
type HistoryResponse struct {
	ApplicantID string                 `json:"applicant_id"`
	Evaluations []HistoryEntryResponse `json:"evaluations"`
}

// FromLogs converts audit entries to the history response.
func FromLogs(applicantID string, logs []audit.EvaluationLog) *HistoryResponse {
	entries := make([]HistoryEntryResponse, len(logs))
	for i, l := range logs {
		entries[i] = HistoryEntryResponse{
			EvaluationID:  l.ID.String(),
			ScorecardID:   l.ScorecardID.String(),
			VersionID:     l.VersionID.String(),
			VersionNumber: l.VersionNumber,
			TotalScore:    l.TotalScore,
			Grade:         l.Grade,
			Status:        l.Status,
			SourceSystem:  l.SourceSystem,
			RequestID:     l.RequestID,
			CreatedAt:     l.CreatedAt,
		}
	}
	return &HistoryResponse{ApplicantID: applicantID, Evaluations: entries}
}
