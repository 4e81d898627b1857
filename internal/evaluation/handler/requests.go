package handler

import (
	"strings"

	id "scorewise/pkg/domain"
	dErrors "scorewise/pkg/domain-errors"
)

const maxApplicantFields = 256

// EvaluateRequest is the HTTP request body for POST /evaluations.
type EvaluateRequest struct {
	ScorecardID   string         `json:"scorecard_id"`
	ApplicantID   string         `json:"applicant_id"`
	ApplicantData map[string]any `json:"applicant_data"`

	parsedScorecardID id.ScorecardID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.ScorecardID = strings.TrimSpace(r.ScorecardID)
	if r.ScorecardID == "" {
		return dErrors.New(dErrors.CodeValidation, "scorecard_id is required")
	}
	scorecardID, err := id.ParseScorecardID(r.ScorecardID)
	if err != nil {
		return err
	}
	r.parsedScorecardID = scorecardID

	r.ApplicantID = strings.TrimSpace(r.ApplicantID)
	if r.ApplicantID == "" {
		return dErrors.New(dErrors.CodeValidation, "applicant_id is required")
	}
	if len(r.ApplicantID) > 128 {
		return dErrors.New(dErrors.CodeValidation, "applicant_id must be at most 128 characters")
	}

	if r.ApplicantData == nil {
		return dErrors.New(dErrors.CodeValidation, "applicant_data is required")
	}
	if len(r.ApplicantData) > maxApplicantFields {
		return dErrors.New(dErrors.CodeValidation, "applicant_data has too many fields")
	}
	return nil
}

// ParsedScorecardID returns the validated scorecard id.
func (r *EvaluateRequest) ParsedScorecardID() id.ScorecardID {
	return r.parsedScorecardID
}
