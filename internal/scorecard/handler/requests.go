package handler

import (
	"strings"

	"scorewise/internal/scorecard/models"
	id "scorewise/pkg/domain"
	dErrors "scorewise/pkg/domain-errors"
)

// CreateScorecardRequest is the HTTP request body for POST /scorecards.
type CreateScorecardRequest struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
	MinScore      int    `json:"min_score"`
	MaxScore      int    `json:"max_score"`
	PassingScore  int    `json:"passing_score"`

	parsedInstitutionID id.InstitutionID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateScorecardRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.InstitutionID = strings.TrimSpace(r.InstitutionID)
	if r.InstitutionID == "" {
		return dErrors.New(dErrors.CodeValidation, "institution_id is required")
	}
	institutionID, err := id.ParseInstitutionID(r.InstitutionID)
	if err != nil {
		return err
	}
	r.parsedInstitutionID = institutionID

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 128 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 128 characters")
	}
	return nil
}

// ParsedInstitutionID returns the validated institution id.
func (r *CreateScorecardRequest) ParsedInstitutionID() id.InstitutionID {
	return r.parsedInstitutionID
}

// CreateVersionRequest is the HTTP request body for POST /scorecards/{id}/versions.
// Factor and band semantics are validated by the service against the config;
// this layer only checks shape.
type CreateVersionRequest struct {
	Factors []models.ScoringFactor `json:"factors"`
	Bands   []models.GradeBand     `json:"bands"`
}

// Validate checks the request shape.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateVersionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Factors) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one scoring factor is required")
	}
	if len(r.Bands) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one grade band is required")
	}
	return nil
}

// CleanupRequest is the HTTP request body for POST /scorecards/{id}/versions/cleanup.
type CleanupRequest struct {
	RetainCount int `json:"retain_count"`
}

// Validate checks the retain count.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CleanupRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.RetainCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "retain_count must not be negative")
	}
	return nil
}
