package handler

import (
	"time"

	"scorewise/internal/scorecard/models"
	"scorewise/internal/scorecard/service"
)

// ScorecardResponse is the HTTP representation of a scorecard config.
type ScorecardResponse struct {
	ID            string    `json:"id"`
	InstitutionID string    `json:"institution_id"`
	Name          string    `json:"name"`
	MinScore      int       `json:"min_score"`
	MaxScore      int       `json:"max_score"`
	PassingScore  int       `json:"passing_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// FromConfig converts a domain config to an HTTP response.
func FromConfig(cfg *models.ScorecardConfig) *ScorecardResponse {
	return &ScorecardResponse{
		ID:            cfg.ID.String(),
		InstitutionID: cfg.InstitutionID.String(),
		Name:          cfg.Name,
		MinScore:      cfg.MinScore,
		MaxScore:      cfg.MaxScore,
		PassingScore:  cfg.PassingScore,
		CreatedAt:     cfg.CreatedAt,
	}
}

// FromConfigs converts a config listing.
func FromConfigs(configs []*models.ScorecardConfig) []*ScorecardResponse {
	out := make([]*ScorecardResponse, len(configs))
	for i, cfg := range configs {
		out[i] = FromConfig(cfg)
	}
	return out
}

// VersionResponse is the HTTP representation of a scorecard version.
type VersionResponse struct {
	ID          string                 `json:"id"`
	ScorecardID string                 `json:"scorecard_id"`
	Number      int                    `json:"number"`
	Factors     []models.ScoringFactor `json:"factors"`
	Bands       []models.GradeBand     `json:"bands"`
	Active      bool                   `json:"active"`
	CreatedAt   time.Time              `json:"created_at"`
}

// FromVersion converts a domain version to an HTTP response.
func FromVersion(v *models.ScorecardVersion) *VersionResponse {
	return &VersionResponse{
		ID:          v.ID.String(),
		ScorecardID: v.ScorecardID.String(),
		Number:      v.Number,
		Factors:     v.Factors,
		Bands:       v.Bands,
		Active:      v.Active,
		CreatedAt:   v.CreatedAt,
	}
}

// FromVersions converts a version listing.
func FromVersions(versions []*models.ScorecardVersion) []*VersionResponse {
	out := make([]*VersionResponse, len(versions))
	for i, v := range versions {
		out[i] = FromVersion(v)
	}
	return out
}

// CleanupResponse is the HTTP response for a cleanup pass.
type CleanupResponse struct {
	Deleted  []string `json:"deleted"`
	Retained []string `json:"retained"`
}

// FromCleanupResult converts a cleanup result to an HTTP response.
func FromCleanupResult(result *service.CleanupResult) *CleanupResponse {
	resp := &CleanupResponse{Deleted: []string{}, Retained: []string{}}
	for _, v := range result.Deleted {
		resp.Deleted = append(resp.Deleted, v.String())
	}
	for _, v := range result.Retained {
		resp.Retained = append(resp.Retained, v.String())
	}
	return resp
}
