// Package audit owns the compliance record of record: one append-only
// EvaluationLog entry per completed evaluation, capturing the full request,
// the exact scorecard version used, and the result. Entries are never
// updated or deleted; version cleanup consults them to keep every audited
// configuration resolvable.
package audit

import (
	"encoding/json"
	"time"

	id "scorewise/pkg/domain"
)

// EvaluationLog is a single immutable audit entry.
type EvaluationLog struct {
	ID            id.EvaluationID
	ScorecardID   id.ScorecardID
	VersionID     id.VersionID
	VersionNumber int

	ApplicantID   string
	RequestID     string
	SourceSystem  string
	ApplicantData map[string]any

	// Result is the full EvaluationResult as JSON; the typed summary
	// columns below exist for querying without unmarshaling.
	Result     json.RawMessage
	TotalScore int
	Grade      string
	Status     string

	CreatedAt time.Time
}
