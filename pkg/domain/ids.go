// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct named UUID types so the compiler rejects cross-type
// assignment (passing a VersionID where a ScorecardID is expected is a
// compile error, not a runtime surprise).
package domain

import (
	"github.com/google/uuid"

	dErrors "scorewise/pkg/domain-errors"
)

type (
	// InstitutionID identifies the financial institution that owns a scorecard.
	InstitutionID uuid.UUID

	// ScorecardID identifies a scorecard configuration lineage.
	ScorecardID uuid.UUID

	// VersionID identifies one versioned snapshot of a scorecard.
	VersionID uuid.UUID

	// EvaluationID identifies a single evaluation run and its audit record.
	EvaluationID uuid.UUID
)

func (id InstitutionID) String() string { return uuid.UUID(id).String() }
func (id ScorecardID) String() string   { return uuid.UUID(id).String() }
func (id VersionID) String() string     { return uuid.UUID(id).String() }
func (id EvaluationID) String() string  { return uuid.UUID(id).String() }

func (id InstitutionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ScorecardID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id VersionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EvaluationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// NewInstitutionID allocates a fresh institution identifier.
func NewInstitutionID() InstitutionID { return InstitutionID(uuid.New()) }

// NewScorecardID allocates a fresh scorecard identifier.
func NewScorecardID() ScorecardID { return ScorecardID(uuid.New()) }

// NewVersionID allocates a fresh version identifier.
func NewVersionID() VersionID { return VersionID(uuid.New()) }

// NewEvaluationID allocates a fresh evaluation identifier.
func NewEvaluationID() EvaluationID { return EvaluationID(uuid.New()) }

// parseUUID enforces the invariant that IDs must be valid, non-nil UUIDs.
// Used at trust boundaries; rejects empty strings and uuid.Nil.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return parsed, nil
}

// ParseInstitutionID parses and validates an institution ID from its string form.
func ParseInstitutionID(raw string) (InstitutionID, error) {
	parsed, err := parseUUID(raw, "institution")
	return InstitutionID(parsed), err
}

// ParseScorecardID parses and validates a scorecard ID from its string form.
func ParseScorecardID(raw string) (ScorecardID, error) {
	parsed, err := parseUUID(raw, "scorecard")
	return ScorecardID(parsed), err
}

// ParseVersionID parses and validates a version ID from its string form.
func ParseVersionID(raw string) (VersionID, error) {
	parsed, err := parseUUID(raw, "version")
	return VersionID(parsed), err
}

// ParseEvaluationID parses and validates an evaluation ID from its string form.
func ParseEvaluationID(raw string) (EvaluationID, error) {
	parsed, err := parseUUID(raw, "evaluation")
	return EvaluationID(parsed), err
}
