package audit

import (
	"context"

	id "scorewise/pkg/domain"
)

// Store persists evaluation logs. Append-only: implementations expose no
// update or delete operations.
type Store interface {
	Append(ctx context.Context, entry EvaluationLog) error
	ListByApplicant(ctx context.Context, applicantID string) ([]EvaluationLog, error)

	// VersionReferenced reports whether any log entry references the given
	// scorecard version. Version cleanup must retain referenced versions.
	VersionReferenced(ctx context.Context, versionID id.VersionID) (bool, error)
}
