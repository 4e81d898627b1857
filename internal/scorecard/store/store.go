// Package store persists scorecard configs and their versioned snapshots.
// Two implementations share the contract: an in-memory store for tests and
// dev, and a PostgreSQL store for production.
package store

import (
	"context"

	"scorewise/internal/scorecard/models"
	id "scorewise/pkg/domain"
)

// Store is the version-store contract. Implementations guarantee:
//   - version numbers are monotonically increasing per config,
//   - at most one version per config is active at any instant,
//   - Activate flips the previous active version off and the target on
//     atomically; concurrent activations serialize, exactly one order wins.
type Store interface {
	CreateConfig(ctx context.Context, cfg *models.ScorecardConfig) error
	GetConfig(ctx context.Context, scorecardID id.ScorecardID) (*models.ScorecardConfig, error)
	ListConfigs(ctx context.Context) ([]*models.ScorecardConfig, error)

	// CreateVersion persists the version as inactive and fills in its
	// allocated number and creation time.
	CreateVersion(ctx context.Context, version *models.ScorecardVersion) error
	GetVersion(ctx context.Context, versionID id.VersionID) (*models.ScorecardVersion, error)
	ListVersions(ctx context.Context, scorecardID id.ScorecardID) ([]*models.ScorecardVersion, error)

	// GetActiveVersion returns the snapshot of the currently active version
	// in a single consistent read: callers see version N fully or version
	// N+1 fully, never a mixture.
	GetActiveVersion(ctx context.Context, scorecardID id.ScorecardID) (*models.ScorecardVersion, error)

	Activate(ctx context.Context, scorecardID id.ScorecardID, versionID id.VersionID) error

	// DeleteVersion removes one inactive version. Deleting the active
	// version is an ErrInvalidState; audit-referenced versions are guarded
	// by the service before this is called and by the SQL itself in the
	// PostgreSQL implementation.
	DeleteVersion(ctx context.Context, versionID id.VersionID) error
}
