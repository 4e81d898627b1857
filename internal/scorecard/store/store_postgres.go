package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"scorewise/internal/scorecard/models"
	id "scorewise/pkg/domain"
	"scorewise/pkg/platform/sentinel"
	txcontext "scorewise/pkg/platform/tx"
)

// Postgres persists configs and versions in PostgreSQL. Factors and bands
// live as JSONB columns on the version row, so reading one row yields the
// whole snapshot in a single consistent read.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed version store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// activateRetries bounds transparent retry of activation under concurrent
// serialization conflicts; one attempt always wins, the rest retry against
// the new state.
const activateRetries = 3

func (s *Postgres) CreateConfig(ctx context.Context, cfg *models.ScorecardConfig) error {
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scorecard_configs (id, institution_id, name, min_score, max_score, passing_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(cfg.ID), uuid.UUID(cfg.InstitutionID), cfg.Name,
		cfg.MinScore, cfg.MaxScore, cfg.PassingScore, cfg.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert scorecard config: %w", err)
	}
	return nil
}

func (s *Postgres) GetConfig(ctx context.Context, scorecardID id.ScorecardID) (*models.ScorecardConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, institution_id, name, min_score, max_score, passing_score, created_at
		FROM scorecard_configs
		WHERE id = $1
	`, uuid.UUID(scorecardID))
	return scanConfig(row)
}

func (s *Postgres) ListConfigs(ctx context.Context) ([]*models.ScorecardConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, institution_id, name, min_score, max_score, passing_score, created_at
		FROM scorecard_configs
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list scorecard configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.ScorecardConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// CreateVersion allocates the next version number under a lock on the
// config row, so concurrent creations cannot collide on the number.
func (s *Postgres) CreateVersion(ctx context.Context, version *models.ScorecardVersion) error {
	factorsBytes, err := json.Marshal(version.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	bandsBytes, err := json.Marshal(version.Bands)
	if err != nil {
		return fmt.Errorf("marshal bands: %w", err)
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now()
	}

	return txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		dbTx, _ := txcontext.From(ctx)

		var exists bool
		err := dbTx.QueryRowContext(ctx, `
			SELECT true FROM scorecard_configs WHERE id = $1 FOR UPDATE
		`, uuid.UUID(version.ScorecardID)).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock scorecard config: %w", err)
		}

		err = dbTx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(number), 0) + 1 FROM scorecard_versions WHERE scorecard_id = $1
		`, uuid.UUID(version.ScorecardID)).Scan(&version.Number)
		if err != nil {
			return fmt.Errorf("allocate version number: %w", err)
		}

		version.Active = false
		_, err = dbTx.ExecContext(ctx, `
			INSERT INTO scorecard_versions (id, scorecard_id, number, factors, bands, active, created_at)
			VALUES ($1, $2, $3, $4, $5, false, $6)
		`,
			uuid.UUID(version.ID), uuid.UUID(version.ScorecardID), version.Number,
			factorsBytes, bandsBytes, version.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert scorecard version: %w", err)
		}
		return nil
	})
}

func (s *Postgres) GetVersion(ctx context.Context, versionID id.VersionID) (*models.ScorecardVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scorecard_id, number, factors, bands, active, created_at
		FROM scorecard_versions
		WHERE id = $1
	`, uuid.UUID(versionID))
	return scanVersion(row)
}

func (s *Postgres) ListVersions(ctx context.Context, scorecardID id.ScorecardID) ([]*models.ScorecardVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scorecard_id, number, factors, bands, active, created_at
		FROM scorecard_versions
		WHERE scorecard_id = $1
		ORDER BY number
	`, uuid.UUID(scorecardID))
	if err != nil {
		return nil, fmt.Errorf("list scorecard versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.ScorecardVersion
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (s *Postgres) GetActiveVersion(ctx context.Context, scorecardID id.ScorecardID) (*models.ScorecardVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scorecard_id, number, factors, bands, active, created_at
		FROM scorecard_versions
		WHERE scorecard_id = $1 AND active
	`, uuid.UUID(scorecardID))
	return scanVersion(row)
}

// Activate flips the active pointer in one serializable transaction. The
// config row lock serializes concurrent activations for the same config;
// serialization failures retry transparently up to activateRetries.
func (s *Postgres) Activate(ctx context.Context, scorecardID id.ScorecardID, versionID id.VersionID) error {
	var err error
	for attempt := 0; attempt < activateRetries; attempt++ {
		err = s.activateOnce(ctx, scorecardID, versionID)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return fmt.Errorf("activate version: %w", sentinel.ErrConflict)
}

func (s *Postgres) activateOnce(ctx context.Context, scorecardID id.ScorecardID, versionID id.VersionID) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	return txcontext.Run(ctx, s.db, opts, func(ctx context.Context) error {
		dbTx, _ := txcontext.From(ctx)

		var exists bool
		err := dbTx.QueryRowContext(ctx, `
			SELECT true FROM scorecard_configs WHERE id = $1 FOR UPDATE
		`, uuid.UUID(scorecardID)).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock scorecard config: %w", err)
		}

		if _, err := dbTx.ExecContext(ctx, `
			UPDATE scorecard_versions SET active = false
			WHERE scorecard_id = $1 AND active
		`, uuid.UUID(scorecardID)); err != nil {
			return fmt.Errorf("deactivate current version: %w", err)
		}

		result, err := dbTx.ExecContext(ctx, `
			UPDATE scorecard_versions SET active = true
			WHERE id = $1 AND scorecard_id = $2
		`, uuid.UUID(versionID), uuid.UUID(scorecardID))
		if err != nil {
			return fmt.Errorf("activate target version: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("activate target version: %w", err)
		}
		if affected != 1 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

// DeleteVersion removes an inactive version. The NOT EXISTS guard repeats
// the service-level retention check inside the statement, so a log written
// between check and delete still cannot orphan an audit trail.
func (s *Postgres) DeleteVersion(ctx context.Context, versionID id.VersionID) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM scorecard_versions
		WHERE id = $1
		  AND NOT active
		  AND NOT EXISTS (SELECT 1 FROM evaluation_logs WHERE version_id = $1)
	`, uuid.UUID(versionID))
	if err != nil {
		return fmt.Errorf("delete scorecard version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scorecard version: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*models.ScorecardConfig, error) {
	var cfg models.ScorecardConfig
	var cfgID, institutionID uuid.UUID
	err := row.Scan(&cfgID, &institutionID, &cfg.Name, &cfg.MinScore, &cfg.MaxScore, &cfg.PassingScore, &cfg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan scorecard config: %w", err)
	}
	cfg.ID = id.ScorecardID(cfgID)
	cfg.InstitutionID = id.InstitutionID(institutionID)
	return &cfg, nil
}

func scanVersion(row rowScanner) (*models.ScorecardVersion, error) {
	var version models.ScorecardVersion
	var versionID, scorecardID uuid.UUID
	var factorsBytes, bandsBytes []byte
	err := row.Scan(&versionID, &scorecardID, &version.Number, &factorsBytes, &bandsBytes, &version.Active, &version.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan scorecard version: %w", err)
	}
	version.ID = id.VersionID(versionID)
	version.ScorecardID = id.ScorecardID(scorecardID)
	if err := json.Unmarshal(factorsBytes, &version.Factors); err != nil {
		return nil, fmt.Errorf("unmarshal factors: %w", err)
	}
	if err := json.Unmarshal(bandsBytes, &version.Bands); err != nil {
		return nil, fmt.Errorf("unmarshal bands: %w", err)
	}
	return &version, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure / deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

var _ Store = (*Postgres)(nil)
