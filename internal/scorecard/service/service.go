// Package service orchestrates scorecard configuration management: config
// creation, version lifecycle (create, clone, activate, cleanup), and the
// active-snapshot read path the evaluation engine depends on.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"scorewise/internal/evaluation/expr"
	"scorewise/internal/scorecard/cache"
	"scorewise/internal/scorecard/metrics"
	"scorewise/internal/scorecard/models"
	id "scorewise/pkg/domain"
	dErrors "scorewise/pkg/domain-errors"
	"scorewise/pkg/platform/sentinel"
	"scorewise/pkg/requestcontext"
)

// Store is the version store the service drives. Satisfied by both the
// in-memory and Postgres implementations.
type Store interface {
	CreateConfig(ctx context.Context, cfg *models.ScorecardConfig) error
	GetConfig(ctx context.Context, scorecardID id.ScorecardID) (*models.ScorecardConfig, error)
	ListConfigs(ctx context.Context) ([]*models.ScorecardConfig, error)
	CreateVersion(ctx context.Context, version *models.ScorecardVersion) error
	GetVersion(ctx context.Context, versionID id.VersionID) (*models.ScorecardVersion, error)
	ListVersions(ctx context.Context, scorecardID id.ScorecardID) ([]*models.ScorecardVersion, error)
	GetActiveVersion(ctx context.Context, scorecardID id.ScorecardID) (*models.ScorecardVersion, error)
	Activate(ctx context.Context, scorecardID id.ScorecardID, versionID id.VersionID) error
	DeleteVersion(ctx context.Context, versionID id.VersionID) error
}

// SnapshotCache shortens the active-snapshot read path. Optional; every
// failure falls through to the store.
type SnapshotCache interface {
	Get(ctx context.Context, scorecardID id.ScorecardID) (*models.Snapshot, error)
	Set(ctx context.Context, snap *models.Snapshot) error
	Invalidate(ctx context.Context, scorecardID id.ScorecardID) error
}

// AuditReader answers whether an evaluation log still references a version.
// Cleanup consults it before deleting anything.
type AuditReader interface {
	VersionReferenced(ctx context.Context, versionID id.VersionID) (bool, error)
}

// Service manages scorecard configs and their versions.
type Service struct {
	store   Store
	cache   SnapshotCache
	audit   AuditReader
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithCache(c SnapshotCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service. The audit reader guards cleanup; pass the audit
// store so retained history is never orphaned.
func New(store Store, audit AuditReader, opts ...Option) *Service {
	s := &Service{store: store, audit: audit}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CreateScorecardInput carries the immutable identity of a new config.
type CreateScorecardInput struct {
	InstitutionID id.InstitutionID
	Name          string
	MinScore      int
	MaxScore      int
	PassingScore  int
}

// CreateScorecard registers a new scorecard config for an institution.
func (s *Service) CreateScorecard(ctx context.Context, in CreateScorecardInput) (*models.ScorecardConfig, error) {
	cfg := &models.ScorecardConfig{
		ID:            id.NewScorecardID(),
		InstitutionID: in.InstitutionID,
		Name:          strings.TrimSpace(in.Name),
		MinScore:      in.MinScore,
		MaxScore:      in.MaxScore,
		PassingScore:  in.PassingScore,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if cfg.InstitutionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "institution_id is required")
	}
	if cfg.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if err := models.ValidateConfig(*cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid scorecard config")
	}

	if err := s.store.CreateConfig(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "institution already has a scorecard")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create scorecard")
	}

	s.logger.InfoContext(ctx, "scorecard created",
		"scorecard_id", cfg.ID,
		"institution_id", cfg.InstitutionID,
		"request_id", requestcontext.RequestID(ctx))
	return cfg, nil
}

// GetScorecard returns a config by id.
func (s *Service) GetScorecard(ctx context.Context, scorecardID id.ScorecardID) (*models.ScorecardConfig, error) {
	cfg, err := s.store.GetConfig(ctx, scorecardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "scorecard not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load scorecard")
	}
	return cfg, nil
}

// ListScorecards returns all configs.
func (s *Service) ListScorecards(ctx context.Context) ([]*models.ScorecardConfig, error) {
	configs, err := s.store.ListConfigs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list scorecards")
	}
	return configs, nil
}

// CreateVersion validates and persists a new inactive version. Expression
// rules are compiled here so a malformed expression is rejected at
// configuration time, never at evaluation time.
func (s *Service) CreateVersion(ctx context.Context, scorecardID id.ScorecardID, factors []models.ScoringFactor, bands []models.GradeBand) (*models.ScorecardVersion, error) {
	cfg, err := s.GetScorecard(ctx, scorecardID)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateFactors(factors); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid scoring factors")
	}
	for _, f := range factors {
		if f.Rule.Kind != models.RuleKindExpression {
			continue
		}
		if _, err := expr.Parse(f.Rule.Expression.Expression); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid expression in factor "+f.Code)
		}
	}
	if err := models.ValidateBands(bands, cfg.MinScore, cfg.MaxScore); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid grade bands")
	}

	version := &models.ScorecardVersion{
		ID:          id.NewVersionID(),
		ScorecardID: scorecardID,
		Factors:     factors,
		Bands:       bands,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.CreateVersion(ctx, version); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "scorecard not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create version")
	}
	s.metrics.IncrementVersionCreated()

	s.logger.InfoContext(ctx, "scorecard version created",
		"scorecard_id", scorecardID,
		"version_id", version.ID,
		"version_number", version.Number,
		"request_id", requestcontext.RequestID(ctx))
	return version, nil
}

// GetVersion returns one version by id.
func (s *Service) GetVersion(ctx context.Context, versionID id.VersionID) (*models.ScorecardVersion, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version")
	}
	return version, nil
}

// ListVersions returns all versions of a config in number order.
func (s *Service) ListVersions(ctx context.Context, scorecardID id.ScorecardID) ([]*models.ScorecardVersion, error) {
	if _, err := s.GetScorecard(ctx, scorecardID); err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, scorecardID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list versions")
	}
	return versions, nil
}

// Activate makes the given version the single active one for its config.
// The cached snapshot is invalidated so the next evaluation sees the switch.
func (s *Service) Activate(ctx context.Context, scorecardID id.ScorecardID, versionID id.VersionID) error {
	version, err := s.GetVersion(ctx, versionID)
	if err != nil {
		return err
	}
	if version.ScorecardID != scorecardID {
		return dErrors.New(dErrors.CodeNotFound, "version not found")
	}

	if err := s.store.Activate(ctx, scorecardID, versionID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "version not found")
		case errors.Is(err, sentinel.ErrConflict):
			s.metrics.IncrementActivationConflict()
			return dErrors.New(dErrors.CodeConflict, "activation lost a concurrent race, retry")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate version")
		}
	}
	s.metrics.IncrementVersionActivated()
	s.invalidateSnapshot(ctx, scorecardID)

	s.logger.InfoContext(ctx, "scorecard version activated",
		"scorecard_id", scorecardID,
		"version_id", versionID,
		"version_number", version.Number,
		"request_id", requestcontext.RequestID(ctx))
	return nil
}

// Clone copies an existing version's factors and bands into a new inactive
// version of the same config, giving institutions a safe editing base.
func (s *Service) Clone(ctx context.Context, scorecardID id.ScorecardID, versionID id.VersionID) (*models.ScorecardVersion, error) {
	src, err := s.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if src.ScorecardID != scorecardID {
		return nil, dErrors.New(dErrors.CodeNotFound, "version not found")
	}

	clone := &models.ScorecardVersion{
		ID:          id.NewVersionID(),
		ScorecardID: src.ScorecardID,
		Factors:     cloneFactors(src.Factors),
		Bands:       append([]models.GradeBand(nil), src.Bands...),
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.CreateVersion(ctx, clone); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clone version")
	}
	s.metrics.IncrementVersionCreated()

	s.logger.InfoContext(ctx, "scorecard version cloned",
		"scorecard_id", src.ScorecardID,
		"source_version_id", src.ID,
		"version_id", clone.ID,
		"request_id", requestcontext.RequestID(ctx))
	return clone, nil
}

// CleanupResult reports what one cleanup pass did.
type CleanupResult struct {
	Deleted  []id.VersionID
	Retained []id.VersionID
}

// Cleanup deletes old inactive versions beyond the retain count. Versions
// referenced by evaluation logs are kept regardless of age so every audit
// entry stays resolvable to the exact configuration that produced it.
func (s *Service) Cleanup(ctx context.Context, scorecardID id.ScorecardID, retain int) (*CleanupResult, error) {
	if retain < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "retain count must not be negative")
	}
	versions, err := s.ListVersions(ctx, scorecardID)
	if err != nil {
		return nil, err
	}

	// Newest first so the retain window keeps the most recent inactive versions.
	inactive := make([]*models.ScorecardVersion, 0, len(versions))
	for _, v := range versions {
		if !v.Active {
			inactive = append(inactive, v)
		}
	}
	sort.Slice(inactive, func(i, j int) bool { return inactive[i].Number > inactive[j].Number })
	if len(inactive) <= retain {
		return &CleanupResult{}, nil
	}

	result := &CleanupResult{}
	for _, v := range inactive[retain:] {
		referenced, err := s.audit.VersionReferenced(ctx, v.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check version references")
		}
		if referenced {
			result.Retained = append(result.Retained, v.ID)
			s.metrics.IncrementVersionRetained()
			continue
		}
		if err := s.store.DeleteVersion(ctx, v.ID); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
				// Lost a race with an activation or a concurrent evaluation; keep it.
				result.Retained = append(result.Retained, v.ID)
				s.metrics.IncrementVersionRetained()
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete version")
		}
		result.Deleted = append(result.Deleted, v.ID)
		s.metrics.IncrementVersionDeleted()
	}

	s.logger.InfoContext(ctx, "scorecard cleanup finished",
		"scorecard_id", scorecardID,
		"deleted", len(result.Deleted),
		"retained", len(result.Retained),
		"request_id", requestcontext.RequestID(ctx))
	return result, nil
}

// ActiveSnapshot returns the config plus its active version in one consistent
// unit. Cache first, store on miss; cache errors degrade to a store read.
func (s *Service) ActiveSnapshot(ctx context.Context, scorecardID id.ScorecardID) (*models.Snapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.Get(ctx, scorecardID)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WarnContext(ctx, "snapshot cache read failed", "error", err, "scorecard_id", scorecardID)
		}
	}

	cfg, err := s.store.GetConfig(ctx, scorecardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "scorecard not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load scorecard")
	}
	version, err := s.store.GetActiveVersion(ctx, scorecardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "scorecard has no active version")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active version")
	}

	snap := &models.Snapshot{Config: *cfg, Version: *version}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache write failed", "error", err, "scorecard_id", scorecardID)
		}
	}
	return snap, nil
}

func (s *Service) invalidateSnapshot(ctx context.Context, scorecardID id.ScorecardID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, scorecardID); err != nil {
		s.logger.WarnContext(ctx, "snapshot cache invalidation failed", "error", err, "scorecard_id", scorecardID)
	}
}

func cloneFactors(factors []models.ScoringFactor) []models.ScoringFactor {
	out := make([]models.ScoringFactor, len(factors))
	for i, f := range factors {
		out[i] = f
		switch f.Rule.Kind {
		case models.RuleKindThreshold:
			if f.Rule.Threshold != nil {
				t := *f.Rule.Threshold
				t.Ranges = append([]models.PointRange(nil), f.Rule.Threshold.Ranges...)
				out[i].Rule.Threshold = &t
			}
		case models.RuleKindCondition:
			if f.Rule.Condition != nil {
				c := models.ConditionRule{Cases: make([]models.ConditionCase, len(f.Rule.Condition.Cases))}
				for j, cs := range f.Rule.Condition.Cases {
					c.Cases[j] = cs
					c.Cases[j].When = append([]models.Comparison(nil), cs.When...)
				}
				out[i].Rule.Condition = &c
			}
		case models.RuleKindExpression:
			if f.Rule.Expression != nil {
				e := *f.Rule.Expression
				out[i].Rule.Expression = &e
			}
		}
	}
	return out
}
