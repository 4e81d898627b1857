package store

import (
	"context"
	"sort"
	"sync"

	"scorewise/internal/scorecard/models"
	id "scorewise/pkg/domain"
	"scorewise/pkg/platform/sentinel"
	"scorewise/pkg/requestcontext"
)

// InMemory is a mutex-guarded store for tests and database-less dev runs.
// One lock covers configs and versions so Activate is trivially atomic.
type InMemory struct {
	mu       sync.RWMutex
	configs  map[id.ScorecardID]*models.ScorecardConfig
	versions map[id.VersionID]*models.ScorecardVersion
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		configs:  make(map[id.ScorecardID]*models.ScorecardConfig),
		versions: make(map[id.VersionID]*models.ScorecardVersion),
	}
}

func (s *InMemory) CreateConfig(ctx context.Context, cfg *models.ScorecardConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[cfg.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.configs {
		if existing.InstitutionID == cfg.InstitutionID {
			return sentinel.ErrConflict
		}
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = requestcontext.Now(ctx)
	}
	clone := *cfg
	s.configs[cfg.ID] = &clone
	return nil
}

func (s *InMemory) GetConfig(_ context.Context, scorecardID id.ScorecardID) (*models.ScorecardConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[scorecardID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *cfg
	return &clone, nil
}

func (s *InMemory) ListConfigs(_ context.Context) ([]*models.ScorecardConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ScorecardConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		clone := *cfg
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) CreateVersion(ctx context.Context, version *models.ScorecardVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[version.ScorecardID]; !ok {
		return sentinel.ErrNotFound
	}

	next := 1
	for _, existing := range s.versions {
		if existing.ScorecardID == version.ScorecardID && existing.Number >= next {
			next = existing.Number + 1
		}
	}
	version.Number = next
	version.Active = false
	if version.CreatedAt.IsZero() {
		version.CreatedAt = requestcontext.Now(ctx)
	}
	s.versions[version.ID] = cloneVersion(version)
	return nil
}

func (s *InMemory) GetVersion(_ context.Context, versionID id.VersionID) (*models.ScorecardVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.versions[versionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneVersion(version), nil
}

func (s *InMemory) ListVersions(_ context.Context, scorecardID id.ScorecardID) ([]*models.ScorecardVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ScorecardVersion
	for _, version := range s.versions {
		if version.ScorecardID == scorecardID {
			out = append(out, cloneVersion(version))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *InMemory) GetActiveVersion(_ context.Context, scorecardID id.ScorecardID) (*models.ScorecardVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, version := range s.versions {
		if version.ScorecardID == scorecardID && version.Active {
			return cloneVersion(version), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Activate(_ context.Context, scorecardID id.ScorecardID, versionID id.VersionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.versions[versionID]
	if !ok || target.ScorecardID != scorecardID {
		return sentinel.ErrNotFound
	}
	for _, version := range s.versions {
		if version.ScorecardID == scorecardID {
			version.Active = false
		}
	}
	target.Active = true
	return nil
}

func (s *InMemory) DeleteVersion(_ context.Context, versionID id.VersionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	version, ok := s.versions[versionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if version.Active {
		return sentinel.ErrInvalidState
	}
	delete(s.versions, versionID)
	return nil
}

func cloneVersion(version *models.ScorecardVersion) *models.ScorecardVersion {
	clone := *version
	clone.Factors = make([]models.ScoringFactor, len(version.Factors))
	copy(clone.Factors, version.Factors)
	clone.Bands = make([]models.GradeBand, len(version.Bands))
	copy(clone.Bands, version.Bands)
	return &clone
}

var _ Store = (*InMemory)(nil)
