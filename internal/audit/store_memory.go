package audit

import (
	"context"
	"sync"

	id "scorewise/pkg/domain"
)

// InMemoryStore keeps evaluation logs in memory. Used in tests and when no
// database is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []EvaluationLog
}

// NewInMemoryStore constructs an empty in-memory audit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry EvaluationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByApplicant(_ context.Context, applicantID string) ([]EvaluationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EvaluationLog
	for _, entry := range s.entries {
		if entry.ApplicantID == applicantID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *InMemoryStore) VersionReferenced(_ context.Context, versionID id.VersionID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.VersionID == versionID {
			return true, nil
		}
	}
	return false, nil
}
