package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// Store holds generated Reports in process memory, keyed by id. Reports are
// retention-eligible: PruneOlderThan is called periodically by the engine's
// retention sweep, never touching Documents, Chunks, Profiles, or Facts.
type Store struct {
	mu      sync.Mutex
	reports map[string]coretypes.Report
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{reports: make(map[string]coretypes.Report)}
}

// Put persists a Report, overwriting any existing entry with the same ID.
func (s *Store) Put(_ context.Context, r coretypes.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r
	return nil
}

// Get returns the Report with the given id.
func (s *Store) Get(_ context.Context, id string) (*coretypes.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, apperr.NotFound("report %q not found", id)
	}
	return &r, nil
}

// List returns every stored Report, most recent first.
func (s *Store) List(_ context.Context) ([]coretypes.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]coretypes.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a Report. Idempotent.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reports, id)
	return nil
}

// PruneOlderThan removes every Report whose CreatedAt is before cutoff,
// returning the count removed.
func (s *Store) PruneOlderThan(_ context.Context, cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.reports {
		if r.CreatedAt.Before(cutoff) {
			delete(s.reports, id)
			n++
		}
	}
	return n
}
