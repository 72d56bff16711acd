// Package inmem provides an in-process profilestore.Store for tests, with
// the same single-relation link-graph model as the Postgres implementation.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	"github.com/MrWong99/claimwright/pkg/profilestore"
)

// Store is a mutex-guarded map-backed profilestore.Store.
type Store struct {
	mu       sync.Mutex
	profiles map[string]*coretypes.Profile
	// links maps documentID -> set of profileIDs, the single relation both
	// LinkedDocuments and LinkedProfiles derive from.
	links map[string]map[string]bool
}

var _ profilestore.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		profiles: make(map[string]*coretypes.Profile),
		links:    make(map[string]map[string]bool),
	}
}

// CreateProfile implements profilestore.Store.
func (s *Store) CreateProfile(ctx context.Context, p coretypes.Profile) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := p
	cp.Facts = append([]coretypes.Fact(nil), p.Facts...)
	s.profiles[p.ID] = &cp
	return p.ID, nil
}

// GetProfile implements profilestore.Store.
func (s *Store) GetProfile(ctx context.Context, id string) (*coretypes.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperr.NotFound("profile %q not found", id)
	}
	cp := *p
	cp.Facts = append([]coretypes.Fact(nil), p.Facts...)
	cp.Documents = s.linkedDocumentsLocked(id)
	return &cp, nil
}

// ListProfiles implements profilestore.Store.
func (s *Store) ListProfiles(ctx context.Context, kind coretypes.ProfileKind, tagFilter []string) ([]coretypes.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []coretypes.Profile
	for _, p := range s.profiles {
		if kind != "" && p.Kind != kind {
			continue
		}
		if !hasAllTags(p.Tags, tagFilter) {
			continue
		}
		cp := *p
		cp.Facts = append([]coretypes.Fact(nil), p.Facts...)
		cp.Documents = s.linkedDocumentsLocked(p.ID)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteProfile implements profilestore.Store.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
	for doc, profs := range s.links {
		delete(profs, id)
		if len(profs) == 0 {
			delete(s.links, doc)
		}
	}
	return nil
}

// AddFact implements profilestore.Store.
func (s *Store) AddFact(ctx context.Context, profileID string, f coretypes.Fact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return "", apperr.NotFound("profile %q not found", profileID)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.ProfileID = profileID
	p.Facts = append(p.Facts, f)
	return f.ID, nil
}

// RemoveFact implements profilestore.Store.
func (s *Store) RemoveFact(ctx context.Context, profileID, factID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return apperr.NotFound("profile %q not found", profileID)
	}
	kept := p.Facts[:0]
	for _, f := range p.Facts {
		if f.ID != factID {
			kept = append(kept, f)
		}
	}
	p.Facts = kept
	return nil
}

// Link implements profilestore.Store.
func (s *Store) Link(ctx context.Context, documentID, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[documentID]; !ok {
		s.links[documentID] = make(map[string]bool)
	}
	s.links[documentID][profileID] = true
	return nil
}

// Unlink implements profilestore.Store.
func (s *Store) Unlink(ctx context.Context, documentID, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if profs, ok := s.links[documentID]; ok {
		delete(profs, profileID)
		if len(profs) == 0 {
			delete(s.links, documentID)
		}
	}
	return nil
}

// LinkedDocuments implements profilestore.Store.
func (s *Store) LinkedDocuments(ctx context.Context, profileID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkedDocumentsLocked(profileID), nil
}

func (s *Store) linkedDocumentsLocked(profileID string) []string {
	var out []string
	for doc, profs := range s.links {
		if profs[profileID] {
			out = append(out, doc)
		}
	}
	sort.Strings(out)
	return out
}

// LinkedProfiles implements profilestore.Store.
func (s *Store) LinkedProfiles(ctx context.Context, documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for pid := range s.links[documentID] {
		out = append(out, pid)
	}
	sort.Strings(out)
	return out, nil
}

// OnDocumentDeleted implements profilestore.Store.
func (s *Store) OnDocumentDeleted(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, documentID)
	return nil
}

// RepairOrphanLinks implements profilestore.Store. Links to deleted
// profiles are removed synchronously by DeleteProfile, but Link does not
// check that the profile exists, so this sweep removes and counts any link
// whose profile id is unknown.
func (s *Store) RepairOrphanLinks(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repaired := 0
	for doc, profs := range s.links {
		for pid := range profs {
			if _, ok := s.profiles[pid]; !ok {
				delete(profs, pid)
				repaired++
			}
		}
		if len(profs) == 0 {
			delete(s.links, doc)
		}
	}
	return repaired, nil
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
