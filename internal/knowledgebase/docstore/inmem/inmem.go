// Package inmem provides an in-process docstore.DocumentStore for tests.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/internal/knowledgebase/docstore"
	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// Store is a mutex-guarded map-backed docstore.DocumentStore.
type Store struct {
	mu   sync.Mutex
	docs map[string]coretypes.Document
}

var _ docstore.DocumentStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]coretypes.Document)}
}

// Put implements docstore.DocumentStore.
func (s *Store) Put(ctx context.Context, d coretypes.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = d
	return nil
}

// Get implements docstore.DocumentStore.
func (s *Store) Get(ctx context.Context, id string) (*coretypes.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, apperr.NotFound("document %q not found", id)
	}
	return &d, nil
}

// List implements docstore.DocumentStore.
func (s *Store) List(ctx context.Context) ([]coretypes.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]coretypes.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete implements docstore.DocumentStore.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}
