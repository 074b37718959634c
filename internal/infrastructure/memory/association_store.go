package memory

import (
	"context"
	"sync"
)

// AssociationStore is an in-memory repositories.AssociationStore
type AssociationStore struct {
	mu    sync.RWMutex
	links map[string]string
}

// NewAssociationStore creates an empty association store
func NewAssociationStore() *AssociationStore {
	return &AssociationStore{links: make(map[string]string)}
}

// Put creates or replaces the mapping for externalID
func (s *AssociationStore) Put(ctx context.Context, externalID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[externalID] = userID
	return nil
}

// Get returns the account mapped to externalID
func (s *AssociationStore) Get(ctx context.Context, externalID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.links[externalID]
	return uid, ok, nil
}

// Delete removes the mapping for externalID if present
func (s *AssociationStore) Delete(ctx context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, externalID)
	return nil
}

// Len returns the number of stored mappings
func (s *AssociationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}
