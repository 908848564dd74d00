package store

import (
	"context"
	"sync"

	id "salegate/pkg/domain"
)

// InMemory is the single-node whitelist store.
type InMemory struct {
	mu      sync.RWMutex
	members map[id.Account]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[id.Account]struct{})}
}

func (s *InMemory) Add(ctx context.Context, account id.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[account]; ok {
		return false, nil
	}
	s.members[account] = struct{}{}
	return true, nil
}

func (s *InMemory) Remove(ctx context.Context, account id.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[account]; !ok {
		return false, nil
	}
	delete(s.members, account)
	return true, nil
}

func (s *InMemory) Contains(ctx context.Context, account id.Account) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[account]
	return ok, nil
}
