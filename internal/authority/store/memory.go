package store

import (
	"context"
	"sync"

	id "salegate/pkg/domain"
)

// InMemory keeps the admin set in a map. Insertion order is preserved so the
// creator stays member 0 in listings.
type InMemory struct {
	mu      sync.RWMutex
	members map[id.Account]struct{}
	order   []id.Account
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
	s.order = append(s.order, account)
	return true, nil
}

func (s *InMemory) IsAdmin(ctx context.Context, account id.Account) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[account]
	return ok, nil
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members), nil
}
