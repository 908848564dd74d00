package memory

import (
	"context"
	"sync"

	id "salegate/pkg/domain"
	audit "salegate/pkg/platform/audit"
)

// Store is an append-only in-memory audit store for tests and single-node
// deployments.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, account id.Account) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Account == account {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every recorded event in append order. Test helper.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
