package store

import (
	"context"
	"sync"

	"salegate/internal/phase"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
)

// InMemory holds the singleton sale state: configured phase, caps, and the
// raised counter.
type InMemory struct {
	mu       sync.RWMutex
	phase    *phase.Phase
	caps     phase.Caps
	totalCap id.Amount
	raised   id.Amount
}

// NewInMemory creates the store with the initial total sale cap; caps start
// unbounded and nothing raised.
func NewInMemory(totalSaleCap id.Amount) *InMemory {
	return &InMemory{
		caps:     phase.Caps{Min: id.Zero(), Max: id.Zero()},
		totalCap: id.CloneAmount(totalSaleCap),
		raised:   id.Zero(),
	}
}

func (s *InMemory) Phase(ctx context.Context) (phase.Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phase == nil {
		return phase.Phase{}, sentinel.ErrNotFound
	}
	return *s.phase, nil
}

func (s *InMemory) SetPhase(ctx context.Context, p phase.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = &p
	return nil
}

func (s *InMemory) Caps(ctx context.Context) (phase.Caps, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps, nil
}

func (s *InMemory) SetCaps(ctx context.Context, c phase.Caps) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = c
	return nil
}

func (s *InMemory) TotalSaleCap(ctx context.Context) (id.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id.CloneAmount(s.totalCap), nil
}

func (s *InMemory) SetTotalSaleCap(ctx context.Context, cap id.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCap = id.CloneAmount(cap)
	return nil
}

func (s *InMemory) Raised(ctx context.Context) (id.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id.CloneAmount(s.raised), nil
}

func (s *InMemory) SetRaised(ctx context.Context, raised id.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raised = id.CloneAmount(raised)
	return nil
}
