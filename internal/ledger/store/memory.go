package store

import (
	"context"
	"sync"

	"salegate/internal/ledger"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
)

type accountLocks struct {
	byReason map[string]*ledger.LockRecord
	reasons  []string // creation order, one entry per reason key
}

// InMemory keeps lock records per account with stable reason ordering.
// A reason keeps its original position when re-locked after claim.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.Account]*accountLocks
	total    id.Amount
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[id.Account]*accountLocks),
		total:    id.Zero(),
	}
}

func (s *InMemory) Get(_ context.Context, account id.Account, reason string) (*ledger.LockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	al, ok := s.accounts[account]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec, ok := al.byReason[reason]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *InMemory) Create(_ context.Context, rec *ledger.LockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	al, ok := s.accounts[rec.Account]
	if !ok {
		al = &accountLocks{byReason: make(map[string]*ledger.LockRecord)}
		s.accounts[rec.Account] = al
	}
	if existing, ok := al.byReason[rec.Reason]; ok {
		if !existing.Claimed {
			return sentinel.ErrConflict
		}
		// reason slot already ordered, replace in place
		al.byReason[rec.Reason] = cloneRecord(rec)
		return nil
	}
	al.byReason[rec.Reason] = cloneRecord(rec)
	al.reasons = append(al.reasons, rec.Reason)
	return nil
}

func (s *InMemory) Update(_ context.Context, rec *ledger.LockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	al, ok := s.accounts[rec.Account]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := al.byReason[rec.Reason]; !ok {
		return sentinel.ErrNotFound
	}
	al.byReason[rec.Reason] = cloneRecord(rec)
	return nil
}

func (s *InMemory) ListByAccount(_ context.Context, account id.Account) ([]*ledger.LockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	al, ok := s.accounts[account]
	if !ok {
		return nil, nil
	}
	out := make([]*ledger.LockRecord, 0, len(al.reasons))
	for _, reason := range al.reasons {
		out = append(out, cloneRecord(al.byReason[reason]))
	}
	return out, nil
}

func (s *InMemory) TotalLocked(_ context.Context) (id.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id.CloneAmount(s.total), nil
}

func (s *InMemory) SetTotalLocked(_ context.Context, total id.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = id.CloneAmount(total)
	return nil
}

func cloneRecord(rec *ledger.LockRecord) *ledger.LockRecord {
	cp := *rec
	cp.Amount = id.CloneAmount(rec.Amount)
	return &cp
}
