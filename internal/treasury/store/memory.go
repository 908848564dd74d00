package store

import (
	"context"
	"sync"

	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
)

// InMemory holds the collector wallet.
type InMemory struct {
	mu     sync.RWMutex
	wallet id.Account
}

func NewInMemory(wallet id.Account) *InMemory {
	return &InMemory{wallet: wallet}
}

func (s *InMemory) Wallet(_ context.Context) (id.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet.IsZero() {
		return "", sentinel.ErrNotFound
	}
	return s.wallet, nil
}

func (s *InMemory) SetWallet(_ context.Context, wallet id.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = wallet
	return nil
}
