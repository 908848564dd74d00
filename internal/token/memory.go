package token

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
)

// InMemoryLedger is a minimal fungible ledger used for wiring and tests. The
// production deployment points the engine at the real asset ledger instead.
type InMemoryLedger struct {
	mu         sync.RWMutex
	balances   map[id.Account]*uint256.Int
	allowances map[id.Account]map[id.Account]*uint256.Int
	paused     bool
}

// NewInMemoryLedger creates a ledger crediting the full initial supply to the
// holder account.
func NewInMemoryLedger(holder id.Account, supply id.Amount) *InMemoryLedger {
	l := &InMemoryLedger{
		balances:   make(map[id.Account]*uint256.Int),
		allowances: make(map[id.Account]map[id.Account]*uint256.Int),
	}
	l.balances[holder] = id.CloneAmount(supply)
	return l
}

func (l *InMemoryLedger) BalanceOf(ctx context.Context, account id.Account) (id.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[account]; ok {
		return id.CloneAmount(b), nil
	}
	return id.Zero(), nil
}

func (l *InMemoryLedger) Transfer(ctx context.Context, from, to id.Account, amount id.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, amount)
}

func (l *InMemoryLedger) TransferFrom(ctx context.Context, spender, from, to id.Account, amount id.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowanceLocked(from, spender)
	if amount.Gt(allowance) {
		return dErrors.New(dErrors.CodeInvalidAmount, "transfer exceeds allowance")
	}
	if err := l.transferLocked(from, to, amount); err != nil {
		return err
	}
	l.allowances[from][spender] = new(uint256.Int).Sub(allowance, amount)
	return nil
}

func (l *InMemoryLedger) Approve(ctx context.Context, owner, spender id.Account, amount id.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[id.Account]*uint256.Int)
	}
	l.allowances[owner][spender] = id.CloneAmount(amount)
	return nil
}

// Pause gates all transfers, mirroring the pausable behavior of the external
// asset ledger so tests can exercise transfer failure as a hard rejection.
func (l *InMemoryLedger) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = true
}

// Unpause re-enables transfers.
func (l *InMemoryLedger) Unpause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = false
}

func (l *InMemoryLedger) transferLocked(from, to id.Account, amount id.Amount) error {
	if l.paused {
		return dErrors.New(dErrors.CodeConflict, "ledger is paused")
	}
	balance, ok := l.balances[from]
	if !ok || amount.Gt(balance) {
		return dErrors.New(dErrors.CodeInvalidAmount, "transfer exceeds balance")
	}
	l.balances[from] = new(uint256.Int).Sub(balance, amount)
	if l.balances[to] == nil {
		l.balances[to] = uint256.NewInt(0)
	}
	l.balances[to] = new(uint256.Int).Add(l.balances[to], amount)
	return nil
}

func (l *InMemoryLedger) allowanceLocked(owner, spender id.Account) *uint256.Int {
	if m := l.allowances[owner]; m != nil {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return uint256.NewInt(0)
}

// InMemoryBank is the native-currency counterpart of InMemoryLedger.
type InMemoryBank struct {
	mu       sync.RWMutex
	balances map[id.Account]*uint256.Int
}

// NewInMemoryBank creates an empty bank. Tests credit accounts explicitly.
func NewInMemoryBank() *InMemoryBank {
	return &InMemoryBank{balances: make(map[id.Account]*uint256.Int)}
}

// Credit adds funds to an account. Test and bootstrap helper.
func (b *InMemoryBank) Credit(account id.Account, amount id.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[account] == nil {
		b.balances[account] = uint256.NewInt(0)
	}
	b.balances[account] = new(uint256.Int).Add(b.balances[account], amount)
}

func (b *InMemoryBank) BalanceOf(ctx context.Context, account id.Account) (id.Amount, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.balances[account]; ok {
		return id.CloneAmount(v), nil
	}
	return id.Zero(), nil
}

func (b *InMemoryBank) Transfer(ctx context.Context, from, to id.Account, amount id.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	balance, ok := b.balances[from]
	if !ok || amount.Gt(balance) {
		return dErrors.New(dErrors.CodeInvalidAmount, "transfer exceeds balance")
	}
	b.balances[from] = new(uint256.Int).Sub(balance, amount)
	if b.balances[to] == nil {
		b.balances[to] = uint256.NewInt(0)
	}
	b.balances[to] = new(uint256.Int).Add(b.balances[to], amount)
	return nil
}
