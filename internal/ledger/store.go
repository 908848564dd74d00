package ledger

import (
	"context"

	id "salegate/pkg/domain"
)

// Store persists lock records and the engine-wide locked aggregate.
//
// Get and ListByAccount return claimed records as well; callers filter.
// Create returns sentinel.ErrConflict when an unclaimed record already
// holds the key, and silently replaces a claimed one. Iteration over an
// account's records is in creation order.
type Store interface {
	Get(ctx context.Context, account id.Account, reason string) (*LockRecord, error)
	Create(ctx context.Context, rec *LockRecord) error
	Update(ctx context.Context, rec *LockRecord) error
	ListByAccount(ctx context.Context, account id.Account) ([]*LockRecord, error)

	TotalLocked(ctx context.Context) (id.Amount, error)
	SetTotalLocked(ctx context.Context, total id.Amount) error
}
