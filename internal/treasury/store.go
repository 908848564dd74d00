package treasury

import (
	"context"

	id "salegate/pkg/domain"
)

// Store persists the collector wallet. Wallet returns sentinel.ErrNotFound
// until one has been set.
type Store interface {
	Wallet(ctx context.Context) (id.Account, error)
	SetWallet(ctx context.Context, wallet id.Account) error
}
