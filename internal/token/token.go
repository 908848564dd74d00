// Package token defines the ports to the external value ledgers: the
// fungible-asset ledger the sale distributes, and the native-currency bank
// purchases are paid in.
//
// The asset ledger itself (mint/transfer/approve semantics, balance storage)
// is an external collaborator. The engine only consumes this narrow surface
// and treats any transfer failure as a hard rejection of the triggering call.
package token

import (
	"context"

	id "salegate/pkg/domain"
)

// Ledger is the fungible-asset collaborator.
type Ledger interface {
	BalanceOf(ctx context.Context, account id.Account) (id.Amount, error)
	Transfer(ctx context.Context, from, to id.Account, amount id.Amount) error
	TransferFrom(ctx context.Context, spender, from, to id.Account, amount id.Amount) error
	Approve(ctx context.Context, owner, spender id.Account, amount id.Amount) error
}

// Bank is the native-currency collaborator. Purchases move value from the
// buyer through the engine account to the collector wallet; withdrawals move
// surplus out of the engine account.
type Bank interface {
	BalanceOf(ctx context.Context, account id.Account) (id.Amount, error)
	Transfer(ctx context.Context, from, to id.Account, amount id.Amount) error
}
