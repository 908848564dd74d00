package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
)

var (
	holder  = id.Account("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	alice   = id.Account("0x1111111111111111111111111111111111111111")
	bob     = id.Account("0x2222222222222222222222222222222222222222")
	spender = id.Account("0x3333333333333333333333333333333333333333")
)

func TestInMemoryLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedger(holder, id.NewAmount(1000))

	require.NoError(t, ledger.Transfer(ctx, holder, alice, id.NewAmount(300)))

	got, err := ledger.BalanceOf(ctx, holder)
	require.NoError(t, err)
	assert.Equal(t, "700", got.Dec())

	got, err = ledger.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "300", got.Dec())
}

func TestInMemoryLedgerTransferExceedsBalance(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedger(holder, id.NewAmount(100))

	err := ledger.Transfer(ctx, holder, alice, id.NewAmount(101))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))

	// Unknown sender has a zero balance.
	err = ledger.Transfer(ctx, bob, alice, id.NewAmount(1))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
}

func TestInMemoryLedgerAllowance(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedger(holder, id.NewAmount(1000))

	err := ledger.TransferFrom(ctx, spender, holder, alice, id.NewAmount(10))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount), "no approval yet")

	require.NoError(t, ledger.Approve(ctx, holder, spender, id.NewAmount(50)))
	require.NoError(t, ledger.TransferFrom(ctx, spender, holder, alice, id.NewAmount(30)))

	got, err := ledger.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "30", got.Dec())

	// 20 of the allowance remains.
	err = ledger.TransferFrom(ctx, spender, holder, alice, id.NewAmount(21))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	require.NoError(t, ledger.TransferFrom(ctx, spender, holder, alice, id.NewAmount(20)))
}

func TestInMemoryLedgerPause(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedger(holder, id.NewAmount(1000))

	ledger.Pause()
	err := ledger.Transfer(ctx, holder, alice, id.NewAmount(1))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	ledger.Unpause()
	assert.NoError(t, ledger.Transfer(ctx, holder, alice, id.NewAmount(1)))
}

func TestInMemoryBank(t *testing.T) {
	ctx := context.Background()
	bank := NewInMemoryBank()

	got, err := bank.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	bank.Credit(alice, id.NewAmount(500))
	require.NoError(t, bank.Transfer(ctx, alice, bob, id.NewAmount(200)))

	got, err = bank.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "300", got.Dec())

	got, err = bank.BalanceOf(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "200", got.Dec())

	err = bank.Transfer(ctx, alice, bob, id.NewAmount(301))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
}
