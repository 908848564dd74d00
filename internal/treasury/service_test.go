package treasury_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"salegate/internal/authority"
	authorityStore "salegate/internal/authority/store"
	"salegate/internal/ledger"
	ledgerStore "salegate/internal/ledger/store"
	"salegate/internal/token"
	"salegate/internal/treasury"
	treasuryStore "salegate/internal/treasury/store"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

type TreasurySuite struct {
	suite.Suite
	service *treasury.Service
	locks   *ledger.Service
	tokens  *token.InMemoryLedger
	bank    *token.InMemoryBank

	admin     id.Account
	custody   id.Account
	collector id.Account
	now       time.Time
}

func TestTreasurySuite(t *testing.T) {
	suite.Run(t, new(TreasurySuite))
}

func (s *TreasurySuite) SetupTest() {
	s.admin = id.Account("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	s.custody = id.Account("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	s.collector = id.Account("0xffffffffffffffffffffffffffffffffffffffff")
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	runner := tx.NewSingleWriter()
	auth := authority.New(authorityStore.NewInMemory(), runner)
	s.Require().NoError(auth.Bootstrap(context.Background(), s.admin))

	s.tokens = token.NewInMemoryLedger(s.custody, id.NewAmount(1000))
	s.bank = token.NewInMemoryBank()
	s.locks = ledger.New(ledgerStore.NewInMemory(), auth, runner, s.tokens, s.custody)
	s.service = treasury.New(treasuryStore.NewInMemory(s.collector), auth, s.locks, runner, s.tokens, s.bank, s.custody)
}

func (s *TreasurySuite) asAdmin() context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	return requestcontext.WithCaller(ctx, s.admin)
}

func (s *TreasurySuite) TestWallet() {
	s.Run("returns the configured wallet", func() {
		wallet, err := s.service.Wallet(context.Background())
		s.NoError(err)
		s.Equal(s.collector, wallet)
	})

	s.Run("SetWallet repoints it", func() {
		replacement := id.Account("0x9999999999999999999999999999999999999999")
		s.NoError(s.service.SetWallet(s.asAdmin(), replacement))

		wallet, err := s.service.Wallet(context.Background())
		s.NoError(err)
		s.Equal(replacement, wallet)
	})

	s.Run("SetWallet rejects a zero wallet", func() {
		err := s.service.SetWallet(s.asAdmin(), id.Account(""))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("SetWallet rejects a non-admin caller", func() {
		ctx := requestcontext.WithCaller(context.Background(), s.collector)
		err := s.service.SetWallet(ctx, s.collector)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *TreasurySuite) TestWalletUnconfigured() {
	runner := tx.NewSingleWriter()
	auth := authority.New(authorityStore.NewInMemory(), runner)
	s.Require().NoError(auth.Bootstrap(context.Background(), s.admin))
	service := treasury.New(treasuryStore.NewInMemory(""), auth, s.locks, runner, s.tokens, s.bank, s.custody)

	_, err := service.Wallet(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = service.WithdrawToken(s.asAdmin(), id.NewAmount(1))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *TreasurySuite) TestWithdrawToken() {
	// 300 of the 1000 custody balance is promised under locks.
	s.Require().NoError(s.locks.Lock(s.asAdmin(), []ledger.LockRequest{{
		Account:  id.Account("0x1111111111111111111111111111111111111111"),
		Reason:   "team",
		Amount:   id.NewAmount(300),
		Validity: s.now.Add(24 * time.Hour),
	}}))

	s.Run("withdraws surplus to the collector wallet", func() {
		s.NoError(s.service.WithdrawToken(s.asAdmin(), id.NewAmount(700)))

		balance, err := s.tokens.BalanceOf(context.Background(), s.collector)
		s.NoError(err)
		s.Equal("700", balance.Dec())
	})

	s.Run("rejects a withdrawal cutting into locked amounts", func() {
		err := s.service.WithdrawToken(s.asAdmin(), id.NewAmount(1))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))

		balance, err := s.tokens.BalanceOf(context.Background(), s.custody)
		s.NoError(err)
		s.Equal("300", balance.Dec(), "locked amounts stay in custody")
	})

	s.Run("rejects a zero amount", func() {
		err := s.service.WithdrawToken(s.asAdmin(), id.Zero())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("rejects a non-admin caller", func() {
		ctx := requestcontext.WithCaller(context.Background(), s.collector)
		err := s.service.WithdrawToken(ctx, id.NewAmount(1))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *TreasurySuite) TestWithdrawEther() {
	s.bank.Credit(s.custody, id.NewAmount(50))

	s.Run("drains out-of-band value to the collector wallet", func() {
		s.NoError(s.service.WithdrawEther(s.asAdmin(), id.NewAmount(30)))

		balance, err := s.bank.BalanceOf(context.Background(), s.collector)
		s.NoError(err)
		s.Equal("30", balance.Dec())
	})

	s.Run("rejects more than the custody balance", func() {
		err := s.service.WithdrawEther(s.asAdmin(), id.NewAmount(21))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("rejects a zero amount", func() {
		err := s.service.WithdrawEther(s.asAdmin(), id.Zero())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("rejects a non-admin caller", func() {
		ctx := requestcontext.WithCaller(context.Background(), s.collector)
		err := s.service.WithdrawEther(ctx, id.NewAmount(1))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
