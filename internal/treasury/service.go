// Package treasury owns the collector wallet and the withdrawal guard: sale
// proceeds and surplus assets leave custody only toward the wallet, and
// never out of amounts the lock ledger has promised.
package treasury

import (
	"context"
	"errors"
	"log/slog"

	"salegate/internal/platform/metrics"
	"salegate/internal/token"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/sentinel"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

// AuthorityCheck is the slice of the authority module this service needs.
type AuthorityCheck interface {
	RequireAdmin(ctx context.Context) error
}

// LockedTotal exposes the engine-wide locked aggregate.
type LockedTotal interface {
	TotalLocked(ctx context.Context) (id.Amount, error)
}

// AuditPublisher records wallet changes and withdrawals.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service guards outbound value movement.
type Service struct {
	store     Store
	authority AuthorityCheck
	locked    LockedTotal
	runner    tx.Runner
	tokens    token.Ledger
	bank      token.Bank
	custody   id.Account

	logger  *slog.Logger
	audit   AuditPublisher
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, authority AuthorityCheck, locked LockedTotal, runner tx.Runner, tokens token.Ledger, bank token.Bank, custody id.Account, opts ...Option) *Service {
	s := &Service{
		store:     store,
		authority: authority,
		locked:    locked,
		runner:    runner,
		tokens:    tokens,
		bank:      bank,
		custody:   custody,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wallet returns the collector wallet.
func (s *Service) Wallet(ctx context.Context) (id.Account, error) {
	wallet, err := s.store.Wallet(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotFound, "collector wallet is not configured")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read collector wallet")
	}
	return wallet, nil
}

// SetWallet points future proceeds and withdrawals at a new collector
// wallet.
func (s *Service) SetWallet(ctx context.Context, wallet id.Account) error {
	if wallet.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "wallet is required")
	}
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		if err := s.store.SetWallet(ctx, wallet); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set collector wallet")
		}
		return s.emit(ctx, audit.Event{
			Action:  audit.ActionWalletChanged,
			Account: wallet,
			Caller:  requestcontext.Caller(ctx),
		})
	})
}

// WithdrawToken moves surplus asset out of custody to the collector wallet.
// Surplus is the custody balance minus the locked aggregate; withdrawing
// into promised amounts is rejected.
func (s *Service) WithdrawToken(ctx context.Context, amount id.Amount) error {
	if amount == nil || amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAmount, "withdrawal amount must be positive")
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		wallet, err := s.Wallet(ctx)
		if err != nil {
			return err
		}
		balance, err := s.tokens.BalanceOf(ctx, s.custody)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read custody balance")
		}
		locked, err := s.locked.TotalLocked(ctx)
		if err != nil {
			return err
		}
		surplus, err := id.SubAmount(balance, locked)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "locked aggregate exceeds custody balance")
		}
		if amount.Gt(surplus) {
			return dErrors.New(dErrors.CodeInvalidAmount, "withdrawal would cut into locked amounts")
		}
		if err := s.tokens.Transfer(ctx, s.custody, wallet, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to withdraw tokens")
		}
		return s.emit(ctx, audit.Event{
			Action:  audit.ActionTokenWithdrawn,
			Account: wallet,
			Caller:  requestcontext.Caller(ctx),
			Amount:  amount.Dec(),
		})
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementWithdrawal("token")
	return nil
}

// WithdrawEther moves native currency held in custody to the collector
// wallet. The sale forwards proceeds as they arrive, so this drains only
// value sent to custody out of band.
func (s *Service) WithdrawEther(ctx context.Context, amount id.Amount) error {
	if amount == nil || amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAmount, "withdrawal amount must be positive")
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		wallet, err := s.Wallet(ctx)
		if err != nil {
			return err
		}
		balance, err := s.bank.BalanceOf(ctx, s.custody)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read custody balance")
		}
		if amount.Gt(balance) {
			return dErrors.New(dErrors.CodeInvalidAmount, "withdrawal exceeds custody balance")
		}
		if err := s.bank.Transfer(ctx, s.custody, wallet, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to withdraw ether")
		}
		return s.emit(ctx, audit.Event{
			Action:  audit.ActionEtherWithdrawn,
			Account: wallet,
			Caller:  requestcontext.Caller(ctx),
			Amount:  amount.Dec(),
		})
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementWithdrawal("ether")
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
