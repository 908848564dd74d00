// Package vesting realizes scheduled grants as staggered lock records: a
// grant is four locks with equally spaced maturities, released by the same
// claim path purchase bonuses use.
package vesting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"salegate/internal/ledger"
	"salegate/internal/platform/metrics"
	"salegate/internal/token"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

// TrancheCount is the number of staggered locks a vesting grant creates.
const TrancheCount = 4

// DefaultTrancheInterval spaces the maturities of a grant's tranches.
const DefaultTrancheInterval = 90 * 24 * time.Hour

// AuthorityCheck is the slice of the authority module this service needs.
type AuthorityCheck interface {
	RequireAdmin(ctx context.Context) error
}

// LockLedger is the slice of the lock ledger this service needs. CreateLock
// runs inside the grant transaction; Unlock opens its own.
type LockLedger interface {
	CreateLock(ctx context.Context, req ledger.LockRequest) error
	Unlock(ctx context.Context, account id.Account) (id.Amount, error)
}

// AuditPublisher records grants and manual deliveries.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Releaser creates vesting grants and drives their release.
type Releaser struct {
	authority AuthorityCheck
	locks     LockLedger
	runner    tx.Runner
	tokens    token.Ledger
	custody   id.Account

	interval time.Duration
	logger   *slog.Logger
	audit    AuditPublisher
	metrics  *metrics.Metrics
}

type Option func(*Releaser)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Releaser) {
		r.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(r *Releaser) {
		r.audit = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Releaser) {
		r.metrics = m
	}
}

func WithTrancheInterval(d time.Duration) Option {
	return func(r *Releaser) {
		r.interval = d
	}
}

func New(authority AuthorityCheck, locks LockLedger, runner tx.Runner, tokens token.Ledger, custody id.Account, opts ...Option) *Releaser {
	r := &Releaser{
		authority: authority,
		locks:     locks,
		runner:    runner,
		tokens:    tokens,
		custody:   custody,
		interval:  DefaultTrancheInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Grant is one account's share of a vesting call. Amount is the per-tranche
// amount: the account receives it once per tranche, TrancheCount times in
// total.
type Grant struct {
	Account id.Account
	Amount  id.Amount
}

// VestDedicatedTokens creates a vesting grant per entry: TrancheCount locks
// with maturities spaced one interval apart starting one interval after the
// call, all tagged with a fresh grant id so grants never collide. The whole
// call is atomic.
func (r *Releaser) VestDedicatedTokens(ctx context.Context, grants []Grant) error {
	if len(grants) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one grant is required")
	}
	for _, g := range grants {
		if g.Account.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "account is required")
		}
		if g.Amount == nil || g.Amount.IsZero() {
			return dErrors.New(dErrors.CodeInvalidAmount, "grant amount must be positive")
		}
	}
	tag := uuid.NewString()
	return r.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		for _, g := range grants {
			for tranche := 1; tranche <= TrancheCount; tranche++ {
				if err := r.locks.CreateLock(ctx, ledger.LockRequest{
					Account:  g.Account,
					Reason:   fmt.Sprintf("vest-%s-%d", tag, tranche),
					Amount:   g.Amount,
					Validity: now.Add(time.Duration(tranche) * r.interval),
				}); err != nil {
					return err
				}
			}
			if err := r.emit(ctx, audit.Event{
				Action:  audit.ActionTokensVested,
				Account: g.Account,
				Caller:  requestcontext.Caller(ctx),
				Reason:  tag,
				Amount:  g.Amount.Dec(),
			}); err != nil {
				return err
			}
		}
		r.metrics.IncrementLocksCreated("vesting", len(grants)*TrancheCount)
		return nil
	})
}

// Delivery reconciles one purchase that happened outside the sale engine:
// Amount is transferred immediately, Bonus is locked.
type Delivery struct {
	Account id.Account
	Amount  id.Amount
	Bonus   id.Amount
}

// DeliverPurchasedTokensManually settles off-engine purchases: each entry's
// amount transfers out of custody at once and its bonus locks until
// releaseTime. The whole call is atomic.
func (r *Releaser) DeliverPurchasedTokensManually(ctx context.Context, deliveries []Delivery, releaseTime time.Time) error {
	if len(deliveries) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one delivery is required")
	}
	for _, d := range deliveries {
		if d.Account.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "account is required")
		}
		if d.Amount == nil || d.Amount.IsZero() {
			return dErrors.New(dErrors.CodeInvalidAmount, "delivery amount must be positive")
		}
	}
	tag := uuid.NewString()
	return r.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		if !releaseTime.After(requestcontext.Now(ctx)) {
			return dErrors.New(dErrors.CodePastTimestamp, "release time must be in the future")
		}
		for _, d := range deliveries {
			if err := r.tokens.Transfer(ctx, r.custody, d.Account, d.Amount); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver tokens")
			}
			if d.Bonus != nil && !d.Bonus.IsZero() {
				if err := r.locks.CreateLock(ctx, ledger.LockRequest{
					Account:  d.Account,
					Reason:   fmt.Sprintf("manual-bonus-%s", tag),
					Amount:   d.Bonus,
					Validity: releaseTime,
				}); err != nil {
					return err
				}
			}
			if err := r.emit(ctx, audit.Event{
				Action:      audit.ActionTokensDelivered,
				Account:     d.Account,
				Caller:      requestcontext.Caller(ctx),
				Reason:      tag,
				TokenAmount: d.Amount.Dec(),
				BonusAmount: bonusDec(d.Bonus),
				Validity:    releaseTime,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReleaseTokens claims the matured locks of each account. Accounts with
// nothing matured are skipped rather than rejected.
func (r *Releaser) ReleaseTokens(ctx context.Context, accounts []id.Account) error {
	if len(accounts) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one account is required")
	}
	for _, account := range accounts {
		released, err := r.locks.Unlock(ctx, account)
		if err != nil {
			return err
		}
		if r.logger != nil && !released.IsZero() {
			r.logger.InfoContext(ctx, "vested tokens released",
				slog.String("account", account.String()),
				slog.String("amount", released.Dec()))
		}
	}
	return nil
}

func bonusDec(a id.Amount) string {
	if a == nil {
		return "0"
	}
	return a.Dec()
}

func (r *Releaser) emit(ctx context.Context, event audit.Event) error {
	if r.audit == nil {
		return nil
	}
	if err := r.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
