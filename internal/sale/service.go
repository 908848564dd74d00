// Package sale implements the purchase path: a whitelisted buyer pays native
// currency during an active phase and receives tokens immediately, with the
// phase bonus held under a time lock until the bonus release delay after the
// phase ends.
package sale

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"salegate/internal/ledger"
	"salegate/internal/phase"
	"salegate/internal/platform/metrics"
	"salegate/internal/token"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

// DefaultBonusReleaseDelay is how long after its phase ends a purchase bonus
// stays locked.
const DefaultBonusReleaseDelay = 365 * 24 * time.Hour

// PhaseGate is the slice of the phase controller the engine needs.
type PhaseGate interface {
	ActivePhase(ctx context.Context) (phase.Phase, error)
	ConsumeCap(ctx context.Context, value id.Amount) error
}

// WhitelistCheck is the slice of the whitelist module the engine needs.
type WhitelistCheck interface {
	IsWhitelisted(ctx context.Context, account id.Account) (bool, error)
}

// BonusLocker places the bonus hold inside the purchase transaction.
type BonusLocker interface {
	LockOrIncrease(ctx context.Context, req ledger.LockRequest) error
}

// WalletSource resolves the collector wallet proceeds are forwarded to.
type WalletSource interface {
	Wallet(ctx context.Context) (id.Account, error)
}

// AuditPublisher records purchases.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Receipt summarizes an accepted purchase.
type Receipt struct {
	Tokens id.Amount
	Bonus  id.Amount
}

// Engine executes purchases atomically: admission, cap accounting, token
// delivery, bonus lock and value forwarding commit together or not at all.
type Engine struct {
	phases    PhaseGate
	whitelist WhitelistCheck
	locks     BonusLocker
	wallet    WalletSource
	runner    tx.Runner
	tokens    token.Ledger
	bank      token.Bank
	custody   id.Account

	bonusDelay time.Duration
	logger     *slog.Logger
	audit      AuditPublisher
	metrics    *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Engine) {
		e.audit = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithBonusReleaseDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.bonusDelay = d
	}
}

func New(phases PhaseGate, whitelist WhitelistCheck, locks BonusLocker, wallet WalletSource, runner tx.Runner, tokens token.Ledger, bank token.Bank, custody id.Account, opts ...Option) *Engine {
	e := &Engine{
		phases:     phases,
		whitelist:  whitelist,
		locks:      locks,
		wallet:     wallet,
		runner:     runner,
		tokens:     tokens,
		bank:       bank,
		custody:    custody,
		bonusDelay: DefaultBonusReleaseDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Buy processes a purchase of value native units for buyer. The buyer must
// be whitelisted and a phase must be active; the call value must satisfy the
// per-call caps and fit under the total sale cap. Tokens are delivered
// immediately at the phase rate, the bonus is locked until bonusDelay after
// the phase end, and the value is forwarded through custody to the collector
// wallet.
func (e *Engine) Buy(ctx context.Context, buyer id.Account, value id.Amount) (Receipt, error) {
	ctx, span := otel.Tracer("salegate/sale").Start(ctx, "sale.buy")
	defer span.End()
	start := time.Now()

	receipt, err := e.buy(ctx, buyer, value)
	e.metrics.ObservePurchaseLatency(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		e.metrics.IncrementPurchase("rejected")
		return Receipt{}, err
	}
	span.SetAttributes(
		attribute.String("buyer", buyer.String()),
		attribute.String("tokens", receipt.Tokens.Dec()),
	)
	e.metrics.IncrementPurchase("accepted")
	return receipt, nil
}

func (e *Engine) buy(ctx context.Context, buyer id.Account, value id.Amount) (Receipt, error) {
	if buyer.IsZero() {
		return Receipt{}, dErrors.New(dErrors.CodeValidation, "buyer is required")
	}
	if value == nil || value.IsZero() {
		return Receipt{}, dErrors.New(dErrors.CodeInvalidAmount, "purchase value must be positive")
	}

	var receipt Receipt
	err := e.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := e.phases.ActivePhase(ctx)
		if err != nil {
			return err
		}
		ok, err := e.whitelist.IsWhitelisted(ctx, buyer)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "buyer is not whitelisted")
		}

		tokens, err := id.MulRate(value, p.Rate)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidAmount, "token amount overflow")
		}
		// the bonus is on top of the delivered amount, held back under a lock
		bonus, err := id.BonusOf(tokens, p.BonusRate)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidAmount, "bonus amount overflow")
		}

		// Resolve the collector and verify the buyer can pay before any
		// state moves. The asset transfers below run against an external
		// ledger the transaction cannot roll back, so every rejection has
		// to happen while the purchase is still side-effect free.
		collector, err := e.wallet.Wallet(ctx)
		if err != nil {
			return err
		}
		funds, err := e.bank.BalanceOf(ctx, buyer)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read buyer balance")
		}
		if funds.Lt(value) {
			return dErrors.New(dErrors.CodeInvalidAmount, "purchase value exceeds buyer balance")
		}
		if err := e.phases.ConsumeCap(ctx, value); err != nil {
			return err
		}

		if err := e.bank.Transfer(ctx, buyer, e.custody, value); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to collect purchase value")
		}
		if err := e.tokens.Transfer(ctx, e.custody, buyer, tokens); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver tokens")
		}
		if !bonus.IsZero() {
			if err := e.locks.LockOrIncrease(ctx, ledger.LockRequest{
				Account:  buyer,
				Reason:   bonusReason(p),
				Amount:   bonus,
				Validity: p.EndTime.Add(e.bonusDelay),
			}); err != nil {
				return err
			}
		}
		if err := e.bank.Transfer(ctx, e.custody, collector, value); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to forward purchase value")
		}

		receipt = Receipt{Tokens: tokens, Bonus: bonus}
		if e.audit == nil {
			return nil
		}
		if err := e.audit.Emit(ctx, audit.Event{
			Action:      audit.ActionPurchased,
			Account:     buyer,
			Caller:      requestcontext.Caller(ctx),
			Value:       value.Dec(),
			TokenAmount: tokens.Dec(),
			BonusAmount: bonus.Dec(),
			Rate:        p.Rate.Dec(),
			BonusRate:   p.BonusRate,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	if !receipt.Bonus.IsZero() {
		e.metrics.IncrementLocksCreated("bonus", 1)
	}
	if e.logger != nil {
		e.logger.InfoContext(ctx, "purchase accepted",
			slog.String("buyer", buyer.String()),
			slog.String("value", value.Dec()),
			slog.String("tokens", receipt.Tokens.Dec()),
			slog.String("bonus", receipt.Bonus.Dec()))
	}
	return receipt, nil
}

// bonusReason keys the bonus hold to its phase so repeat purchases in one
// phase accrue onto a single record.
func bonusReason(p phase.Phase) string {
	return fmt.Sprintf("phase-bonus-%d", p.StartTime.Unix())
}
