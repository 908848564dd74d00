// Package phase holds the sale's temporal state machine: the configured
// phase window, the per-purchase and aggregate caps, and the running total
// of native currency raised.
package phase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/sentinel"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

// Store persists the phase, caps, and raised counter.
type Store interface {
	// Phase returns sentinel.ErrNotFound when no phase was ever configured.
	Phase(ctx context.Context) (Phase, error)
	SetPhase(ctx context.Context, p Phase) error

	Caps(ctx context.Context) (Caps, error)
	SetCaps(ctx context.Context, c Caps) error

	TotalSaleCap(ctx context.Context) (id.Amount, error)
	SetTotalSaleCap(ctx context.Context, cap id.Amount) error

	Raised(ctx context.Context) (id.Amount, error)
	SetRaised(ctx context.Context, raised id.Amount) error
}

// AuthorityCheck is the slice of the authority module this service needs.
type AuthorityCheck interface {
	RequireAdmin(ctx context.Context) error
}

// AuditPublisher records phase and cap changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Controller guards phase and cap configuration and owns the raised-value
// accounting that enforces the total sale cap.
type Controller struct {
	store     Store
	authority AuthorityCheck
	runner    tx.Runner
	logger    *slog.Logger
	audit     AuditPublisher
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *Controller) {
		c.audit = publisher
	}
}

func New(store Store, authority AuthorityCheck, runner tx.Runner, opts ...Option) *Controller {
	c := &Controller{store: store, authority: authority, runner: runner}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetPhase configures the next sale window. Rejected when the rate is zero,
// the start is not strictly in the future, the window is inverted, or the
// previously configured window has not yet fully elapsed.
func (c *Controller) SetPhase(ctx context.Context, rate id.Amount, start, end time.Time, bonusRate uint64) error {
	if rate == nil || rate.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAmount, "rate must be positive")
	}
	return c.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := c.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if !start.After(now) {
			return dErrors.New(dErrors.CodePastTimestamp, "phase start must be strictly in the future")
		}
		if !start.Before(end) {
			return dErrors.New(dErrors.CodeInvalidWindow, "phase start must precede phase end")
		}

		current, err := c.store.Phase(ctx)
		switch {
		case err == nil:
			if !current.Elapsed(now) {
				return dErrors.New(dErrors.CodeInvalidWindow, "previous phase has not elapsed")
			}
		case errors.Is(err, sentinel.ErrNotFound):
			// First phase ever configured.
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load phase")
		}

		next := Phase{
			Rate:      id.CloneAmount(rate),
			BonusRate: bonusRate,
			StartTime: start,
			EndTime:   end,
		}
		if err := c.store.SetPhase(ctx, next); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store phase")
		}
		return c.emit(ctx, audit.Event{
			Action:    audit.ActionPhaseSet,
			Caller:    requestcontext.Caller(ctx),
			Rate:      rate.Dec(),
			BonusRate: bonusRate,
			StartTime: start,
			EndTime:   end,
		})
	})
}

// IsActive reports whether now is within the configured phase window.
func (c *Controller) IsActive(ctx context.Context) (bool, error) {
	p, err := c.store.Phase(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load phase")
	}
	return p.Active(requestcontext.Now(ctx)), nil
}

// ActivePhase returns the configured phase when it is currently active, or
// an InvalidWindow rejection. This is the sale engine's entry check.
func (c *Controller) ActivePhase(ctx context.Context) (Phase, error) {
	p, err := c.store.Phase(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Phase{}, dErrors.New(dErrors.CodeInvalidWindow, "no sale phase configured")
	}
	if err != nil {
		return Phase{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load phase")
	}
	if !p.Active(requestcontext.Now(ctx)) {
		return Phase{}, dErrors.New(dErrors.CodeInvalidWindow, "sale phase is not active")
	}
	return p, nil
}

// CurrentPhase exposes the most recently configured phase regardless of
// activity, for read accessors. Returns NotFound when never configured.
func (c *Controller) CurrentPhase(ctx context.Context) (Phase, error) {
	p, err := c.store.Phase(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Phase{}, dErrors.New(dErrors.CodeNotFound, "no sale phase configured")
	}
	if err != nil {
		return Phase{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load phase")
	}
	return p, nil
}

// SetIndividualCaps bounds a single purchase call. Takes effect immediately;
// no temporal restriction.
func (c *Controller) SetIndividualCaps(ctx context.Context, min, max id.Amount) error {
	if min == nil || max == nil {
		return dErrors.New(dErrors.CodeValidation, "caps are required")
	}
	if !max.IsZero() && min.Gt(max) {
		return dErrors.New(dErrors.CodeValidation, "minimum cap exceeds maximum cap")
	}
	return c.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := c.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		caps := Caps{Min: id.CloneAmount(min), Max: id.CloneAmount(max)}
		if err := c.store.SetCaps(ctx, caps); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store caps")
		}
		return c.emit(ctx, audit.Event{
			Action: audit.ActionCapsSet,
			Caller: requestcontext.Caller(ctx),
			MinCap: min.Dec(),
			MaxCap: max.Dec(),
		})
	})
}

// SetTotalSaleCap replaces the aggregate native-currency ceiling. Takes
// effect immediately. The raised counter is cumulative and is not reset:
// lowering the cap below raised simply blocks further purchases.
func (c *Controller) SetTotalSaleCap(ctx context.Context, cap id.Amount) error {
	if cap == nil {
		return dErrors.New(dErrors.CodeValidation, "cap is required")
	}
	return c.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := c.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		if err := c.store.SetTotalSaleCap(ctx, id.CloneAmount(cap)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store total sale cap")
		}
		return c.emit(ctx, audit.Event{
			Action: audit.ActionTotalSaleCapSet,
			Caller: requestcontext.Caller(ctx),
			Amount: cap.Dec(),
		})
	})
}

// Caps returns the per-purchase bounds.
func (c *Controller) Caps(ctx context.Context) (Caps, error) {
	caps, err := c.store.Caps(ctx)
	if err != nil {
		return Caps{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load caps")
	}
	return caps, nil
}

// TotalSaleCap returns the aggregate ceiling.
func (c *Controller) TotalSaleCap(ctx context.Context) (id.Amount, error) {
	cap, err := c.store.TotalSaleCap(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load total sale cap")
	}
	return cap, nil
}

// Raised returns cumulative native currency accepted by the sale engine.
func (c *Controller) Raised(ctx context.Context) (id.Amount, error) {
	raised, err := c.store.Raised(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load raised total")
	}
	return raised, nil
}

// ConsumeCap validates a purchase value against the per-call and aggregate
// caps and advances the raised counter. Must run inside the engine
// transaction; the sale engine calls it before moving any value.
//
// Caps are enforced on raised native-currency value, not on rate-adjusted
// token units: a rate change mid-sale does not retroactively change what the
// cap means.
func (c *Controller) ConsumeCap(ctx context.Context, value id.Amount) error {
	caps, err := c.store.Caps(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load caps")
	}
	if !caps.Allows(value) {
		return dErrors.New(dErrors.CodeCapExceeded, "purchase value outside individual caps")
	}

	raised, err := c.store.Raised(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load raised total")
	}
	total, err := c.store.TotalSaleCap(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load total sale cap")
	}
	next, err := id.AddAmount(raised, value)
	if err != nil {
		return err
	}
	// a zero total cap means unconfigured, consistent with Caps.Allows
	if !total.IsZero() && next.Gt(total) {
		return dErrors.New(dErrors.CodeCapExceeded, "total sale cap reached")
	}
	if err := c.store.SetRaised(ctx, next); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to advance raised total")
	}
	return nil
}

func (c *Controller) emit(ctx context.Context, event audit.Event) error {
	if c.audit == nil {
		return nil
	}
	if err := c.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
