// Package ledger implements the lock ledger: time-locked holds on amounts
// of the sale asset, keyed by (account, reason). Locked amounts stay in the
// engine custody account until released; the engine-wide aggregate backs the
// treasury withdrawal guard.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

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

// AuditPublisher records ledger mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LockDetail is the read-model row returned by Details.
type LockDetail struct {
	Reason   string
	Amount   id.Amount
	Validity time.Time
	Claimed  bool
}

// Service owns lock records and the locked aggregate. Admin-facing methods
// open their own transaction; the engine-internal methods (CreateLock,
// LockOrIncrease) assume the caller already holds one.
type Service struct {
	store     Store
	authority AuthorityCheck
	runner    tx.Runner
	tokens    token.Ledger
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

func New(store Store, authority AuthorityCheck, runner tx.Runner, tokens token.Ledger, custody id.Account, opts ...Option) *Service {
	s := &Service{
		store:     store,
		authority: authority,
		runner:    runner,
		tokens:    tokens,
		custody:   custody,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockRequest is one hold to place. All requests in a Lock call succeed or
// none do.
type LockRequest struct {
	Account  id.Account
	Reason   string
	Amount   id.Amount
	Validity time.Time
}

// Lock places one hold per request. The whole batch is validated before any
// record is written: a zero amount, a validity at or before the call time,
// an existing unclaimed record under the same key, or an aggregate exceeding
// the custody balance all reject the entire call.
func (s *Service) Lock(ctx context.Context, reqs []LockRequest) error {
	if len(reqs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one lock is required")
	}
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		// every rejectable condition is checked before the first write so a
		// bad request leaves the ledger untouched
		now := requestcontext.Now(ctx)
		needed := id.Zero()
		seen := make(map[id.Account]map[string]struct{}, len(reqs))
		for _, req := range reqs {
			if err := s.validateRequest(req, now); err != nil {
				return err
			}
			if _, dup := seen[req.Account][req.Reason]; dup {
				return dErrors.New(dErrors.CodeConflict, "duplicate lock key in request")
			}
			if seen[req.Account] == nil {
				seen[req.Account] = make(map[string]struct{})
			}
			seen[req.Account][req.Reason] = struct{}{}

			existing, err := s.store.Get(ctx, req.Account, req.Reason)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lock")
			}
			if err == nil && !existing.Claimed {
				return dErrors.New(dErrors.CodeConflict, "an unclaimed lock already exists for this reason")
			}
			if needed, err = id.AddAmount(needed, req.Amount); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInvalidAmount, "lock amount overflow")
			}
		}
		if _, err := s.grownTotal(ctx, needed); err != nil {
			return err
		}
		for _, req := range reqs {
			if err := s.CreateLock(ctx, req); err != nil {
				return err
			}
		}
		s.metrics.IncrementLocksCreated("admin", len(reqs))
		return nil
	})
}

func (s *Service) validateRequest(req LockRequest, now time.Time) error {
	if req.Account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	if req.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if req.Amount == nil || req.Amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAmount, "lock amount must be positive")
	}
	if !req.Validity.After(now) {
		return dErrors.New(dErrors.CodePastTimestamp, "lock validity must be in the future")
	}
	return nil
}

// CreateLock writes a single record and grows the aggregate. It must run
// inside the caller's transaction and after request validation; the sale and
// vesting engines call it directly.
func (s *Service) CreateLock(ctx context.Context, req LockRequest) error {
	total, err := s.grownTotal(ctx, req.Amount)
	if err != nil {
		return err
	}
	rec := &LockRecord{
		Account:   req.Account,
		Reason:    req.Reason,
		Amount:    id.CloneAmount(req.Amount),
		Validity:  req.Validity,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "an unclaimed lock already exists for this reason")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create lock")
	}
	if err := s.store.SetTotalLocked(ctx, total); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update locked aggregate")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionLocked,
		Account:  req.Account,
		Caller:   requestcontext.Caller(ctx),
		Reason:   req.Reason,
		Amount:   req.Amount.Dec(),
		Validity: req.Validity,
	})
}

// LockOrIncrease is the purchase-bonus path: repeated purchases within one
// phase accrue onto the same record instead of colliding on its key. Must
// run inside the caller's transaction.
func (s *Service) LockOrIncrease(ctx context.Context, req LockRequest) error {
	existing, err := s.store.Get(ctx, req.Account, req.Reason)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return s.CreateLock(ctx, req)
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lock")
	}
	if existing.Claimed {
		return s.CreateLock(ctx, req)
	}
	return s.increase(ctx, existing, req.Amount, audit.ActionLocked)
}

// IncreaseLockAmount grows an unclaimed, unexpired lock.
func (s *Service) IncreaseLockAmount(ctx context.Context, account id.Account, reason string, amount id.Amount) error {
	if amount == nil || amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAmount, "increase amount must be positive")
	}
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		rec, err := s.activeLock(ctx, account, reason)
		if err != nil {
			return err
		}
		return s.increase(ctx, rec, amount, audit.ActionLockIncreased)
	})
}

func (s *Service) increase(ctx context.Context, rec *LockRecord, amount id.Amount, action audit.Action) error {
	total, err := s.grownTotal(ctx, amount)
	if err != nil {
		return err
	}
	newAmount, err := id.AddAmount(rec.Amount, amount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidAmount, "lock amount overflow")
	}
	rec.Amount = newAmount
	if err := s.store.Update(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update lock")
	}
	if err := s.store.SetTotalLocked(ctx, total); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update locked aggregate")
	}
	return s.emit(ctx, audit.Event{
		Action:   action,
		Account:  rec.Account,
		Caller:   requestcontext.Caller(ctx),
		Reason:   rec.Reason,
		Amount:   amount.Dec(),
		Validity: rec.Validity,
	})
}

// grownTotal returns the aggregate grown by amount, rejecting when it would
// exceed the custody balance.
func (s *Service) grownTotal(ctx context.Context, amount id.Amount) (id.Amount, error) {
	total, err := s.store.TotalLocked(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read locked aggregate")
	}
	grown, err := id.AddAmount(total, amount)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidAmount, "locked aggregate overflow")
	}
	balance, err := s.tokens.BalanceOf(ctx, s.custody)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read custody balance")
	}
	if grown.Gt(balance) {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "locked total would exceed custody balance")
	}
	return grown, nil
}

// AdjustLockPeriod moves the validity of an unclaimed, unexpired lock. The
// new validity may shorten or extend the hold but cannot be before the call
// time.
func (s *Service) AdjustLockPeriod(ctx context.Context, account id.Account, reason string, validity time.Time) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		if validity.Before(requestcontext.Now(ctx)) {
			return dErrors.New(dErrors.CodePastTimestamp, "lock validity must not be in the past")
		}
		rec, err := s.activeLock(ctx, account, reason)
		if err != nil {
			return err
		}
		rec.Validity = validity
		if err := s.store.Update(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update lock")
		}
		return s.emit(ctx, audit.Event{
			Action:   audit.ActionLockAdjusted,
			Account:  account,
			Caller:   requestcontext.Caller(ctx),
			Reason:   reason,
			Amount:   rec.Amount.Dec(),
			Validity: validity,
		})
	})
}

// activeLock loads a record that is unclaimed and unexpired.
func (s *Service) activeLock(ctx context.Context, account id.Account, reason string) (*LockRecord, error) {
	rec, err := s.store.Get(ctx, account, reason)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnknownOrExpiredLock, "no such lock")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lock")
	}
	if rec.Claimed || rec.Expired(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeUnknownOrExpiredLock, "lock is claimed or expired")
	}
	return rec, nil
}

// TokensLocked returns the held amount for a key, zero for unknown or
// claimed records. An expired but unclaimed record still counts until
// Unlock claims it.
func (s *Service) TokensLocked(ctx context.Context, account id.Account, reason string) (id.Amount, error) {
	rec, err := s.store.Get(ctx, account, reason)
	if errors.Is(err, sentinel.ErrNotFound) {
		return id.Zero(), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lock")
	}
	if rec.Claimed {
		return id.Zero(), nil
	}
	return rec.Amount, nil
}

// TokensLockedAtTime projects the held amount at an arbitrary instant: zero
// at or after validity, the stored amount before it.
func (s *Service) TokensLockedAtTime(ctx context.Context, account id.Account, reason string, at time.Time) (id.Amount, error) {
	rec, err := s.store.Get(ctx, account, reason)
	if errors.Is(err, sentinel.ErrNotFound) {
		return id.Zero(), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lock")
	}
	return rec.AmountAt(at), nil
}

// TotalLockedFor sums the unclaimed holds of one account.
func (s *Service) TotalLockedFor(ctx context.Context, account id.Account) (id.Amount, error) {
	return s.sumUnclaimed(ctx, account, func(*LockRecord) bool { return true })
}

// UnlockableTokens sums the matured, unclaimed holds of one account.
func (s *Service) UnlockableTokens(ctx context.Context, account id.Account) (id.Amount, error) {
	now := requestcontext.Now(ctx)
	return s.sumUnclaimed(ctx, account, func(rec *LockRecord) bool { return rec.Expired(now) })
}

func (s *Service) sumUnclaimed(ctx context.Context, account id.Account, keep func(*LockRecord) bool) (id.Amount, error) {
	recs, err := s.store.ListByAccount(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list locks")
	}
	sum := id.Zero()
	for _, rec := range recs {
		if rec.Claimed || !keep(rec) {
			continue
		}
		sum, err = id.AddAmount(sum, rec.Amount)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidAmount, "locked sum overflow")
		}
	}
	return sum, nil
}

// TotalLocked returns the engine-wide locked aggregate backing the
// withdrawal guard.
func (s *Service) TotalLocked(ctx context.Context) (id.Amount, error) {
	total, err := s.store.TotalLocked(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read locked aggregate")
	}
	return total, nil
}

// Details lists every lock record of an account, claimed ones included, in
// creation order.
func (s *Service) Details(ctx context.Context, account id.Account) ([]LockDetail, error) {
	recs, err := s.store.ListByAccount(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list locks")
	}
	out := make([]LockDetail, 0, len(recs))
	for _, rec := range recs {
		out = append(out, LockDetail{
			Reason:   rec.Reason,
			Amount:   rec.Amount,
			Validity: rec.Validity,
			Claimed:  rec.Claimed,
		})
	}
	return out, nil
}

// Unlock releases every matured, unclaimed hold of the account to the
// account, transferring out of custody and marking the records claimed.
// Anyone may trigger it; with nothing matured it is a no-op and returns
// zero.
//
// Each record settles in its own transaction, transfer and claim together.
// The token ledger is external and cannot ride a database rollback, so a
// batch-wide transaction would unclaim records that were already paid when a
// later transfer fails; settling per record instead leaves every paid record
// claimed and the aggregate exact, and a retry picks up where the failure
// stopped.
func (s *Service) Unlock(ctx context.Context, account id.Account) (id.Amount, error) {
	if account.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "account is required")
	}
	recs, err := s.store.ListByAccount(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list locks")
	}
	now := requestcontext.Now(ctx)
	released := id.Zero()
	count := 0
	for _, candidate := range recs {
		if candidate.Claimed || !candidate.Expired(now) {
			continue
		}
		err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
			// Re-read under the writer: another caller may have settled
			// this record between the listing and now.
			rec, err := s.store.Get(ctx, account, candidate.Reason)
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lock")
			}
			if rec.Claimed || !rec.Expired(now) {
				return nil
			}
			if err := s.tokens.Transfer(ctx, s.custody, account, rec.Amount); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer unlocked tokens")
			}
			rec.Claimed = true
			if err := s.store.Update(ctx, rec); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update lock")
			}
			total, err := s.store.TotalLocked(ctx)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read locked aggregate")
			}
			if total, err = id.SubAmount(total, rec.Amount); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "locked aggregate underflow")
			}
			if err := s.store.SetTotalLocked(ctx, total); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update locked aggregate")
			}
			if released, err = id.AddAmount(released, rec.Amount); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInvalidAmount, "released sum overflow")
			}
			count++
			return s.emit(ctx, audit.Event{
				Action:   audit.ActionUnlocked,
				Account:  account,
				Caller:   requestcontext.Caller(ctx),
				Reason:   rec.Reason,
				Amount:   rec.Amount.Dec(),
				Validity: rec.Validity,
			})
		})
		if err != nil {
			return nil, err
		}
	}
	if count > 0 {
		s.metrics.IncrementLocksReleased(count)
		if s.logger != nil {
			s.logger.InfoContext(ctx, "locks released",
				slog.String("account", account.String()),
				slog.Int("count", count),
				slog.String("amount", released.Dec()))
		}
	}
	return released, nil
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
