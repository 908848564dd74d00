// Package whitelist tracks the accounts eligible to purchase during an
// active sale phase. Its lifecycle is independent from the admin set: an
// admin is not automatically whitelisted and vice versa.
package whitelist

import (
	"context"
	"log/slog"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

// Store persists the whitelist.
type Store interface {
	// Add returns false when the account was already present.
	Add(ctx context.Context, account id.Account) (bool, error)
	// Remove returns false when the account was not present.
	Remove(ctx context.Context, account id.Account) (bool, error)
	Contains(ctx context.Context, account id.Account) (bool, error)
}

// AuthorityCheck is the slice of the authority module this service needs.
type AuthorityCheck interface {
	RequireAdmin(ctx context.Context) error
}

// AuditPublisher records whitelist mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service guards whitelist mutations behind the admin set.
type Service struct {
	store     Store
	authority AuthorityCheck
	runner    tx.Runner
	logger    *slog.Logger
	audit     AuditPublisher
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

func New(store Store, authority AuthorityCheck, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: store, authority: authority, runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add whitelists a single account. Duplicates are idempotent.
func (s *Service) Add(ctx context.Context, account id.Account) error {
	return s.AddBatch(ctx, []id.Account{account})
}

// AddBatch whitelists each account independently: duplicates inside the
// input, or against existing entries, are no-ops rather than errors. The
// whole call is still one atomic unit; an unauthorized caller changes
// nothing.
func (s *Service) AddBatch(ctx context.Context, accounts []id.Account) error {
	if len(accounts) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one account is required")
	}
	for _, account := range accounts {
		if account.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "account is required")
		}
	}
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		for _, account := range accounts {
			added, err := s.store.Add(ctx, account)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to whitelist account")
			}
			if !added {
				continue
			}
			if err := s.emit(ctx, audit.Event{
				Action:  audit.ActionWhitelisted,
				Account: account,
				Caller:  requestcontext.Caller(ctx),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove drops an account from the whitelist. Removing an absent account is
// a no-op.
func (s *Service) Remove(ctx context.Context, account id.Account) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authority.RequireAdmin(ctx); err != nil {
			return err
		}
		removed, err := s.store.Remove(ctx, account)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove account from whitelist")
		}
		if !removed {
			return nil
		}
		return s.emit(ctx, audit.Event{
			Action:  audit.ActionWhitelistRemoved,
			Account: account,
			Caller:  requestcontext.Caller(ctx),
		})
	})
}

// IsWhitelisted reports purchase eligibility.
func (s *Service) IsWhitelisted(ctx context.Context, account id.Account) (bool, error) {
	ok, err := s.store.Contains(ctx, account)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check whitelist")
	}
	return ok, nil
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
