// Package authority is the root trust anchor: the mutable set of accounts
// with administrative capability. Every other module consults it before
// mutating state.
package authority

import (
	"context"
	"log/slog"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

// Store persists the admin set.
type Store interface {
	// Add inserts the account. Returns false when the account was already an
	// admin (idempotent no-op, not an error).
	Add(ctx context.Context, account id.Account) (bool, error)
	IsAdmin(ctx context.Context, account id.Account) (bool, error)
	Count(ctx context.Context) (int, error)
}

// AuditPublisher is the slice of the audit publisher this module needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service guards mutations of the admin set.
type Service struct {
	store  Store
	runner tx.Runner
	logger *slog.Logger
	audit  AuditPublisher
}

// Option configures the Service.
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

// New constructs the authority service.
func New(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: store, runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap installs the creator as the first admin. The admin set must be
// non-empty before the service handles traffic, so main calls this once at
// startup; repeating it is a no-op.
func (s *Service) Bootstrap(ctx context.Context, creator id.Account) error {
	if creator.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "bootstrap admin account is required")
	}
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		added, err := s.store.Add(ctx, creator)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bootstrap admin")
		}
		if added && s.logger != nil {
			s.logger.InfoContext(ctx, "bootstrap admin installed", "account", creator)
		}
		return nil
	})
}

// AddAdmin adds a new admin. The caller must already be an admin. Re-adding
// an existing admin is a no-op: the admin set is a set, and treating a
// repeat as an error would make concurrent admin tooling racy for no gain.
func (s *Service) AddAdmin(ctx context.Context, account id.Account) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.RequireAdmin(ctx); err != nil {
			return err
		}
		added, err := s.store.Add(ctx, account)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add admin")
		}
		if !added {
			return nil
		}
		return s.emit(ctx, audit.Event{
			Action:  audit.ActionAdminAdded,
			Account: account,
			Caller:  requestcontext.Caller(ctx),
		})
	})
}

// IsAdmin reports whether the account holds administrative capability.
func (s *Service) IsAdmin(ctx context.Context, account id.Account) (bool, error) {
	ok, err := s.store.IsAdmin(ctx, account)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check admin")
	}
	return ok, nil
}

// RequireAdmin rejects the call when the context's caller is not an admin.
// Other modules depend on this through their own narrow AuthorityCheck port.
func (s *Service) RequireAdmin(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not authenticated")
	}
	ok, err := s.store.IsAdmin(ctx, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check admin")
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not an admin")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		// Fail closed: a committed admin change without an audit record is
		// worse than a rejected call.
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
