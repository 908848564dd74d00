package authority_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"salegate/internal/authority"
	authorityStore "salegate/internal/authority/store"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	auditMemory "salegate/pkg/platform/audit/store/memory"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

type AuthoritySuite struct {
	suite.Suite
	service *authority.Service
	events  *auditMemory.Store
	admin   id.Account
	other   id.Account
}

func TestAuthoritySuite(t *testing.T) {
	suite.Run(t, new(AuthoritySuite))
}

func (s *AuthoritySuite) SetupTest() {
	s.admin = id.Account("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	s.other = id.Account("0xcccccccccccccccccccccccccccccccccccccccc")

	s.events = auditMemory.New()
	publisher := audit.NewPublisher(s.events)

	s.service = authority.New(authorityStore.NewInMemory(), tx.NewSingleWriter(),
		authority.WithAuditPublisher(publisher))
	s.Require().NoError(s.service.Bootstrap(context.Background(), s.admin))
}

func (s *AuthoritySuite) asAdmin() context.Context {
	return requestcontext.WithCaller(context.Background(), s.admin)
}

func (s *AuthoritySuite) TestBootstrap() {
	ctx := context.Background()

	s.Run("installs the creator as admin", func() {
		ok, err := s.service.IsAdmin(ctx, s.admin)
		s.NoError(err)
		s.True(ok)
	})

	s.Run("repeating is a no-op", func() {
		s.NoError(s.service.Bootstrap(ctx, s.admin))

		ok, err := s.service.IsAdmin(ctx, s.admin)
		s.NoError(err)
		s.True(ok)
	})

	s.Run("rejects a zero account", func() {
		err := s.service.Bootstrap(ctx, id.Account(""))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AuthoritySuite) TestAddAdmin() {
	ctx := context.Background()

	s.Run("admin grants the capability to another account", func() {
		s.NoError(s.service.AddAdmin(s.asAdmin(), s.other))

		ok, err := s.service.IsAdmin(ctx, s.other)
		s.NoError(err)
		s.True(ok)

		events, err := s.events.ListByAccount(ctx, s.other)
		s.NoError(err)
		s.Len(events, 1)
		s.Equal(audit.ActionAdminAdded, events[0].Action)
		s.Equal(s.admin, events[0].Caller)
	})

	s.Run("re-adding is a no-op and emits no second event", func() {
		s.NoError(s.service.AddAdmin(s.asAdmin(), s.other))

		events, err := s.events.ListByAccount(ctx, s.other)
		s.NoError(err)
		s.Len(events, 1)
	})

	s.Run("rejects a zero account", func() {
		err := s.service.AddAdmin(s.asAdmin(), id.Account(""))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a non-admin caller", func() {
		stranger := id.Account("0xdddddddddddddddddddddddddddddddddddddddd")
		callerCtx := requestcontext.WithCaller(context.Background(), stranger)
		err := s.service.AddAdmin(callerCtx, s.admin)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AuthoritySuite) TestRequireAdmin() {
	s.Run("passes for an admin caller", func() {
		s.NoError(s.service.RequireAdmin(s.asAdmin()))
	})

	s.Run("rejects an unauthenticated context", func() {
		err := s.service.RequireAdmin(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects a non-admin caller", func() {
		ctx := requestcontext.WithCaller(context.Background(), s.other)
		err := s.service.RequireAdmin(ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
