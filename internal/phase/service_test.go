package phase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"salegate/internal/authority"
	authorityStore "salegate/internal/authority/store"
	"salegate/internal/phase"
	phaseStore "salegate/internal/phase/store"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/tx"
	"salegate/pkg/requestcontext"
)

// =============================================================================
// Phase Controller Test Suite
// =============================================================================
// The controller owns the temporal rules of the sale: window sequencing,
// [start, end) activity, and cap accounting. All of that is clock-driven, so
// the suite pins every call's time through the request context.

type PhaseControllerSuite struct {
	suite.Suite
	store      *phaseStore.InMemory
	controller *phase.Controller

	admin    id.Account
	stranger id.Account
	now      time.Time
}

func TestPhaseControllerSuite(t *testing.T) {
	suite.Run(t, new(PhaseControllerSuite))
}

func (s *PhaseControllerSuite) SetupTest() {
	s.admin = id.Account("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	s.stranger = id.Account("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	runner := tx.NewSingleWriter()
	auth := authority.New(authorityStore.NewInMemory(), runner)
	s.Require().NoError(auth.Bootstrap(context.Background(), s.admin))

	s.store = phaseStore.NewInMemory(id.NewAmount(1000))
	s.controller = phase.New(s.store, auth, runner)
}

// adminCtx pins the clock to s.now and authenticates the bootstrap admin.
func (s *PhaseControllerSuite) adminCtx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	return requestcontext.WithCaller(ctx, s.admin)
}

func (s *PhaseControllerSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// =============================================================================
// SetPhase Tests
// =============================================================================

func (s *PhaseControllerSuite) TestSetPhase() {
	start := s.now.Add(time.Hour)
	end := start.Add(24 * time.Hour)

	s.Run("configures the first phase", func() {
		err := s.controller.SetPhase(s.adminCtx(), id.NewAmount(250), start, end, 2500)
		s.NoError(err)

		p, err := s.controller.CurrentPhase(context.Background())
		s.NoError(err)
		s.Equal("250", p.Rate.Dec())
		s.Equal(uint64(2500), p.BonusRate)
		s.True(p.StartTime.Equal(start))
		s.True(p.EndTime.Equal(end))
	})

	s.Run("rejects a zero rate", func() {
		err := s.controller.SetPhase(s.adminCtx(), id.Zero(), start, end, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("rejects a start that is not in the future", func() {
		err := s.controller.SetPhase(s.adminCtx(), id.NewAmount(250), s.now, end, 0)
		s.True(dErrors.HasCode(err, dErrors.CodePastTimestamp))
	})

	s.Run("rejects an inverted window", func() {
		err := s.controller.SetPhase(s.adminCtx(), id.NewAmount(250), end, start, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidWindow))
	})

	s.Run("rejects an empty window", func() {
		err := s.controller.SetPhase(s.adminCtx(), id.NewAmount(250), start, start, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidWindow))
	})

	s.Run("rejects a non-admin caller", func() {
		ctx := requestcontext.WithCaller(s.at(s.now), s.stranger)
		err := s.controller.SetPhase(ctx, id.NewAmount(250), start, end, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *PhaseControllerSuite) TestSetPhaseSequencing() {
	start := s.now.Add(time.Hour)
	end := start.Add(24 * time.Hour)
	s.Require().NoError(s.controller.SetPhase(s.adminCtx(), id.NewAmount(250), start, end, 2500))

	s.Run("rejects a replacement while the current window has not elapsed", func() {
		mid := start.Add(time.Hour)
		ctx := requestcontext.WithCaller(s.at(mid), s.admin)
		err := s.controller.SetPhase(ctx, id.NewAmount(500), mid.Add(time.Hour), mid.Add(48*time.Hour), 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidWindow))
		s.ErrorContains(err, "previous phase has not elapsed")
	})

	s.Run("accepts a replacement once the current window has elapsed", func() {
		after := end.Add(time.Minute)
		ctx := requestcontext.WithCaller(s.at(after), s.admin)
		err := s.controller.SetPhase(ctx, id.NewAmount(500), after.Add(time.Hour), after.Add(48*time.Hour), 1000)
		s.NoError(err)

		p, err := s.controller.CurrentPhase(context.Background())
		s.NoError(err)
		s.Equal("500", p.Rate.Dec())
	})
}

// =============================================================================
// Activity Tests
// =============================================================================

func (s *PhaseControllerSuite) TestActivity() {
	start := s.now.Add(time.Hour)
	end := start.Add(24 * time.Hour)
	s.Require().NoError(s.controller.SetPhase(s.adminCtx(), id.NewAmount(250), start, end, 2500))

	s.Run("inactive before the start", func() {
		active, err := s.controller.IsActive(s.at(start.Add(-time.Second)))
		s.NoError(err)
		s.False(active)
	})

	s.Run("active at the exact start", func() {
		active, err := s.controller.IsActive(s.at(start))
		s.NoError(err)
		s.True(active)
	})

	s.Run("active just before the end", func() {
		active, err := s.controller.IsActive(s.at(end.Add(-time.Second)))
		s.NoError(err)
		s.True(active)
	})

	s.Run("inactive at the exact end", func() {
		active, err := s.controller.IsActive(s.at(end))
		s.NoError(err)
		s.False(active)
	})

	s.Run("ActivePhase returns the phase while active", func() {
		p, err := s.controller.ActivePhase(s.at(start))
		s.NoError(err)
		s.Equal("250", p.Rate.Dec())
	})

	s.Run("ActivePhase rejects outside the window", func() {
		_, err := s.controller.ActivePhase(s.at(end))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidWindow))
	})
}

func (s *PhaseControllerSuite) TestActivityUnconfigured() {
	s.Run("IsActive is false without error", func() {
		active, err := s.controller.IsActive(context.Background())
		s.NoError(err)
		s.False(active)
	})

	s.Run("ActivePhase rejects", func() {
		_, err := s.controller.ActivePhase(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidWindow))
	})

	s.Run("CurrentPhase reports not found", func() {
		_, err := s.controller.CurrentPhase(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Cap Configuration Tests
// =============================================================================

func (s *PhaseControllerSuite) TestSetIndividualCaps() {
	s.Run("stores the bounds", func() {
		err := s.controller.SetIndividualCaps(s.adminCtx(), id.NewAmount(10), id.NewAmount(100))
		s.NoError(err)

		caps, err := s.controller.Caps(context.Background())
		s.NoError(err)
		s.Equal("10", caps.Min.Dec())
		s.Equal("100", caps.Max.Dec())
	})

	s.Run("rejects a minimum above the maximum", func() {
		err := s.controller.SetIndividualCaps(s.adminCtx(), id.NewAmount(200), id.NewAmount(100))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("allows any minimum when the maximum is unbounded", func() {
		err := s.controller.SetIndividualCaps(s.adminCtx(), id.NewAmount(200), id.Zero())
		s.NoError(err)
	})

	s.Run("rejects a non-admin caller", func() {
		ctx := requestcontext.WithCaller(s.at(s.now), s.stranger)
		err := s.controller.SetIndividualCaps(ctx, id.NewAmount(10), id.NewAmount(100))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *PhaseControllerSuite) TestSetTotalSaleCap() {
	ctx := context.Background()

	s.Run("replaces the aggregate ceiling", func() {
		err := s.controller.SetTotalSaleCap(s.adminCtx(), id.NewAmount(5000))
		s.NoError(err)

		cap, err := s.controller.TotalSaleCap(ctx)
		s.NoError(err)
		s.Equal("5000", cap.Dec())
	})

	s.Run("does not reset the raised counter", func() {
		s.Require().NoError(s.controller.ConsumeCap(ctx, id.NewAmount(400)))

		s.Require().NoError(s.controller.SetTotalSaleCap(s.adminCtx(), id.NewAmount(9000)))

		raised, err := s.controller.Raised(ctx)
		s.NoError(err)
		s.Equal("400", raised.Dec())
	})

	s.Run("rejects a non-admin caller", func() {
		callerCtx := requestcontext.WithCaller(s.at(s.now), s.stranger)
		err := s.controller.SetTotalSaleCap(callerCtx, id.NewAmount(1))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// ConsumeCap Tests
// =============================================================================

func (s *PhaseControllerSuite) TestConsumeCap() {
	ctx := context.Background()

	s.Run("advances the raised counter", func() {
		s.NoError(s.controller.ConsumeCap(ctx, id.NewAmount(300)))
		s.NoError(s.controller.ConsumeCap(ctx, id.NewAmount(200)))

		raised, err := s.controller.Raised(ctx)
		s.NoError(err)
		s.Equal("500", raised.Dec())
	})

	s.Run("rejects a value below the individual minimum", func() {
		s.Require().NoError(s.controller.SetIndividualCaps(s.adminCtx(), id.NewAmount(50), id.NewAmount(400)))

		err := s.controller.ConsumeCap(ctx, id.NewAmount(49))
		s.True(dErrors.HasCode(err, dErrors.CodeCapExceeded))
	})

	s.Run("rejects a value above the individual maximum", func() {
		err := s.controller.ConsumeCap(ctx, id.NewAmount(401))
		s.True(dErrors.HasCode(err, dErrors.CodeCapExceeded))
	})

	s.Run("rejects once the total sale cap would be crossed", func() {
		// 500 raised so far against a 1000 ceiling.
		err := s.controller.ConsumeCap(ctx, id.NewAmount(400))
		s.NoError(err)

		err = s.controller.ConsumeCap(ctx, id.NewAmount(101))
		s.True(dErrors.HasCode(err, dErrors.CodeCapExceeded))

		// A rejected purchase consumes nothing.
		raised, err := s.controller.Raised(ctx)
		s.NoError(err)
		s.Equal("900", raised.Dec())
	})

	s.Run("accepts a value landing exactly on the ceiling", func() {
		err := s.controller.ConsumeCap(ctx, id.NewAmount(100))
		s.NoError(err)

		raised, err := s.controller.Raised(ctx)
		s.NoError(err)
		s.Equal("1000", raised.Dec())
	})
}
