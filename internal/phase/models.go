package phase

import (
	"time"

	id "salegate/pkg/domain"
)

// Phase is a time-boxed sale window with a fixed exchange rate and bonus
// rate. Only one phase is configured at a time; a new one may be set only
// after the previous window has fully elapsed.
type Phase struct {
	// Rate is units of asset per unit of native currency.
	Rate id.Amount
	// BonusRate is a basis-points integer (2500 = 25%), divided by
	// domain.BonusRateDivisor at use.
	BonusRate uint64
	StartTime time.Time
	EndTime   time.Time
}

// Active reports whether now falls within [StartTime, EndTime).
func (p Phase) Active(now time.Time) bool {
	return !now.Before(p.StartTime) && now.Before(p.EndTime)
}

// Elapsed reports whether the window has fully passed.
func (p Phase) Elapsed(now time.Time) bool {
	return !now.Before(p.EndTime)
}

// Caps bounds a single purchase call in native currency. A zero Max means
// unbounded; a zero Min means no floor.
type Caps struct {
	Min id.Amount
	Max id.Amount
}

// Allows reports whether a purchase of value v satisfies the per-call caps.
func (c Caps) Allows(v id.Amount) bool {
	if c.Min != nil && !c.Min.IsZero() && v.Lt(c.Min) {
		return false
	}
	if c.Max != nil && !c.Max.IsZero() && v.Gt(c.Max) {
		return false
	}
	return true
}
