package ledger

import (
	"time"

	id "salegate/pkg/domain"
)

// LockRecord freezes an amount of the asset for an account until a future
// timestamp, under a caller-chosen reason tag. A claimed record is terminal
// for its (account, reason) key; a new lock under the same reason may be
// created only after claim.
type LockRecord struct {
	Account   id.Account
	Reason    string
	Amount    id.Amount
	Validity  time.Time
	Claimed   bool
	CreatedAt time.Time
}

// Expired reports whether the lock has matured: validity at or before now.
func (r *LockRecord) Expired(now time.Time) bool {
	return !now.Before(r.Validity)
}

// AmountAt is the pure temporal projection used by tokensLockedAtTime:
// zero at or after validity, the stored amount before it. It does not
// consult claimed state and mutates nothing.
func (r *LockRecord) AmountAt(at time.Time) id.Amount {
	if !at.Before(r.Validity) {
		return id.Zero()
	}
	return id.CloneAmount(r.Amount)
}
