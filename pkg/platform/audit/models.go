// Package audit captures one event per state change of the sale engine.
// Every mutating operation that commits emits exactly one event, and a
// rejected operation emits none.
package audit

import (
	"context"
	"time"

	id "salegate/pkg/domain"
)

// Action identifies the state change an event records.
type Action string

const (
	ActionAdminAdded       Action = "admin_added"
	ActionWhitelisted      Action = "whitelisted"
	ActionWhitelistRemoved Action = "whitelist_removed"
	ActionPhaseSet         Action = "phase_set"
	ActionCapsSet          Action = "individual_caps_set"
	ActionTotalSaleCapSet  Action = "total_sale_cap_set"
	ActionPurchased        Action = "purchased"
	ActionLocked           Action = "locked"
	ActionLockIncreased    Action = "lock_increased"
	ActionLockAdjusted     Action = "lock_adjusted"
	ActionUnlocked         Action = "unlocked"
	ActionTokensVested     Action = "tokens_vested"
	ActionTokensDelivered  Action = "tokens_delivered"
	ActionTokenWithdrawn   Action = "token_withdrawn"
	ActionEtherWithdrawn   Action = "ether_withdrawn"
	ActionWalletChanged    Action = "wallet_changed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Amounts travel as decimal strings: events outlive the process and a JSON
// number cannot carry 256 bits.
type Event struct {
	Action    Action
	Timestamp time.Time

	// Account the state change applies to (buyer, lock owner, new admin...).
	Account id.Account
	// Caller that triggered the change, when authenticated.
	Caller id.Account

	// Lock fields.
	Reason   string
	Validity time.Time

	// Amount is the primary quantity of the action (locked amount, withdrawn
	// amount, vested amount).
	Amount string
	// Purchase fields.
	Value       string
	TokenAmount string
	BonusAmount string

	// Phase fields.
	Rate      string
	BonusRate uint64
	StartTime time.Time
	EndTime   time.Time

	// Cap fields.
	MinCap string
	MaxCap string

	RequestID string
}

// Store is the append-only persistence surface for events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, account id.Account) ([]Event, error)
}
