// Package event defines the append-only log of ledger state changes.
package event

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/id"
	"github.com/xraph/distribution/types"
)

// Kind names what changed.
type Kind string

const (
	KindBalanceChanged    Kind = "beneficiary_balance_changed"
	KindDeposit           Kind = "deposit"
	KindEmergencyWithdraw Kind = "emergency_withdraw"
	KindClaim             Kind = "claim"
	KindLockRewards       Kind = "lock_rewards"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBalanceChanged, KindDeposit, KindEmergencyWithdraw, KindClaim, KindLockRewards:
		return true
	}
	return false
}

// Event records one successful state change.
//
// Account holds the beneficiary for balance changes and claims, the
// depositor for deposits and the recipient for emergency withdrawals. It is
// the zero address for lock events. Events emitted by one call share an
// OperationID.
type Event struct {
	ID            id.EventID     `json:"id"`
	Kind          Kind           `json:"kind"`
	OperationID   id.OperationID `json:"operation_id"`
	Account       common.Address `json:"account"`
	BalanceBefore types.Amount   `json:"balance_before"`
	BalanceAfter  types.Amount   `json:"balance_after"`
	Amount        types.Amount   `json:"amount"`
	Locked        bool           `json:"locked"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newEvent(kind Kind, op id.OperationID, account common.Address) *Event {
	return &Event{
		ID:          id.NewEventID(),
		Kind:        kind,
		OperationID: op,
		Account:     account,
		CreatedAt:   time.Now().UTC(),
	}
}

// BalanceChanged records an entitlement moving from before to after.
func BalanceChanged(op id.OperationID, beneficiary common.Address, before, after types.Amount) *Event {
	e := newEvent(KindBalanceChanged, op, beneficiary)
	e.BalanceBefore = before
	e.BalanceAfter = after
	return e
}

// Deposit records tokens pulled into custody from from.
func Deposit(op id.OperationID, from common.Address, amount types.Amount) *Event {
	e := newEvent(KindDeposit, op, from)
	e.Amount = amount
	return e
}

// EmergencyWithdraw records tokens recalled from custody to to.
func EmergencyWithdraw(op id.OperationID, to common.Address, amount types.Amount) *Event {
	e := newEvent(KindEmergencyWithdraw, op, to)
	e.Amount = amount
	return e
}

// Claim records a settled entitlement paid to to.
func Claim(op id.OperationID, to common.Address, amount types.Amount) *Event {
	e := newEvent(KindClaim, op, to)
	e.Amount = amount
	return e
}

// LockRewards records the lock switch being set.
func LockRewards(op id.OperationID, locked bool) *Event {
	e := newEvent(KindLockRewards, op, common.Address{})
	e.Locked = locked
	return e
}
