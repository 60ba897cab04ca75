// Package plugin provides an extensible plugin system for the distribution ledger.
// Plugins can hook into lifecycle and settlement events to extend functionality.
package plugin

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnBeneficiaryBalanceChanged is called once per entitlement change, after
// the change is committed.
type OnBeneficiaryBalanceChanged interface {
	Plugin
	OnBeneficiaryBalanceChanged(ctx context.Context, e *event.Event) error
}

// OnLockRewards is called when the lock switch is set.
type OnLockRewards interface {
	Plugin
	OnLockRewards(ctx context.Context, e *event.Event) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnDeposit is called after tokens are pulled into custody.
type OnDeposit interface {
	Plugin
	OnDeposit(ctx context.Context, e *event.Event) error
}

// OnEmergencyWithdraw is called after tokens are recalled from custody.
type OnEmergencyWithdraw interface {
	Plugin
	OnEmergencyWithdraw(ctx context.Context, e *event.Event) error
}

// OnClaim is called after a beneficiary is paid.
type OnClaim interface {
	Plugin
	OnClaim(ctx context.Context, e *event.Event) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed is called when a command is rejected or its transfer
// fails. op is the command name, for example "claim".
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, op string, caller common.Address, err error) error
}
