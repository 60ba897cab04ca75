// Package observability provides a metrics extension for the distribution
// ledger that records event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/plugin"
	"github.com/xraph/distribution/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                      = (*MetricsExtension)(nil)
	_ plugin.OnInit                      = (*MetricsExtension)(nil)
	_ plugin.OnBeneficiaryBalanceChanged = (*MetricsExtension)(nil)
	_ plugin.OnLockRewards               = (*MetricsExtension)(nil)
	_ plugin.OnDeposit                   = (*MetricsExtension)(nil)
	_ plugin.OnEmergencyWithdraw         = (*MetricsExtension)(nil)
	_ plugin.OnClaim                     = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed           = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger activity metrics. Amounts are observed
// in token base units.
type MetricsExtension struct {
	factory MetricFactory

	// Entitlement metrics
	EntitlementIncreased Counter
	EntitlementDecreased Counter
	EntitlementDelta     Histogram

	// Lock metrics
	RewardsLocked   Counter
	RewardsUnlocked Counter

	// Settlement metrics
	Deposits             Counter
	DepositAmount        Histogram
	EmergencyWithdrawals Counter
	WithdrawAmount       Histogram
	Claims               Counter
	ClaimAmount          Histogram

	// Failure metrics
	OperationsDenied   Counter
	OperationsRejected Counter
	OperationsFailed   Counter
	StoreConflicts     Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		EntitlementIncreased: factory.Counter("distribution.entitlement.increased"),
		EntitlementDecreased: factory.Counter("distribution.entitlement.decreased"),
		EntitlementDelta:     factory.Histogram("distribution.entitlement.delta"),

		RewardsLocked:   factory.Counter("distribution.rewards.locked"),
		RewardsUnlocked: factory.Counter("distribution.rewards.unlocked"),

		Deposits:             factory.Counter("distribution.reserve.deposits"),
		DepositAmount:        factory.Histogram("distribution.reserve.deposit_amount"),
		EmergencyWithdrawals: factory.Counter("distribution.reserve.emergency_withdrawals"),
		WithdrawAmount:       factory.Histogram("distribution.reserve.withdraw_amount"),
		Claims:               factory.Counter("distribution.claims"),
		ClaimAmount:          factory.Histogram("distribution.claims.amount"),

		OperationsDenied:   factory.Counter("distribution.operations.denied"),
		OperationsRejected: factory.Counter("distribution.operations.rejected"),
		OperationsFailed:   factory.Counter("distribution.operations.failed"),
		StoreConflicts:     factory.Counter("distribution.store.conflicts"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnBeneficiaryBalanceChanged implements plugin.OnBeneficiaryBalanceChanged.
func (m *MetricsExtension) OnBeneficiaryBalanceChanged(_ context.Context, e *event.Event) error {
	if e.BalanceAfter.GreaterThan(e.BalanceBefore) {
		m.EntitlementIncreased.Inc()
		m.EntitlementDelta.Observe(units(e.BalanceAfter.SaturatingSub(e.BalanceBefore)))
	} else {
		m.EntitlementDecreased.Inc()
		m.EntitlementDelta.Observe(-units(e.BalanceBefore.SaturatingSub(e.BalanceAfter)))
	}
	return nil
}

// OnLockRewards implements plugin.OnLockRewards.
func (m *MetricsExtension) OnLockRewards(_ context.Context, e *event.Event) error {
	if e.Locked {
		m.RewardsLocked.Inc()
	} else {
		m.RewardsUnlocked.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnDeposit implements plugin.OnDeposit.
func (m *MetricsExtension) OnDeposit(_ context.Context, e *event.Event) error {
	m.Deposits.Inc()
	m.DepositAmount.Observe(units(e.Amount))
	return nil
}

// OnEmergencyWithdraw implements plugin.OnEmergencyWithdraw.
func (m *MetricsExtension) OnEmergencyWithdraw(_ context.Context, e *event.Event) error {
	m.EmergencyWithdrawals.Inc()
	m.WithdrawAmount.Observe(units(e.Amount))
	return nil
}

// OnClaim implements plugin.OnClaim.
func (m *MetricsExtension) OnClaim(_ context.Context, e *event.Event) error {
	m.Claims.Inc()
	m.ClaimAmount.Observe(units(e.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, _ string, _ common.Address, err error) error {
	switch {
	case distribution.IsAuthorization(err):
		m.OperationsDenied.Inc()
	case distribution.IsValidation(err), distribution.IsSettlement(err):
		m.OperationsRejected.Inc()
	default:
		m.OperationsFailed.Inc()
	}
	if errors.Is(err, distribution.ErrConflict) {
		m.StoreConflicts.Inc()
	}
	return nil
}

// units converts an amount to float64, losing precision above 2^53.
func units(a types.Amount) float64 {
	f, _ := new(big.Float).SetInt(a.Big()).Float64()
	return f
}
