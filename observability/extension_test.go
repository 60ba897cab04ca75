package observability_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/id"
	"github.com/xraph/distribution/observability"
	"github.com/xraph/distribution/types"
)

type counter struct{ v float64 }

func (c *counter) Inc()          { c.v++ }
func (c *counter) Add(d float64) { c.v += d }

type histogram struct{ obs []float64 }

func (h *histogram) Observe(v float64) { h.obs = append(h.obs, v) }

type factory struct {
	counters   map[string]*counter
	histograms map[string]*histogram
}

func newFactory() *factory {
	return &factory{counters: map[string]*counter{}, histograms: map[string]*histogram{}}
}

func (f *factory) Counter(name string) observability.Counter {
	c := &counter{}
	f.counters[name] = c
	return c
}

func (f *factory) Histogram(name string) observability.Histogram {
	h := &histogram{}
	f.histograms[name] = h
	return h
}

var alice = common.HexToAddress("0x0000000000000000000000000000000000000001")

func TestEventMetrics(t *testing.T) {
	ctx := context.Background()
	op := id.NewOperationID()
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	_ = m.OnDeposit(ctx, event.Deposit(op, alice, types.NewAmount(100)))
	_ = m.OnBeneficiaryBalanceChanged(ctx, event.BalanceChanged(op, alice, types.Zero, types.NewAmount(30)))
	_ = m.OnBeneficiaryBalanceChanged(ctx, event.BalanceChanged(op, alice, types.NewAmount(30), types.NewAmount(10)))
	_ = m.OnClaim(ctx, event.Claim(op, alice, types.NewAmount(10)))
	_ = m.OnEmergencyWithdraw(ctx, event.EmergencyWithdraw(op, alice, types.NewAmount(90)))
	_ = m.OnLockRewards(ctx, event.LockRewards(op, true))
	_ = m.OnLockRewards(ctx, event.LockRewards(op, false))
	_ = m.OnLockRewards(ctx, event.LockRewards(op, true))

	counts := map[string]float64{
		"distribution.reserve.deposits":              1,
		"distribution.entitlement.increased":         1,
		"distribution.entitlement.decreased":         1,
		"distribution.claims":                        1,
		"distribution.reserve.emergency_withdrawals": 1,
		"distribution.rewards.locked":                2,
		"distribution.rewards.unlocked":              1,
	}
	for name, want := range counts {
		if got := f.counters[name].v; got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	delta := f.histograms["distribution.entitlement.delta"].obs
	if len(delta) != 2 || delta[0] != 30 || delta[1] != -20 {
		t.Errorf("entitlement delta = %v, want [30 -20]", delta)
	}
	if obs := f.histograms["distribution.claims.amount"].obs; len(obs) != 1 || obs[0] != 10 {
		t.Errorf("claim amount = %v", obs)
	}
}

func TestFailureMetrics(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		counter string
	}{
		{"denied", fmt.Errorf("x: %w", distribution.ErrUnauthorized), "distribution.operations.denied"},
		{"validation", distribution.ErrInvalidBeneficiary, "distribution.operations.rejected"},
		{"settlement", distribution.ErrNothingToClaim, "distribution.operations.rejected"},
		{"transfer", errors.New("rpc down"), "distribution.operations.failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFactory()
			m := observability.NewMetricsExtension(f)
			_ = m.OnOperationFailed(context.Background(), "claim", alice, tt.err)
			if got := f.counters[tt.counter].v; got != 1 {
				t.Errorf("%s = %v, want 1", tt.counter, got)
			}
		})
	}

	t.Run("conflict", func(t *testing.T) {
		f := newFactory()
		m := observability.NewMetricsExtension(f)
		_ = m.OnOperationFailed(context.Background(), "claim", alice, distribution.ErrConflict)
		if f.counters["distribution.store.conflicts"].v != 1 || f.counters["distribution.operations.failed"].v != 1 {
			t.Error("conflict not counted as failed store conflict")
		}
	})
}
