package distribution_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/types"
)

func TestScenarioA_SingleBeneficiary(t *testing.T) {
	f := newFixture(t)

	f.deposit(t, 100000)
	f.add(t, u1, 100000)

	paid, err := f.ledger.Claim(as(u1))
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}

	wantAmount(t, "paid", paid, 100000)
	wantAmount(t, "u1 token balance", f.tokenBalance(t, u1), 100000)
	wantAmount(t, "u1 entitlement", f.entitlement(t, u1), 0)
	wantAmount(t, "reserve", f.reserve(t), 0)
}

func TestScenarioB_BatchBothClaim(t *testing.T) {
	f := newFixture(t)

	f.deposit(t, 100000)
	err := f.ledger.AddBeneficiaries(as(admin),
		[]common.Address{u2, u3},
		[]types.Amount{amt(50000), amt(50000)},
	)
	if err != nil {
		t.Fatalf("AddBeneficiaries: %v", err)
	}

	for _, u := range []common.Address{u2, u3} {
		if _, err := f.ledger.Claim(as(u)); err != nil {
			t.Fatalf("Claim(%s): %v", u.Hex(), err)
		}
		wantAmount(t, "token balance", f.tokenBalance(t, u), 50000)
	}
	wantAmount(t, "reserve", f.reserve(t), 0)
}

func TestScenarioC_ReserveRunsOut(t *testing.T) {
	f := newFixture(t)

	f.deposit(t, 50000)
	err := f.ledger.AddBeneficiaries(as(admin),
		[]common.Address{u1, u2},
		[]types.Amount{amt(50000), amt(100000)},
	)
	if err != nil {
		t.Fatalf("AddBeneficiaries: %v", err)
	}

	if _, err := f.ledger.Claim(as(u1)); err != nil {
		t.Fatalf("Claim(u1): %v", err)
	}
	if _, err := f.ledger.Claim(as(u2)); !errors.Is(err, distribution.ErrInsufficientReserve) {
		t.Fatalf("Claim(u2): got %v, want ErrInsufficientReserve", err)
	}
	wantAmount(t, "u2 entitlement", f.entitlement(t, u2), 100000)
	wantAmount(t, "reserve", f.reserve(t), 0)
}

func TestScenarioD_InvalidArguments(t *testing.T) {
	f := newFixture(t)

	if err := f.ledger.AddBeneficiary(as(admin), zero, amt(100)); !errors.Is(err, distribution.ErrInvalidBeneficiary) {
		t.Errorf("zero beneficiary: got %v, want ErrInvalidBeneficiary", err)
	}
	if err := f.ledger.AddBeneficiary(as(admin), u1, amt(0)); !errors.Is(err, distribution.ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	wantAmount(t, "u1 entitlement", f.entitlement(t, u1), 0)
	if n := len(f.events(t, "")); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestClaimAlwaysZeroes(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 300)
	f.add(t, u1, 200)

	paid, err := f.ledger.Claim(as(u1))
	if err != nil {
		t.Fatal(err)
	}
	wantAmount(t, "paid", paid, 500)
	wantAmount(t, "entitlement", f.entitlement(t, u1), 0)
}

func TestDoubleClaim(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 1000)

	if _, err := f.ledger.Claim(as(u1)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Claim(as(u1)); !errors.Is(err, distribution.ErrNothingToClaim) {
		t.Fatalf("second claim: got %v, want ErrNothingToClaim", err)
	}
	wantAmount(t, "u1 token balance", f.tokenBalance(t, u1), 1000)
}

func TestLiveReserveNotCached(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 100000)
	f.add(t, u1, 100000)

	if err := f.ledger.EmergencyWithdraw(as(admin), amt(100000)); err != nil {
		t.Fatalf("EmergencyWithdraw: %v", err)
	}
	if _, err := f.ledger.Claim(as(u1)); !errors.Is(err, distribution.ErrInsufficientReserve) {
		t.Fatalf("claim after withdraw: got %v, want ErrInsufficientReserve", err)
	}

	f.deposit(t, 100000)
	paid, err := f.ledger.Claim(as(u1))
	if err != nil {
		t.Fatalf("claim after deposit: %v", err)
	}
	wantAmount(t, "paid", paid, 100000)
}

func TestLockGating(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 1000)

	if err := f.ledger.LockRewards(as(admin), true); err != nil {
		t.Fatal(err)
	}
	locked, _ := f.ledger.IsLocked(context.Background())
	if !locked {
		t.Fatal("IsLocked = false after LockRewards(true)")
	}
	if _, err := f.ledger.Claim(as(u1)); !errors.Is(err, distribution.ErrRewardsLocked) {
		t.Fatalf("locked claim: got %v, want ErrRewardsLocked", err)
	}
	wantAmount(t, "entitlement while locked", f.entitlement(t, u1), 1000)

	if err := f.ledger.LockRewards(as(admin), false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Claim(as(u1)); err != nil {
		t.Fatalf("unlocked claim: %v", err)
	}
}

func TestClaimPreconditionOrder(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		wantErr error
	}{
		{
			name: "nothing to claim beats lock",
			setup: func(t *testing.T, f *fixture) {
				_ = f.ledger.LockRewards(as(admin), true)
			},
			wantErr: distribution.ErrNothingToClaim,
		},
		{
			name: "lock beats reserve",
			setup: func(t *testing.T, f *fixture) {
				f.add(t, u1, 500)
				_ = f.ledger.LockRewards(as(admin), true)
			},
			wantErr: distribution.ErrRewardsLocked,
		},
		{
			name: "reserve checked last",
			setup: func(t *testing.T, f *fixture) {
				f.deposit(t, 499)
				f.add(t, u1, 500)
			},
			wantErr: distribution.ErrInsufficientReserve,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)

			before := f.entitlement(t, u1)
			if _, err := f.ledger.Claim(as(u1)); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if after := f.entitlement(t, u1); !after.Equal(before) {
				t.Errorf("failed claim changed entitlement: %s -> %s", before, after)
			}
		})
	}
}
