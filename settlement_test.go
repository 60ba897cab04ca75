package distribution_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/token"
	"github.com/xraph/distribution/types"
)

func TestDeposit(t *testing.T) {
	f := newFixture(t)

	f.deposit(t, 700)
	wantAmount(t, "reserve", f.reserve(t), 700)
	wantAmount(t, "admin balance", f.tokenBalance(t, admin), 1_000_000-700)

	evs := f.events(t, event.KindDeposit)
	if len(evs) != 1 || evs[0].Account != admin {
		t.Fatalf("deposit events = %+v", evs)
	}
	wantAmount(t, "event amount", evs[0].Amount, 700)

	if err := f.ledger.Deposit(as(admin), amt(0)); !errors.Is(err, distribution.ErrInvalidAmount) {
		t.Errorf("zero deposit: got %v, want ErrInvalidAmount", err)
	}
}

func TestDepositWithoutAllowance(t *testing.T) {
	f := newFixture(t)
	if err := f.token.Approve(as(admin), custody, amt(10)); err != nil {
		t.Fatal(err)
	}

	err := f.ledger.Deposit(as(admin), amt(11))
	if !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("got %v, want token.ErrInsufficientAllowance", err)
	}
	if distribution.IsSettlement(err) || distribution.IsValidation(err) {
		t.Errorf("token failure classified as ledger error: %v", err)
	}
	wantAmount(t, "reserve", f.reserve(t), 0)
	if n := len(f.events(t, event.KindDeposit)); n != 0 {
		t.Errorf("deposit events = %d, want 0", n)
	}
}

func TestEmergencyWithdraw(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 500)

	if err := f.ledger.EmergencyWithdraw(as(admin), amt(501)); !errors.Is(err, distribution.ErrInsufficientReserve) {
		t.Fatalf("over-withdraw: got %v, want ErrInsufficientReserve", err)
	}
	if err := f.ledger.EmergencyWithdraw(as(admin), amt(0)); !errors.Is(err, distribution.ErrInvalidAmount) {
		t.Fatalf("zero withdraw: got %v, want ErrInvalidAmount", err)
	}
	if err := f.ledger.EmergencyWithdraw(as(admin), amt(200)); err != nil {
		t.Fatal(err)
	}

	wantAmount(t, "reserve", f.reserve(t), 300)
	wantAmount(t, "admin balance", f.tokenBalance(t, admin), 1_000_000-300)

	evs := f.events(t, event.KindEmergencyWithdraw)
	if len(evs) != 1 || evs[0].Account != admin {
		t.Fatalf("withdraw events = %+v", evs)
	}
}

func TestEmergencyWithdrawCanStrand(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 600)
	f.add(t, u2, 400)

	if err := f.ledger.EmergencyWithdraw(as(admin), amt(900)); err != nil {
		t.Fatalf("withdraw below reserve but above backing: %v", err)
	}

	outstanding, err := f.ledger.Outstanding(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	wantAmount(t, "outstanding", outstanding, 1000)
	wantAmount(t, "reserve", f.reserve(t), 100)

	if _, err := f.ledger.Claim(as(u2)); !errors.Is(err, distribution.ErrInsufficientReserve) {
		t.Errorf("stranded claim: got %v, want ErrInsufficientReserve", err)
	}
}

func TestClaimRecordsEvent(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 100)
	f.add(t, u1, 100)

	if _, err := f.ledger.Claim(as(u1)); err != nil {
		t.Fatal(err)
	}

	evs := f.events(t, event.KindClaim)
	if len(evs) != 1 || evs[0].Account != u1 {
		t.Fatalf("claim events = %+v", evs)
	}
	wantAmount(t, "claimed", evs[0].Amount, 100)

	// A claim does not emit a balance change of its own.
	if n := len(f.events(t, event.KindBalanceChanged)); n != 1 {
		t.Errorf("balance events = %d, want 1", n)
	}
}

func TestClaimWithoutCaller(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ledger.Claim(context.Background()); !errors.Is(err, distribution.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestClaimReentrancy(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 2000)
	f.add(t, u1, 1000)

	var (
		reentered bool
		innerErr  error
	)
	f.token.SetTransferHook(func(ctx context.Context, _, to common.Address, _ types.Amount) error {
		if to != u1 || reentered {
			return nil
		}
		reentered = true
		// The recipient calls back into the ledger mid-transfer.
		_, innerErr = f.ledger.Claim(caller.With(ctx, u1))
		return nil
	})

	paid, err := f.ledger.Claim(as(u1))
	if err != nil {
		t.Fatalf("outer claim: %v", err)
	}
	if !reentered {
		t.Fatal("hook did not run")
	}
	if !errors.Is(innerErr, distribution.ErrNothingToClaim) {
		t.Fatalf("inner claim: got %v, want ErrNothingToClaim", innerErr)
	}

	wantAmount(t, "paid", paid, 1000)
	wantAmount(t, "u1 balance", f.tokenBalance(t, u1), 1000)
	wantAmount(t, "reserve", f.reserve(t), 1000)
}

func TestClaimReentrancyOtherBeneficiary(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 1000)
	f.add(t, u2, 1)

	var innerErr error
	f.token.SetTransferHook(func(ctx context.Context, _, to common.Address, _ types.Amount) error {
		if to == u1 {
			// Custody still holds u1's payout, but it is already promised.
			_, innerErr = f.ledger.Claim(caller.With(ctx, u2))
		}
		return nil
	})

	if _, err := f.ledger.Claim(as(u1)); err != nil {
		t.Fatalf("outer claim: %v", err)
	}
	if !errors.Is(innerErr, distribution.ErrInsufficientReserve) {
		t.Fatalf("inner claim: got %v, want ErrInsufficientReserve", innerErr)
	}
	wantAmount(t, "u2 entitlement", f.entitlement(t, u2), 1)
}

func TestClaimTransferFailureRestores(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 400)

	rejected := errors.New("recipient rejected tokens")
	f.token.SetTransferHook(func(_ context.Context, _, to common.Address, _ types.Amount) error {
		if to == u1 {
			return rejected
		}
		return nil
	})

	_, err := f.ledger.Claim(as(u1))
	if !errors.Is(err, token.ErrTransferFailed) || !errors.Is(err, rejected) {
		t.Fatalf("got %v, want wrapped transfer failure", err)
	}
	wantAmount(t, "entitlement", f.entitlement(t, u1), 400)
	wantAmount(t, "reserve", f.reserve(t), 1000)
	if n := len(f.events(t, event.KindClaim)); n != 0 {
		t.Errorf("claim events = %d, want 0", n)
	}

	f.token.SetTransferHook(nil)
	if _, err := f.ledger.Claim(as(u1)); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestConcurrentClaims(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 1000)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		nothing  int
		unwanted []error
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Claim(as(u1))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, distribution.ErrNothingToClaim):
				nothing++
			default:
				unwanted = append(unwanted, err)
			}
		}()
	}
	wg.Wait()

	if success != 1 || nothing != n-1 || len(unwanted) != 0 {
		t.Fatalf("success=%d nothing=%d other=%v", success, nothing, unwanted)
	}
	wantAmount(t, "u1 balance", f.tokenBalance(t, u1), 1000)
}

// eventLossStore accepts entitlement writes but fails every event-only write.
type eventLossStore struct {
	store.Store
}

func (s *eventLossStore) Apply(ctx context.Context, m *store.Mutation) error {
	if len(m.Changes) == 0 && len(m.Events) > 0 {
		return errors.New("disk full")
	}
	return s.Store.Apply(ctx, m)
}

// restoreFailStore rejects entitlement increases, so crediting back a failed
// claim cannot be written.
type restoreFailStore struct {
	store.Store
}

func (s *restoreFailStore) Apply(ctx context.Context, m *store.Mutation) error {
	for _, c := range m.Changes {
		if c.After.GreaterThan(c.Before) {
			return distribution.ErrConflict
		}
	}
	return s.Store.Apply(ctx, m)
}

func TestSettledWithoutEvent(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 400)

	c := &capture{}
	l, err := distribution.New(as(admin), &eventLossStore{Store: f.store}, f.token,
		distribution.WithCustody(custody),
		distribution.WithPlugin(c),
	)
	if err != nil {
		t.Fatal(err)
	}

	paid, err := l.Claim(as(u1))
	if !errors.Is(err, distribution.ErrEventNotRecorded) || !distribution.IsSettled(err) {
		t.Fatalf("Claim err = %v, want ErrEventNotRecorded", err)
	}
	if !paid.Equal(amt(400)) {
		t.Errorf("Claim returned %s, want 400", paid)
	}
	wantAmount(t, "u1 tokens", f.tokenBalance(t, u1), 400)
	wantAmount(t, "entitlement", f.entitlement(t, u1), 0)

	if err := l.Deposit(as(admin), amt(50)); !distribution.IsSettled(err) {
		t.Errorf("Deposit err = %v, want settled", err)
	}
	if err := l.EmergencyWithdraw(as(admin), amt(10)); !distribution.IsSettled(err) {
		t.Errorf("EmergencyWithdraw err = %v, want settled", err)
	}
	wantAmount(t, "reserve", f.reserve(t), 1000-400+50-10)

	c.mu.Lock()
	defer c.mu.Unlock()
	wantKinds := []event.Kind{event.KindClaim, event.KindDeposit, event.KindEmergencyWithdraw}
	if len(c.kinds) != len(wantKinds) {
		t.Fatalf("hook events = %v, want %v", c.kinds, wantKinds)
	}
	for i, k := range wantKinds {
		if c.kinds[i] != k {
			t.Errorf("hook event %d = %s, want %s", i, c.kinds[i], k)
		}
	}
	if len(c.failures) != 3 {
		t.Errorf("failures = %v, want one per operation", c.failures)
	}
}

func TestClaimRestoreFailureReachesHooks(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 1000)
	f.add(t, u1, 400)

	c := &capture{}
	l, err := distribution.New(as(admin), &restoreFailStore{Store: f.store}, f.token,
		distribution.WithCustody(custody),
		distribution.WithPlugin(c),
	)
	if err != nil {
		t.Fatal(err)
	}

	rejected := errors.New("recipient rejected tokens")
	f.token.SetTransferHook(func(_ context.Context, _, to common.Address, _ types.Amount) error {
		if to == u1 {
			return rejected
		}
		return nil
	})

	if _, err := l.Claim(as(u1)); !errors.Is(err, rejected) {
		t.Fatalf("Claim err = %v, want transfer failure", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) != 2 {
		t.Fatalf("failures = %v, want restore and transfer", c.errs)
	}
	if !errors.Is(c.errs[0], distribution.ErrConflict) || errors.Is(c.errs[0], rejected) {
		t.Errorf("first failure = %v, want the restore error", c.errs[0])
	}
	if !errors.Is(c.errs[1], rejected) {
		t.Errorf("second failure = %v, want the transfer error", c.errs[1])
	}
	for _, op := range c.failures {
		if op != string(distribution.OpClaim) {
			t.Errorf("failure op = %q, want claim", op)
		}
	}
}
