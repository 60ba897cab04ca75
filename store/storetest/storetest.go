// Package storetest is a conformance suite shared by every store.Store
// backend.
package storetest

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/id"
	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/types"
)

// Factory returns a fresh, migrated store. The suite closes it.
type Factory func(t *testing.T) store.Store

var (
	admin = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	alice = common.HexToAddress("0xA11CE00000000000000000000000000000000001")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0xCa401000000000000000000000000000000000c3")
)

// Run exercises every store.Store method against stores made by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"EmptyStore", testEmptyStore},
		{"InitSettingsFirstWins", testInitSettingsFirstWins},
		{"LockSetBeforeInit", testLockSetBeforeInit},
		{"ApplyChanges", testApplyChanges},
		{"ApplyRepeatedBeneficiary", testApplyRepeatedBeneficiary},
		{"ApplyConflictWritesNothing", testApplyConflictWritesNothing},
		{"ListEntitlements", testListEntitlements},
		{"ListEvents", testListEvents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testEmptyStore(t *testing.T, s store.Store) {
	ctx := context.Background()

	got, err := s.GetEntitlement(ctx, alice)
	if err != nil {
		t.Fatalf("GetEntitlement: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("entitlement = %s, want 0", got)
	}
	locked, err := s.IsLocked(ctx)
	if err != nil || locked {
		t.Errorf("IsLocked = %v, %v; want false, nil", locked, err)
	}
	if err := s.Apply(ctx, &store.Mutation{}); err != nil {
		t.Errorf("empty Apply: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func testInitSettingsFirstWins(t *testing.T, s store.Store) {
	ctx := context.Background()

	got, err := s.InitSettings(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if got != admin {
		t.Fatalf("first InitSettings = %s, want %s", got.Hex(), admin.Hex())
	}
	got, err = s.InitSettings(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if got != admin {
		t.Fatalf("second InitSettings = %s, want %s", got.Hex(), admin.Hex())
	}
}

func testLockSetBeforeInit(t *testing.T, s store.Store) {
	ctx := context.Background()

	locked := true
	if err := s.Apply(ctx, &store.Mutation{Locked: &locked}); err != nil {
		t.Fatal(err)
	}
	got, err := s.InitSettings(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if got != admin {
		t.Errorf("administrator = %s, want %s", got.Hex(), admin.Hex())
	}
	if isLocked, _ := s.IsLocked(ctx); !isLocked {
		t.Error("lock lost by InitSettings")
	}

	locked = false
	if err := s.Apply(ctx, &store.Mutation{Locked: &locked}); err != nil {
		t.Fatal(err)
	}
	if isLocked, _ := s.IsLocked(ctx); isLocked {
		t.Error("lock not cleared")
	}
}

func testApplyChanges(t *testing.T, s store.Store) {
	ctx := context.Background()
	op := id.NewOperationID()

	err := s.Apply(ctx, &store.Mutation{
		Changes: []entitlement.Change{
			{Beneficiary: alice, Before: types.Zero, After: types.NewAmount(100)},
			{Beneficiary: bob, Before: types.Zero, After: types.NewAmount(50)},
		},
		Events: []*event.Event{
			event.BalanceChanged(op, alice, types.Zero, types.NewAmount(100)),
			event.BalanceChanged(op, bob, types.Zero, types.NewAmount(50)),
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	wantEntitlement(t, s, alice, 100)
	wantEntitlement(t, s, bob, 50)

	err = s.Apply(ctx, &store.Mutation{
		Changes: []entitlement.Change{
			{Beneficiary: alice, Before: types.NewAmount(100), After: types.Zero},
		},
	})
	if err != nil {
		t.Fatalf("Apply to zero: %v", err)
	}
	wantEntitlement(t, s, alice, 0)
}

func testApplyRepeatedBeneficiary(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.Apply(ctx, &store.Mutation{
		Changes: []entitlement.Change{
			{Beneficiary: alice, Before: types.Zero, After: types.NewAmount(10)},
			{Beneficiary: alice, Before: types.NewAmount(10), After: types.NewAmount(25)},
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantEntitlement(t, s, alice, 25)
}

func testApplyConflictWritesNothing(t *testing.T, s store.Store) {
	ctx := context.Background()

	seed := &store.Mutation{
		Changes: []entitlement.Change{{Beneficiary: alice, Before: types.Zero, After: types.NewAmount(10)}},
	}
	if err := s.Apply(ctx, seed); err != nil {
		t.Fatal(err)
	}

	locked := true
	err := s.Apply(ctx, &store.Mutation{
		Changes: []entitlement.Change{
			{Beneficiary: bob, Before: types.Zero, After: types.NewAmount(5)},
			{Beneficiary: alice, Before: types.NewAmount(9), After: types.NewAmount(20)},
		},
		Locked: &locked,
		Events: []*event.Event{event.LockRewards(id.NewOperationID(), true)},
	})
	if !errors.Is(err, distribution.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	wantEntitlement(t, s, alice, 10)
	wantEntitlement(t, s, bob, 0)
	if isLocked, _ := s.IsLocked(ctx); isLocked {
		t.Error("lock written by rejected mutation")
	}
	evs, err := s.ListEvents(ctx, event.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 0 {
		t.Errorf("events = %d, want 0", len(evs))
	}
}

func testListEntitlements(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.Apply(ctx, &store.Mutation{
		Changes: []entitlement.Change{
			{Beneficiary: carol, Before: types.Zero, After: types.NewAmount(3)},
			{Beneficiary: alice, Before: types.Zero, After: types.NewAmount(1)},
			{Beneficiary: bob, Before: types.Zero, After: types.NewAmount(2)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Apply(ctx, &store.Mutation{
		Changes: []entitlement.Change{{Beneficiary: bob, Before: types.NewAmount(2), After: types.Zero}},
	})
	if err != nil {
		t.Fatal(err)
	}

	all, err := s.ListEntitlements(ctx, entitlement.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	// bob is zero; byte order puts alice (0xa1...) before carol (0xca...).
	if len(all) != 2 || all[0].Beneficiary != alice || all[1].Beneficiary != carol {
		t.Fatalf("ListEntitlements = %v, want [alice carol]", beneficiaries(all))
	}
	if !all[1].Amount.Equal(types.NewAmount(3)) {
		t.Errorf("carol = %s, want 3", all[1].Amount)
	}
	if total := entitlement.Total(all); !total.Equal(types.NewAmount(4)) {
		t.Errorf("total = %s, want 4", total)
	}

	page, err := s.ListEntitlements(ctx, entitlement.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Beneficiary != carol {
		t.Errorf("page = %v, want [carol]", beneficiaries(page))
	}

	rest, err := s.ListEntitlements(ctx, entitlement.ListOpts{Limit: math.MaxInt, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].Beneficiary != carol {
		t.Errorf("unbounded page = %v, want [carol]", beneficiaries(rest))
	}

	past, err := s.ListEntitlements(ctx, entitlement.ListOpts{Limit: 1, Offset: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(past) != 0 {
		t.Errorf("page past the end = %v, want empty", beneficiaries(past))
	}
}

func testListEvents(t *testing.T, s store.Store) {
	ctx := context.Background()
	op := id.NewOperationID()

	recorded := []*event.Event{
		event.Deposit(op, admin, types.NewAmount(100)),
		event.BalanceChanged(op, alice, types.Zero, types.NewAmount(40)),
		event.LockRewards(op, true),
		event.Claim(op, alice, types.NewAmount(40)),
	}
	for _, e := range recorded {
		if err := s.Apply(ctx, &store.Mutation{Events: []*event.Event{e}}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListEvents(ctx, event.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(recorded) {
		t.Fatalf("events = %d, want %d", len(all), len(recorded))
	}
	for i := range recorded {
		if all[i].ID.String() != recorded[i].ID.String() || all[i].Kind != recorded[i].Kind {
			t.Errorf("event %d = %s/%s, want %s/%s", i, all[i].Kind, all[i].ID, recorded[i].Kind, recorded[i].ID)
		}
	}
	if !all[1].BalanceAfter.Equal(types.NewAmount(40)) || all[1].Account != alice {
		t.Errorf("balance event = %+v", all[1])
	}
	if !all[2].Locked || all[2].Account != (common.Address{}) {
		t.Errorf("lock event = %+v", all[2])
	}

	byAccount, err := s.ListEvents(ctx, event.ListOpts{Account: alice})
	if err != nil {
		t.Fatal(err)
	}
	if len(byAccount) != 2 {
		t.Errorf("alice events = %d, want 2", len(byAccount))
	}

	claims, err := s.ListEvents(ctx, event.ListOpts{Kind: event.KindClaim, Account: alice})
	if err != nil {
		t.Fatal(err)
	}
	if len(claims) != 1 || !claims[0].Amount.Equal(types.NewAmount(40)) {
		t.Errorf("claims = %+v", claims)
	}

	page, err := s.ListEvents(ctx, event.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Kind != event.KindBalanceChanged || page[1].Kind != event.KindLockRewards {
		t.Errorf("page = %+v", page)
	}

	tail, err := s.ListEvents(ctx, event.ListOpts{Limit: math.MaxInt, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != len(recorded)-1 {
		t.Errorf("unbounded page = %d events, want %d", len(tail), len(recorded)-1)
	}
}

func wantEntitlement(t *testing.T, s store.Store, b common.Address, want uint64) {
	t.Helper()
	got, err := s.GetEntitlement(context.Background(), b)
	if err != nil {
		t.Fatalf("GetEntitlement(%s): %v", b.Hex(), err)
	}
	if !got.Equal(types.NewAmount(want)) {
		t.Errorf("entitlement(%s) = %s, want %d", b.Hex(), got, want)
	}
}

func beneficiaries(list []*entitlement.Entitlement) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Beneficiary.Hex()
	}
	return out
}
