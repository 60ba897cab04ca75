package distribution_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/event"
	storemem "github.com/xraph/distribution/store/memory"
	tokenmem "github.com/xraph/distribution/token/memory"
	"github.com/xraph/distribution/types"
)

var (
	admin   = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	custody = common.HexToAddress("0x000000000000000000000000000000000000c051")
	u1      = common.HexToAddress("0x0000000000000000000000000000000000000001")
	u2      = common.HexToAddress("0x0000000000000000000000000000000000000002")
	u3      = common.HexToAddress("0x0000000000000000000000000000000000000003")
	zero    = common.Address{}
)

// adminSupply is minted to the administrator and approved for custody.
var adminSupply = types.NewAmount(1_000_000)

type fixture struct {
	ledger *distribution.Ledger
	token  *tokenmem.Token
	store  *storemem.Store
}

func as(addr common.Address) context.Context {
	return caller.With(context.Background(), addr)
}

func amt(n uint64) types.Amount { return types.NewAmount(n) }

func newFixture(t *testing.T, opts ...distribution.Option) *fixture {
	t.Helper()

	tok := tokenmem.New(admin)
	if err := tok.Mint(as(admin), admin, adminSupply); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tok.Approve(as(admin), custody, adminSupply); err != nil {
		t.Fatalf("approve: %v", err)
	}

	st := storemem.New()
	opts = append([]distribution.Option{
		distribution.WithCustody(custody),
		distribution.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)

	l, err := distribution.New(as(admin), st, tok, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })

	return &fixture{ledger: l, token: tok, store: st}
}

func (f *fixture) deposit(t *testing.T, n uint64) {
	t.Helper()
	if err := f.ledger.Deposit(as(admin), amt(n)); err != nil {
		t.Fatalf("Deposit(%d): %v", n, err)
	}
}

func (f *fixture) add(t *testing.T, b common.Address, n uint64) {
	t.Helper()
	if err := f.ledger.AddBeneficiary(as(admin), b, amt(n)); err != nil {
		t.Fatalf("AddBeneficiary(%s, %d): %v", b.Hex(), n, err)
	}
}

func (f *fixture) entitlement(t *testing.T, b common.Address) types.Amount {
	t.Helper()
	v, err := f.ledger.EntitlementOf(context.Background(), b)
	if err != nil {
		t.Fatalf("EntitlementOf: %v", err)
	}
	return v
}

func (f *fixture) reserve(t *testing.T) types.Amount {
	t.Helper()
	v, err := f.ledger.Reserve(context.Background())
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	return v
}

func (f *fixture) tokenBalance(t *testing.T, holder common.Address) types.Amount {
	t.Helper()
	v, err := f.token.BalanceOf(context.Background(), holder)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	return v
}

func (f *fixture) events(t *testing.T, kind event.Kind) []*event.Event {
	t.Helper()
	list, err := f.ledger.Events(context.Background(), event.ListOpts{Kind: kind})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	return list
}

func wantAmount(t *testing.T, what string, got types.Amount, want uint64) {
	t.Helper()
	if !got.Equal(amt(want)) {
		t.Errorf("%s = %s, want %d", what, got, want)
	}
}
