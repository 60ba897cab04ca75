package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/token"
	"github.com/xraph/distribution/types"
)

var (
	owner = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func as(addr common.Address) context.Context {
	return caller.With(context.Background(), addr)
}

func balance(t *testing.T, tok *Token, addr common.Address) types.Amount {
	t.Helper()
	b, err := tok.BalanceOf(context.Background(), addr)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	return b
}

func TestMetadata(t *testing.T) {
	tok := New(owner)
	if tok.Name() != "Teva token" || tok.Symbol() != "TEVA" || tok.Decimals() != 18 {
		t.Errorf("unexpected metadata: %s %s %d", tok.Name(), tok.Symbol(), tok.Decimals())
	}

	custom := New(owner, WithMetadata("Test", "TST", 6))
	if custom.Symbol() != "TST" || custom.Decimals() != 6 {
		t.Errorf("WithMetadata not applied: %s %d", custom.Symbol(), custom.Decimals())
	}
}

func TestMint(t *testing.T) {
	tok := New(owner)

	if err := tok.Mint(as(owner), alice, types.NewAmount(500)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if got := balance(t, tok, alice); !got.Equal(types.NewAmount(500)) {
		t.Errorf("balance = %s, want 500", got)
	}
	if !tok.TotalSupply().Equal(types.NewAmount(500)) {
		t.Errorf("total supply = %s, want 500", tok.TotalSupply())
	}

	if err := tok.Mint(as(alice), alice, types.NewAmount(1)); !errors.Is(err, token.ErrNotOwner) {
		t.Errorf("non-owner mint: got %v, want ErrNotOwner", err)
	}
	if err := tok.Mint(as(owner), common.Address{}, types.NewAmount(1)); !errors.Is(err, token.ErrZeroAddress) {
		t.Errorf("mint to zero: got %v, want ErrZeroAddress", err)
	}
	if err := tok.Mint(context.Background(), alice, types.NewAmount(1)); !errors.Is(err, token.ErrNoCaller) {
		t.Errorf("mint without caller: got %v, want ErrNoCaller", err)
	}
}

func TestBurn(t *testing.T) {
	tok := New(owner)
	_ = tok.Mint(as(owner), alice, types.NewAmount(100))

	if err := tok.Burn(as(alice), types.NewAmount(40)); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if got := balance(t, tok, alice); !got.Equal(types.NewAmount(60)) {
		t.Errorf("balance = %s, want 60", got)
	}
	if !tok.TotalSupply().Equal(types.NewAmount(60)) {
		t.Errorf("total supply = %s, want 60", tok.TotalSupply())
	}
	if err := tok.Burn(as(alice), types.NewAmount(61)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Errorf("over-burn: got %v, want ErrInsufficientBalance", err)
	}
}

func TestTransfer(t *testing.T) {
	tests := []struct {
		name    string
		to      common.Address
		amount  uint64
		wantErr error
	}{
		{"ok", bob, 30, nil},
		{"zero amount", bob, 0, nil},
		{"exceeds balance", bob, 101, token.ErrInsufficientBalance},
		{"zero address", common.Address{}, 1, token.ErrZeroAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := New(owner)
			_ = tok.Mint(as(owner), alice, types.NewAmount(100))

			err := tok.Transfer(as(alice), tt.to, types.NewAmount(tt.amount))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if got := balance(t, tok, alice); !got.Equal(types.NewAmount(100)) {
					t.Errorf("failed transfer moved funds: balance = %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transfer: %v", err)
			}
			if got := balance(t, tok, bob); !got.Equal(types.NewAmount(tt.amount)) {
				t.Errorf("bob = %s, want %d", got, tt.amount)
			}
			if got := balance(t, tok, alice); !got.Equal(types.NewAmount(100 - tt.amount)) {
				t.Errorf("alice = %s, want %d", got, 100-tt.amount)
			}
		})
	}
}

func TestTransferFrom(t *testing.T) {
	tok := New(owner)
	ctx := context.Background()
	_ = tok.Mint(as(owner), alice, types.NewAmount(100))

	if err := tok.TransferFrom(as(bob), alice, bob, types.NewAmount(10)); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("without allowance: got %v, want ErrInsufficientAllowance", err)
	}

	if err := tok.Approve(as(alice), bob, types.NewAmount(50)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := tok.TransferFrom(as(bob), alice, bob, types.NewAmount(20)); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}

	allowance, _ := tok.Allowance(ctx, alice, bob)
	if !allowance.Equal(types.NewAmount(30)) {
		t.Errorf("allowance = %s, want 30", allowance)
	}
	if got := balance(t, tok, bob); !got.Equal(types.NewAmount(20)) {
		t.Errorf("bob = %s, want 20", got)
	}

	// Allowance large enough, balance not.
	_ = tok.Approve(as(alice), bob, types.NewAmount(1000))
	if err := tok.TransferFrom(as(bob), alice, bob, types.NewAmount(81)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Errorf("over-balance: got %v, want ErrInsufficientBalance", err)
	}
	allowance, _ = tok.Allowance(ctx, alice, bob)
	if !allowance.Equal(types.NewAmount(1000)) {
		t.Errorf("failed TransferFrom consumed allowance: %s", allowance)
	}
}

func TestAllowanceAdjustments(t *testing.T) {
	tok := New(owner)
	ctx := context.Background()

	if err := tok.IncreaseAllowance(as(alice), bob, types.NewAmount(10)); err != nil {
		t.Fatal(err)
	}
	if err := tok.IncreaseAllowance(as(alice), bob, types.NewAmount(5)); err != nil {
		t.Fatal(err)
	}
	if err := tok.DecreaseAllowance(as(alice), bob, types.NewAmount(3)); err != nil {
		t.Fatal(err)
	}
	got, _ := tok.Allowance(ctx, alice, bob)
	if !got.Equal(types.NewAmount(12)) {
		t.Errorf("allowance = %s, want 12", got)
	}

	if err := tok.DecreaseAllowance(as(alice), bob, types.NewAmount(13)); !errors.Is(err, token.ErrAllowanceBelowZero) {
		t.Errorf("got %v, want ErrAllowanceBelowZero", err)
	}
	if err := tok.Approve(as(alice), common.Address{}, types.NewAmount(1)); !errors.Is(err, token.ErrZeroAddress) {
		t.Errorf("approve zero: got %v, want ErrZeroAddress", err)
	}
}

func TestTransferHook(t *testing.T) {
	var calls int
	hookErr := errors.New("receiver rejected")

	tok := New(owner, WithTransferHook(func(_ context.Context, _, to common.Address, _ types.Amount) error {
		calls++
		if to == bob {
			return hookErr
		}
		return nil
	}))
	_ = tok.Mint(as(owner), alice, types.NewAmount(100))

	if err := tok.Transfer(as(alice), bob, types.NewAmount(10)); !errors.Is(err, token.ErrTransferFailed) || !errors.Is(err, hookErr) {
		t.Fatalf("got %v, want ErrTransferFailed wrapping hook error", err)
	}
	if got := balance(t, tok, alice); !got.Equal(types.NewAmount(100)) {
		t.Errorf("rejected transfer moved funds: %s", got)
	}

	if err := tok.Transfer(as(alice), owner, types.NewAmount(10)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if calls != 2 {
		t.Errorf("hook calls = %d, want 2", calls)
	}

	tok.SetTransferHook(nil)
	if err := tok.Transfer(as(alice), bob, types.NewAmount(10)); err != nil {
		t.Errorf("after removing hook: %v", err)
	}
}

func TestTransferHookReentry(t *testing.T) {
	tok := New(owner)
	_ = tok.Mint(as(owner), alice, types.NewAmount(100))

	var inner error
	tok.SetTransferHook(func(ctx context.Context, _, _ common.Address, _ types.Amount) error {
		tok.SetTransferHook(nil)
		inner = tok.Transfer(ctx, owner, types.NewAmount(1))
		return nil
	})

	if err := tok.Transfer(as(alice), bob, types.NewAmount(10)); err != nil {
		t.Fatalf("outer transfer: %v", err)
	}
	if inner != nil {
		t.Fatalf("inner transfer: %v", inner)
	}
	if got := balance(t, tok, alice); !got.Equal(types.NewAmount(89)) {
		t.Errorf("alice = %s, want 89", got)
	}
}
