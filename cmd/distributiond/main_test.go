package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/internal/config"
	tokenmem "github.com/xraph/distribution/token/memory"
	"github.com/xraph/distribution/types"
)

var (
	admin   = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	custody = common.HexToAddress("0x000000000000000000000000000000000000c051")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

func testConfig() config.Config {
	return config.Config{
		Administrator: admin.Hex(),
		Custody:       custody.Hex(),
		Store:         "memory",
		Token:         config.TokenMemory,
		DevSupply:     "1000",
		JWTSecret:     "test-secret",
		JWTIssuer:     "distributiond-test",
		LogLevel:      "error",
	}
}

func TestOpenMemoryToken(t *testing.T) {
	ctx := context.Background()

	tok, gotCustody, err := openToken(ctx, testConfig(), admin)
	if err != nil {
		t.Fatal(err)
	}
	if gotCustody != custody {
		t.Errorf("custody = %s", gotCustody.Hex())
	}
	mem := tok.(*tokenmem.Token)
	if bal, _ := mem.BalanceOf(ctx, admin); !bal.Equal(types.NewAmount(1000)) {
		t.Errorf("admin balance = %s", bal)
	}
	if allow, _ := mem.Allowance(ctx, admin, custody); !allow.Equal(types.NewAmount(1000)) {
		t.Errorf("custody allowance = %s", allow)
	}
}

func TestBuildLedgerDepositsFromDevSupply(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	l, err := buildLedger(ctx, testConfig(), logger)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Stop() }()

	actx := caller.With(ctx, admin)
	if err := l.Deposit(actx, types.NewAmount(400)); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := l.AddBeneficiary(actx, alice, types.NewAmount(150)); err != nil {
		t.Fatalf("AddBeneficiary: %v", err)
	}
	got, err := l.Claim(caller.With(ctx, alice))
	if err != nil || !got.Equal(types.NewAmount(150)) {
		t.Fatalf("Claim = %s, %v", got, err)
	}
}

func TestBuildLedgerValidates(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""
	if _, err := buildLedger(context.Background(), cfg, slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected validation error")
	}
}

func TestAllocateDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	body := "allocations:\n  - beneficiary: \"" + alice.Hex() + "\"\n    amount: \"25\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := allocate(context.Background(), testConfig(), []string{"-dry-run", path}); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := allocate(context.Background(), testConfig(), nil); err == nil {
		t.Error("expected usage error")
	}
}

func TestIssueToken(t *testing.T) {
	if err := issueToken(testConfig(), []string{alice.Hex()}); err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if err := issueToken(testConfig(), []string{"alice"}); err == nil {
		t.Error("expected usage error")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if err := run([]string{"frobnicate"}); err == nil {
		t.Error("expected error")
	}
}
