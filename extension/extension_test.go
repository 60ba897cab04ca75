package extension

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/store/memory"
	tokenmem "github.com/xraph/distribution/token/memory"
)

var (
	admin   = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	custody = common.HexToAddress("0x000000000000000000000000000000000000c051")
)

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{BasePath: "/rewards", Custody: custody.Hex()}
	prog := Config{
		BasePath:       "/ignored",
		Administrator:  admin.Hex(),
		Custody:        "0x0000000000000000000000000000000000000bad",
		DisableMigrate: true,
		PluginTimeout:  time.Second,
	}

	got := mergeConfigurations(yaml, prog)

	if got.BasePath != "/rewards" {
		t.Errorf("BasePath = %q, yaml should win", got.BasePath)
	}
	if got.Custody != custody.Hex() {
		t.Errorf("Custody = %q, yaml should win", got.Custody)
	}
	if got.Administrator != admin.Hex() {
		t.Errorf("Administrator = %q, programmatic should fill the gap", got.Administrator)
	}
	if !got.DisableMigrate {
		t.Error("DisableMigrate not carried over")
	}
	if got.PluginTimeout != time.Second {
		t.Errorf("PluginTimeout = %v", got.PluginTimeout)
	}
	if got.JWTIssuer != DefaultConfig().JWTIssuer {
		t.Errorf("JWTIssuer = %q, want default", got.JWTIssuer)
	}
}

func TestMergeWithDefaults(t *testing.T) {
	got := mergeWithDefaults(Config{})
	if got != DefaultConfig() {
		t.Errorf("got %+v, want %+v", got, DefaultConfig())
	}
}

func TestBuildLedger(t *testing.T) {
	e := New(
		WithStore(memory.New()),
		WithToken(tokenmem.New(admin)),
		WithAdministrator(admin),
		WithCustody(custody),
	)
	e.config = mergeWithDefaults(e.config)

	l, err := e.buildLedger()
	if err != nil {
		t.Fatalf("buildLedger: %v", err)
	}
	if l.Administrator() != admin || l.Custody() != custody {
		t.Errorf("administrator %s custody %s", l.Administrator().Hex(), l.Custody().Hex())
	}
}

func TestBuildLedgerRejectsAddresses(t *testing.T) {
	tests := []struct {
		name    string
		admin   string
		custody string
	}{
		{"missing administrator", "", custody.Hex()},
		{"malformed custody", admin.Hex(), "vault"},
		{"zero custody", admin.Hex(), common.Address{}.Hex()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithStore(memory.New()), WithToken(tokenmem.New(admin)))
			e.config.Administrator = tt.admin
			e.config.Custody = tt.custody

			_, err := e.buildLedger()
			if !errors.Is(err, distribution.ErrInvalidConfiguration) {
				t.Errorf("err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}
