package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/distribution/internal/storeopen"
)

const (
	adminHex   = "0x000000000000000000000000000000000000ad01"
	custodyHex = "0x000000000000000000000000000000000000c051"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISTRIBUTION_ADMINISTRATOR", adminHex)
	t.Setenv("DISTRIBUTION_CUSTODY", custodyHex)
	t.Setenv("DISTRIBUTION_JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Store != storeopen.Memory || cfg.Token != TokenMemory {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.PluginTimeout != 5*time.Second || cfg.JWTTTL != time.Hour {
		t.Errorf("durations = %v %v", cfg.PluginTimeout, cfg.JWTTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	admin, err := cfg.AdministratorAddress()
	if err != nil || !strings.EqualFold(admin.Hex(), adminHex) {
		t.Errorf("administrator = %s, %v", admin.Hex(), err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("DISTRIBUTION_PLUGIN_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Administrator: adminHex,
		Custody:       custodyHex,
		Store:         storeopen.Memory,
		Token:         TokenMemory,
		JWTSecret:     "s3cret",
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing administrator", func(c *Config) { c.Administrator = "" }, "DISTRIBUTION_ADMINISTRATOR is required"},
		{"zero custody", func(c *Config) { c.Custody = "0x0000000000000000000000000000000000000000" }, "zero address"},
		{"unknown store", func(c *Config) { c.Store = "etcd" }, "unknown store"},
		{"postgres without url", func(c *Config) { c.Store = storeopen.Postgres }, "DISTRIBUTION_DATABASE_URL"},
		{"erc20 without rpc", func(c *Config) {
			c.Token = TokenERC20
			c.TokenAddress = custodyHex
			c.CustodyKey = "aa"
		}, "DISTRIBUTION_ETH_RPC_URL"},
		{"no secret", func(c *Config) { c.JWTSecret = "" }, "DISTRIBUTION_JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (Config{LogLevel: in}).Level(); got != want {
			t.Errorf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}
