// Package config loads distributiond settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/internal/storeopen"
)

// Token backends.
const (
	TokenMemory = "memory"
	TokenERC20  = "erc20"
)

// Config is the daemon configuration.
type Config struct {
	HTTPAddr        string        `env:"DISTRIBUTION_HTTP_ADDR" envDefault:":8080"`
	BasePath        string        `env:"DISTRIBUTION_BASE_PATH" envDefault:"/v1"`
	LogLevel        string        `env:"DISTRIBUTION_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"DISTRIBUTION_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Administrator string `env:"DISTRIBUTION_ADMINISTRATOR"`
	Custody       string `env:"DISTRIBUTION_CUSTODY"`

	Store         string `env:"DISTRIBUTION_STORE" envDefault:"memory"`
	DatabaseURL   string `env:"DISTRIBUTION_DATABASE_URL"`
	MongoDatabase string `env:"DISTRIBUTION_MONGO_DATABASE"`

	Token        string `env:"DISTRIBUTION_TOKEN" envDefault:"memory"`
	TokenAddress string `env:"DISTRIBUTION_TOKEN_ADDRESS"`
	EthRPCURL    string `env:"DISTRIBUTION_ETH_RPC_URL"`
	CustodyKey   string `env:"DISTRIBUTION_CUSTODY_KEY"`
	WaitMined    bool   `env:"DISTRIBUTION_WAIT_MINED" envDefault:"true"`
	// DevSupply is minted to the administrator by the memory token.
	DevSupply string `env:"DISTRIBUTION_DEV_SUPPLY" envDefault:"100000000000000000000000"`

	JWTSecret string        `env:"DISTRIBUTION_JWT_SECRET"`
	JWTIssuer string        `env:"DISTRIBUTION_JWT_ISSUER" envDefault:"distributiond"`
	JWTTTL    time.Duration `env:"DISTRIBUTION_JWT_TTL" envDefault:"1h"`

	RedisAddr   string `env:"DISTRIBUTION_REDIS_ADDR"`
	RedisStream string `env:"DISTRIBUTION_REDIS_STREAM" envDefault:"distribution:events"`
	RedisMaxLen int64  `env:"DISTRIBUTION_REDIS_MAXLEN" envDefault:"0"`

	OTelEndpoint  string        `env:"DISTRIBUTION_OTEL_ENDPOINT"`
	PluginTimeout time.Duration `env:"DISTRIBUTION_PLUGIN_TIMEOUT" envDefault:"5s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the ledger needs to run.
func (c Config) Validate() error {
	var errs []error

	if _, err := parseAddress("DISTRIBUTION_ADMINISTRATOR", c.Administrator); err != nil {
		errs = append(errs, err)
	}
	if c.Token != TokenERC20 {
		if _, err := parseAddress("DISTRIBUTION_CUSTODY", c.Custody); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.Store {
	case storeopen.Memory:
	case storeopen.Postgres, storeopen.SQLite, storeopen.Mongo:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DISTRIBUTION_DATABASE_URL is required for store %q", c.Store))
		}
	default:
		errs = append(errs, fmt.Errorf("DISTRIBUTION_STORE: unknown store %q", c.Store))
	}

	switch c.Token {
	case TokenMemory:
	case TokenERC20:
		if _, err := parseAddress("DISTRIBUTION_TOKEN_ADDRESS", c.TokenAddress); err != nil {
			errs = append(errs, err)
		}
		if c.EthRPCURL == "" {
			errs = append(errs, errors.New("DISTRIBUTION_ETH_RPC_URL is required for the erc20 token"))
		}
		if c.CustodyKey == "" {
			errs = append(errs, errors.New("DISTRIBUTION_CUSTODY_KEY is required for the erc20 token"))
		}
	default:
		errs = append(errs, fmt.Errorf("DISTRIBUTION_TOKEN: unknown token %q", c.Token))
	}

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("DISTRIBUTION_JWT_SECRET is required"))
	}

	return errors.Join(errs...)
}

// AdministratorAddress returns the parsed administrator.
func (c Config) AdministratorAddress() (common.Address, error) {
	return parseAddress("DISTRIBUTION_ADMINISTRATOR", c.Administrator)
}

// CustodyAddress returns the parsed custody account.
func (c Config) CustodyAddress() (common.Address, error) {
	return parseAddress("DISTRIBUTION_CUSTODY", c.Custody)
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseAddress(name, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, fmt.Errorf("%s is required", name)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: %q is not an address", name, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s: zero address", name)
	}
	return addr, nil
}
