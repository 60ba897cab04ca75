package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/distribution"
	audithook "github.com/xraph/distribution/audit_hook"
	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/internal/config"
	"github.com/xraph/distribution/internal/storeopen"
	"github.com/xraph/distribution/internal/telemetry"
	"github.com/xraph/distribution/observability"
	redishook "github.com/xraph/distribution/redis_hook"
	"github.com/xraph/distribution/token"
	"github.com/xraph/distribution/token/erc20"
	tokenmem "github.com/xraph/distribution/token/memory"
	"github.com/xraph/distribution/types"
)

const serviceName = "distributiond"

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

// buildLedger opens the store and token named by cfg and returns a started
// ledger.
func buildLedger(ctx context.Context, cfg config.Config, logger *slog.Logger) (*distribution.Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	admin, err := cfg.AdministratorAddress()
	if err != nil {
		return nil, err
	}

	tok, custody, err := openToken(ctx, cfg, admin)
	if err != nil {
		return nil, err
	}

	s, err := storeopen.Open(ctx, cfg.Store, cfg.DatabaseURL, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}

	opts := []distribution.Option{
		distribution.WithCustody(custody),
		distribution.WithLogger(logger),
		distribution.WithPluginTimeout(cfg.PluginTimeout),
		distribution.WithPlugin(audithook.New(auditLog(logger), audithook.WithLogger(logger))),
		distribution.WithPlugin(observability.NewMetricsExtension(telemetry.NewMetrics(serviceName))),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		opts = append(opts, distribution.WithPlugin(redishook.New(rdb,
			redishook.WithStream(cfg.RedisStream),
			redishook.WithMaxLen(cfg.RedisMaxLen),
			redishook.WithLogger(logger),
			redishook.WithCloseOnShutdown(rdb),
		)))
	}

	l, err := distribution.New(caller.With(ctx, admin), s, tok, opts...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := l.Start(ctx); err != nil {
		_ = l.Stop()
		return nil, err
	}
	return l, nil
}

// openToken returns the token and the custody account that signs for it.
func openToken(ctx context.Context, cfg config.Config, admin common.Address) (token.Token, common.Address, error) {
	switch cfg.Token {
	case config.TokenERC20:
		return dialERC20(ctx, cfg)
	default:
		custody, err := cfg.CustodyAddress()
		if err != nil {
			return nil, common.Address{}, err
		}
		supply, err := types.ParseAmount(cfg.DevSupply)
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("DISTRIBUTION_DEV_SUPPLY: %w", err)
		}

		tok := tokenmem.New(admin)
		actx := caller.With(ctx, admin)
		if err := tok.Mint(actx, admin, supply); err != nil {
			return nil, common.Address{}, err
		}
		// Deposits pull from the administrator through custody's allowance.
		if err := tok.Approve(actx, custody, supply); err != nil {
			return nil, common.Address{}, err
		}
		return tok, custody, nil
	}
}

func dialERC20(ctx context.Context, cfg config.Config) (token.Token, common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.CustodyKey, "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("custody key: %w", err)
	}
	custody := crypto.PubkeyToAddress(key.PublicKey)

	client, err := ethclient.DialContext(ctx, cfg.EthRPCURL)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("dial %s: %w", cfg.EthRPCURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, common.Address{}, fmt.Errorf("chain id: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		client.Close()
		return nil, common.Address{}, err
	}

	opts := []erc20.Option{erc20.WithSigner(auth)}
	if cfg.WaitMined {
		opts = append(opts, erc20.WithWaitMined(client))
	}
	tok, err := erc20.Dial(common.HexToAddress(cfg.TokenAddress), client, opts...)
	if err != nil {
		client.Close()
		return nil, common.Address{}, err
	}
	return tok, custody, nil
}

// auditLog records audit events as structured log lines.
func auditLog(logger *slog.Logger) audithook.Recorder {
	return audithook.RecorderFunc(func(ctx context.Context, e *audithook.AuditEvent) error {
		level := slog.LevelInfo
		switch e.Severity {
		case audithook.SeverityWarning:
			level = slog.LevelWarn
		case audithook.SeverityError, audithook.SeverityCritical:
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "audit",
			slog.String("action", e.Action),
			slog.String("resource", e.Resource),
			slog.String("resource_id", e.ResourceID),
			slog.String("category", e.Category),
			slog.String("outcome", e.Outcome),
			slog.String("reason", e.Reason),
			slog.Any("metadata", e.Metadata),
		)
		return nil
	})
}
