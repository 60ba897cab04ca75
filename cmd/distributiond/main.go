// Command distributiond serves the reward-distribution ledger over HTTP.
//
// Usage:
//
//	distributiond [serve]              run the HTTP server
//	distributiond allocate [-dry-run] FILE
//	                                   credit the beneficiaries listed in FILE
//	distributiond token [-ttl D] ADDR  print a bearer token for ADDR
//
// All settings come from DISTRIBUTION_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xraph/distribution/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "distributiond: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return serve(ctx, cfg)
	case "allocate":
		return allocate(ctx, cfg, args)
	case "token":
		return issueToken(cfg, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
