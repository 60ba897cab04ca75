package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/xraph/distribution/allocation"
	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/internal/config"
)

func allocate(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("allocate", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "validate the file without crediting anyone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: distributiond allocate [-dry-run] FILE")
	}

	plan, err := allocation.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("%d beneficiaries, total %s\n", plan.Len(), plan.Total())
	if *dryRun || plan.Len() == 0 {
		return nil
	}

	logger := newLogger(cfg)
	l, err := buildLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = l.Stop() }()

	if err := plan.Apply(caller.With(ctx, l.Administrator()), l); err != nil {
		return err
	}

	outstanding, err := l.Outstanding(ctx)
	if err != nil {
		return err
	}
	reserve, err := l.Reserve(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("allocated; outstanding %s, reserve %s\n", outstanding, reserve)
	if outstanding.GreaterThan(reserve) {
		fmt.Printf("warning: reserve is short by %s\n", outstanding.SaturatingSub(reserve))
	}
	return nil
}
