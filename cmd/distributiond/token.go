package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/api"
	"github.com/xraph/distribution/internal/config"
)

func issueToken(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	ttl := fs.Duration("ttl", cfg.JWTTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || !common.IsHexAddress(fs.Arg(0)) {
		return errors.New("usage: distributiond token [-ttl D] ADDRESS")
	}

	signer, err := api.NewSigner([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	if err != nil {
		return err
	}
	tok, err := signer.Issue(common.HexToAddress(fs.Arg(0)), *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
