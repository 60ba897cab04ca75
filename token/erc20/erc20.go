// Package erc20 adapts an on-chain ERC-20 contract to token.Token.
//
// Reads go through eth_call. Writes are signed with the configured
// TransactOpts, whose From address must match the caller carried in the
// context: the ledger only ever moves funds as its custody account.
package erc20

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/token"
	"github.com/xraph/distribution/types"
)

// ABI is the subset of the ERC-20 interface the adapter calls.
const ABI = `[
 {"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
 {"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
 {"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var _ token.Token = (*Token)(nil)

// Token is a bound ERC-20 contract.
type Token struct {
	address  common.Address
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	deploy   bind.DeployBackend
}

// Option configures a Token.
type Option func(*Token)

// WithSigner sets the transaction signer used for transfer calls.
func WithSigner(auth *bind.TransactOpts) Option {
	return func(t *Token) { t.auth = auth }
}

// WithWaitMined makes writes block until the transaction is mined and
// treats a reverted receipt as a failed transfer.
func WithWaitMined(b bind.DeployBackend) Option {
	return func(t *Token) { t.deploy = b }
}

// New binds the contract at address. transactor may be nil for a
// read-only token.
func New(address common.Address, reader bind.ContractCaller, transactor bind.ContractTransactor, opts ...Option) (*Token, error) {
	parsed, err := abi.JSON(strings.NewReader(ABI))
	if err != nil {
		return nil, fmt.Errorf("erc20: parse abi: %w", err)
	}

	t := &Token{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, reader, transactor, nil),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Dial binds the contract using a single backend such as *ethclient.Client.
func Dial(address common.Address, backend bind.ContractBackend, opts ...Option) (*Token, error) {
	return New(address, backend, backend, opts...)
}

// Address returns the contract address.
func (t *Token) Address() common.Address { return t.address }

// BalanceOf implements token.Token.
func (t *Token) BalanceOf(ctx context.Context, holder common.Address) (types.Amount, error) {
	var out []any
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", holder); err != nil {
		return types.Zero, fmt.Errorf("erc20: balanceOf: %w", err)
	}
	if len(out) == 0 {
		return types.Zero, fmt.Errorf("erc20: balanceOf: empty result")
	}
	v := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return types.AmountFromBig(v)
}

// Transfer implements token.Token.
func (t *Token) Transfer(ctx context.Context, to common.Address, amount types.Amount) error {
	auth, err := t.signer(ctx)
	if err != nil {
		return err
	}
	tx, err := t.contract.Transact(auth, "transfer", to, amount.Big())
	if err != nil {
		return fmt.Errorf("%w: transfer: %w", token.ErrTransferFailed, err)
	}
	return t.wait(ctx, tx)
}

// TransferFrom implements token.Token.
func (t *Token) TransferFrom(ctx context.Context, from, to common.Address, amount types.Amount) error {
	auth, err := t.signer(ctx)
	if err != nil {
		return err
	}
	tx, err := t.contract.Transact(auth, "transferFrom", from, to, amount.Big())
	if err != nil {
		return fmt.Errorf("%w: transferFrom: %w", token.ErrTransferFailed, err)
	}
	return t.wait(ctx, tx)
}

func (t *Token) signer(ctx context.Context) (*bind.TransactOpts, error) {
	who, ok := caller.From(ctx)
	if !ok {
		return nil, token.ErrNoCaller
	}
	if t.auth == nil {
		return nil, fmt.Errorf("%w: no signer configured", token.ErrTransferFailed)
	}
	if who != t.auth.From {
		return nil, fmt.Errorf("%w: caller %s, signer %s", token.ErrSenderMismatch, who.Hex(), t.auth.From.Hex())
	}

	auth := *t.auth
	auth.Context = ctx
	return &auth, nil
}

func (t *Token) wait(ctx context.Context, tx *ethtypes.Transaction) error {
	if t.deploy == nil || tx == nil {
		return nil
	}
	receipt, err := bind.WaitMined(ctx, t.deploy, tx)
	if err != nil {
		return fmt.Errorf("%w: wait mined: %w", token.ErrTransferFailed, err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: transaction %s reverted", token.ErrTransferFailed, tx.Hash().Hex())
	}
	return nil
}
