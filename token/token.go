// Package token defines the fungible-token collaborator the distribution
// ledger settles against.
//
// Implementations read the acting identity (sender for Transfer, spender for
// TransferFrom) from the context via the caller package. A failed transfer
// is reported as an error and must leave balances untouched.
package token

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/types"
)

// Sentinel errors reported by token implementations.
var (
	ErrNoCaller              = errors.New("token: no caller in context")
	ErrZeroAddress           = errors.New("token: zero address")
	ErrInsufficientBalance   = errors.New("token: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("token: transfer amount exceeds allowance")
	ErrAllowanceBelowZero    = errors.New("token: decreased allowance below zero")
	ErrNotOwner              = errors.New("token: caller is not the owner")
	ErrTransferFailed        = errors.New("token: transfer failed")
	ErrSenderMismatch        = errors.New("token: caller does not match signing account")
)

// Token is the balance-and-transfer capability required by the ledger.
type Token interface {
	// BalanceOf returns the balance held by holder.
	BalanceOf(ctx context.Context, holder common.Address) (types.Amount, error)

	// Transfer moves amount from the context caller to to.
	Transfer(ctx context.Context, to common.Address, amount types.Amount) error

	// TransferFrom moves amount from from to to, spending the allowance
	// from granted to the context caller.
	TransferFrom(ctx context.Context, from, to common.Address, amount types.Amount) error
}

// Metadata is implemented by tokens that expose ERC-20 descriptive fields.
type Metadata interface {
	Name() string
	Symbol() string
	Decimals() uint8
}
