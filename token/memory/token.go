// Package memory provides an in-process ERC-20 style token.
//
// It models TEVA: an owner-minted, burnable token with allowance-based
// delegated transfers. It is suitable for tests, demos and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/token"
	"github.com/xraph/distribution/types"
)

// Default TEVA metadata.
const (
	DefaultName     = "Teva token"
	DefaultSymbol   = "TEVA"
	DefaultDecimals = 18
)

// TransferHook runs before a transfer moves any balance. Returning an error
// aborts the transfer. The token lock is not held while it runs, so the hook
// may call back into the token or into a ledger that uses it.
type TransferHook func(ctx context.Context, from, to common.Address, amount types.Amount) error

// compile-time interface checks
var (
	_ token.Token    = (*Token)(nil)
	_ token.Metadata = (*Token)(nil)
)

// Token is an in-memory fungible token.
type Token struct {
	mu sync.RWMutex

	name     string
	symbol   string
	decimals uint8
	owner    common.Address
	hook     TransferHook

	totalSupply types.Amount
	balances    map[common.Address]types.Amount
	allowances  map[common.Address]map[common.Address]types.Amount
}

// Option configures a Token.
type Option func(*Token)

// WithMetadata overrides the name, symbol and decimals.
func WithMetadata(name, symbol string, decimals uint8) Option {
	return func(t *Token) {
		t.name = name
		t.symbol = symbol
		t.decimals = decimals
	}
}

// WithTransferHook installs a hook invoked on every Transfer and TransferFrom.
func WithTransferHook(h TransferHook) Option {
	return func(t *Token) { t.hook = h }
}

// New creates a token whose minting rights belong to owner.
func New(owner common.Address, opts ...Option) *Token {
	t := &Token{
		name:       DefaultName,
		symbol:     DefaultSymbol,
		decimals:   DefaultDecimals,
		owner:      owner,
		balances:   make(map[common.Address]types.Amount),
		allowances: make(map[common.Address]map[common.Address]types.Amount),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetTransferHook replaces the transfer hook. Pass nil to remove it.
func (t *Token) SetTransferHook(h TransferHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = h
}

// Name implements token.Metadata.
func (t *Token) Name() string { return t.name }

// Symbol implements token.Metadata.
func (t *Token) Symbol() string { return t.symbol }

// Decimals implements token.Metadata.
func (t *Token) Decimals() uint8 { return t.decimals }

// Owner returns the account allowed to mint.
func (t *Token) Owner() common.Address { return t.owner }

// TotalSupply returns the amount in circulation.
func (t *Token) TotalSupply() types.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply
}

// BalanceOf implements token.Token.
func (t *Token) BalanceOf(_ context.Context, holder common.Address) (types.Amount, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[holder], nil
}

// Allowance returns how much spender may still move on behalf of holder.
func (t *Token) Allowance(_ context.Context, holder, spender common.Address) (types.Amount, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowances[holder][spender], nil
}

// ──────────────────────────────────────────────────
// Supply
// ──────────────────────────────────────────────────

// Mint creates amount new tokens for to. Only the owner may mint.
func (t *Token) Mint(ctx context.Context, to common.Address, amount types.Amount) error {
	from, err := actor(ctx)
	if err != nil {
		return err
	}
	if from != t.owner {
		return token.ErrNotOwner
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: mint to the zero address", token.ErrZeroAddress)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalSupply = t.totalSupply.Add(amount)
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}

// Burn destroys amount of the caller's tokens.
func (t *Token) Burn(ctx context.Context, amount types.Amount) error {
	from, err := actor(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	left, err := t.balances[from].Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: burn amount exceeds balance", token.ErrInsufficientBalance)
	}
	t.balances[from] = left
	t.totalSupply = t.totalSupply.SaturatingSub(amount)
	return nil
}

// ──────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────

// Transfer implements token.Token.
func (t *Token) Transfer(ctx context.Context, to common.Address, amount types.Amount) error {
	from, err := actor(ctx)
	if err != nil {
		return err
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: transfer to the zero address", token.ErrZeroAddress)
	}
	if err := t.runHook(ctx, from, to, amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// TransferFrom implements token.Token.
func (t *Token) TransferFrom(ctx context.Context, from, to common.Address, amount types.Amount) error {
	spender, err := actor(ctx)
	if err != nil {
		return err
	}
	if from == (common.Address{}) || to == (common.Address{}) {
		return fmt.Errorf("%w: transfer from or to the zero address", token.ErrZeroAddress)
	}
	if err := t.runHook(ctx, from, to, amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	left, err := t.allowances[from][spender].Sub(amount)
	if err != nil {
		return token.ErrInsufficientAllowance
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	t.setAllowance(from, spender, left)
	return nil
}

// ──────────────────────────────────────────────────
// Allowances
// ──────────────────────────────────────────────────

// Approve sets the caller's allowance for spender to amount.
func (t *Token) Approve(ctx context.Context, spender common.Address, amount types.Amount) error {
	holder, err := actor(ctx)
	if err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return fmt.Errorf("%w: approve to the zero address", token.ErrZeroAddress)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.setAllowance(holder, spender, amount)
	return nil
}

// IncreaseAllowance raises the caller's allowance for spender by added.
func (t *Token) IncreaseAllowance(ctx context.Context, spender common.Address, added types.Amount) error {
	holder, err := actor(ctx)
	if err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return fmt.Errorf("%w: approve to the zero address", token.ErrZeroAddress)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.setAllowance(holder, spender, t.allowances[holder][spender].Add(added))
	return nil
}

// DecreaseAllowance lowers the caller's allowance for spender by subtracted.
func (t *Token) DecreaseAllowance(ctx context.Context, spender common.Address, subtracted types.Amount) error {
	holder, err := actor(ctx)
	if err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return fmt.Errorf("%w: approve to the zero address", token.ErrZeroAddress)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	left, err := t.allowances[holder][spender].Sub(subtracted)
	if err != nil {
		return token.ErrAllowanceBelowZero
	}
	t.setAllowance(holder, spender, left)
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// move requires t.mu held for writing.
func (t *Token) move(from, to common.Address, amount types.Amount) error {
	left, err := t.balances[from].Sub(amount)
	if err != nil {
		return token.ErrInsufficientBalance
	}
	t.balances[from] = left
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}

// setAllowance requires t.mu held for writing.
func (t *Token) setAllowance(holder, spender common.Address, amount types.Amount) {
	m, ok := t.allowances[holder]
	if !ok {
		m = make(map[common.Address]types.Amount)
		t.allowances[holder] = m
	}
	m[spender] = amount
}

func (t *Token) runHook(ctx context.Context, from, to common.Address, amount types.Amount) error {
	t.mu.RLock()
	h := t.hook
	t.mu.RUnlock()
	if h == nil {
		return nil
	}
	if err := h(ctx, from, to, amount); err != nil {
		return fmt.Errorf("%w: %w", token.ErrTransferFailed, err)
	}
	return nil
}

func actor(ctx context.Context) (common.Address, error) {
	addr, ok := caller.From(ctx)
	if !ok {
		return common.Address{}, token.ErrNoCaller
	}
	return addr, nil
}
