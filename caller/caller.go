// Package caller carries the identity of whoever invokes a ledger or token
// operation through a context.Context.
//
// The HTTP layer, the daemon and tests attach the caller; the ledger and
// token collaborators read it back. A ledger calling its token attaches its
// own custody address, so the token sees the ledger as sender or spender.
package caller

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type ctxKey struct{}

// With returns a copy of ctx carrying addr as the caller.
func With(ctx context.Context, addr common.Address) context.Context {
	return context.WithValue(ctx, ctxKey{}, addr)
}

// From returns the caller stored in ctx. ok is false when no caller was
// attached or the attached caller is the zero address.
func From(ctx context.Context) (addr common.Address, ok bool) {
	addr, ok = ctx.Value(ctxKey{}).(common.Address)
	if !ok || addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}
