package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/types"
)

// Mutation is a set of writes committed atomically by Apply.
//
// Changes are applied in order. Each change is checked against the value
// current at that point in the mutation, so a beneficiary may appear more
// than once. If any check fails nothing is written and Apply returns an
// error wrapping distribution.ErrConflict.
type Mutation struct {
	Changes []entitlement.Change
	// Locked, when non-nil, sets the lock switch.
	Locked *bool
	Events []*event.Event
}

// Empty reports whether the mutation writes nothing.
func (m *Mutation) Empty() bool {
	return m == nil || (len(m.Changes) == 0 && m.Locked == nil && len(m.Events) == 0)
}

// Store is the unified storage interface for the distribution ledger.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Entitlement methods
	GetEntitlement(ctx context.Context, beneficiary common.Address) (types.Amount, error)
	ListEntitlements(ctx context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error)

	// Event methods
	ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error)

	// Settings methods

	// InitSettings records admin as the administrator if none is stored yet
	// and returns the stored administrator.
	InitSettings(ctx context.Context, admin common.Address) (common.Address, error)
	// IsLocked returns the lock switch; false when never set.
	IsLocked(ctx context.Context) (bool, error)

	// Apply commits m atomically.
	Apply(ctx context.Context, m *Mutation) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
