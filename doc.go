// Package distribution provides a custodial reward-distribution ledger for
// Go applications.
//
// An administrator credits beneficiaries with reward entitlements and funds
// a token reserve held by a custody account. Beneficiaries claim their whole
// entitlement as a token transfer from custody. The ledger provides:
//
//   - Atomic single and batch crediting of entitlements
//   - Reserve deposits and emergency withdrawals through any ERC-20 style token
//   - A global lock that gates claims without blocking bookkeeping
//   - An append-only event log with per-operation grouping
//   - Pluggable hooks for audit trails, metrics and event streaming
//   - Memory, PostgreSQL, SQLite and MongoDB stores
//
// # Quick Start
//
// The identity constructing the ledger becomes its administrator:
//
//	import (
//	    "github.com/xraph/distribution"
//	    "github.com/xraph/distribution/caller"
//	    "github.com/xraph/distribution/store/memory"
//	)
//
//	ctx := caller.With(context.Background(), admin)
//	l, err := distribution.New(ctx, memory.New(), tok,
//	    distribution.WithCustody(custody),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start migrates the store and pins the administrator.
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Every command reads the acting identity from the context:
//
//	err := l.Deposit(caller.With(ctx, admin), distribution.NewAmount(1000))
//	err = l.AddBeneficiary(caller.With(ctx, admin), alice, distribution.NewAmount(40))
//	claimed, err := l.Claim(caller.With(ctx, alice))
//
// Crediting needs no reserve. The reserve is the custody account's live
// token balance; a claim fails when it is short and succeeds once the
// administrator tops it up.
//
// LockRewards(true) blocks claims only. Crediting and decreasing continue
// while locked.
//
// # Errors
//
// Failures wrap sentinel errors. Use IsAuthorization, IsValidation,
// IsSettlement and IsRetryable to classify them. A rejected command changes
// nothing.
//
// # TypeID
//
// Events and operations use TypeID for globally unique, type-safe
// identifiers:
//
//	evt_01h2xcejqtf2nbrexx3vqjhp41  // Event ID
//	op_01h455vb4pex5vsknk084sn02q   // Operation ID
//
// TypeIDs are K-sortable, so the event log has a natural time order.
package distribution
