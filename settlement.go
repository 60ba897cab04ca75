package distribution

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/id"
	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/types"
)

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// Deposit pulls amount from the administrator into custody. The
// administrator must have approved the custody account for at least
// amount; token errors are returned wrapped.
func (l *Ledger) Deposit(ctx context.Context, amount types.Amount) error {
	ctx, span := l.startSpan(ctx, OpDeposit, attrAmount.String(amount.String()))
	defer span.End()

	who, err := l.authorize(ctx, OpDeposit)
	if err != nil {
		return l.fail(ctx, span, OpDeposit, who, err)
	}
	if err := validateAmount(amount); err != nil {
		return l.fail(ctx, span, OpDeposit, who, err)
	}

	if err := l.token.TransferFrom(l.custodyCtx(ctx), l.administrator, l.custody, amount); err != nil {
		return l.fail(ctx, span, OpDeposit, who, fmt.Errorf("distribution: deposit transfer: %w", err))
	}

	ev := event.Deposit(id.NewOperationID(), l.administrator, amount)
	recordErr := l.record(ctx, ev)
	// Hooks get the event even when the log write failed.
	l.publish(ctx, []*event.Event{ev})
	if recordErr != nil {
		return l.fail(ctx, span, OpDeposit, who, recordErr)
	}

	l.logger.Info("reserve deposited",
		"from", l.administrator.Hex(),
		"amount", amount.String(),
	)
	return nil
}

// EmergencyWithdraw returns amount from custody to the administrator. It is
// bounded by the live reserve only, not by outstanding entitlements.
func (l *Ledger) EmergencyWithdraw(ctx context.Context, amount types.Amount) error {
	ctx, span := l.startSpan(ctx, OpEmergencyWithdraw, attrAmount.String(amount.String()))
	defer span.End()

	who, err := l.authorize(ctx, OpEmergencyWithdraw)
	if err != nil {
		return l.fail(ctx, span, OpEmergencyWithdraw, who, err)
	}
	if err := validateAmount(amount); err != nil {
		return l.fail(ctx, span, OpEmergencyWithdraw, who, err)
	}

	l.mu.Lock()
	available, err := l.availableLocked(ctx)
	if err != nil {
		l.mu.Unlock()
		return l.fail(ctx, span, OpEmergencyWithdraw, who, err)
	}
	if amount.GreaterThan(available) {
		l.mu.Unlock()
		err := fmt.Errorf("%w: withdraw %s, reserve %s", ErrInsufficientReserve, amount, available)
		return l.fail(ctx, span, OpEmergencyWithdraw, who, err)
	}
	l.inflight = l.inflight.Add(amount)
	l.mu.Unlock()

	err = l.token.Transfer(l.custodyCtx(ctx), l.administrator, amount)

	l.mu.Lock()
	l.inflight = l.inflight.SaturatingSub(amount)
	l.mu.Unlock()

	if err != nil {
		return l.fail(ctx, span, OpEmergencyWithdraw, who, fmt.Errorf("distribution: withdraw transfer: %w", err))
	}

	ev := event.EmergencyWithdraw(id.NewOperationID(), l.administrator, amount)
	recordErr := l.record(ctx, ev)
	// Hooks get the event even when the log write failed.
	l.publish(ctx, []*event.Event{ev})
	if recordErr != nil {
		return l.fail(ctx, span, OpEmergencyWithdraw, who, recordErr)
	}

	l.logger.Warn("emergency withdrawal",
		"to", l.administrator.Hex(),
		"amount", amount.String(),
	)
	return nil
}

// Claim pays the caller their whole entitlement and returns the amount
// paid. Preconditions are checked in order: a non-zero entitlement, the
// lock switch, then the live reserve.
//
// The entitlement is zeroed before the transfer starts, so a transfer that
// calls back into Claim sees nothing to claim. If the transfer fails the
// entitlement is credited back and no Claim event is recorded.
//
// If the transfer succeeds but the event cannot be stored, Claim returns
// the amount paid together with an error wrapping ErrEventNotRecorded.
func (l *Ledger) Claim(ctx context.Context) (types.Amount, error) {
	ctx, span := l.startSpan(ctx, OpClaim)
	defer span.End()

	who, ok := caller.From(ctx)
	if !ok {
		return types.Zero, l.fail(ctx, span, OpClaim, who, fmt.Errorf("%w: no caller identity", ErrUnauthorized))
	}
	span.SetAttributes(attrCaller.String(who.Hex()))

	owed, err := l.reserveClaim(ctx, who)
	if err != nil {
		return types.Zero, l.fail(ctx, span, OpClaim, who, err)
	}
	span.SetAttributes(attrAmount.String(owed.String()))

	err = l.token.Transfer(l.custodyCtx(ctx), who, owed)

	var restoreErr error
	l.mu.Lock()
	l.inflight = l.inflight.SaturatingSub(owed)
	if err != nil {
		restoreErr = l.restoreLocked(context.WithoutCancel(ctx), who, owed)
	}
	l.mu.Unlock()

	if restoreErr != nil {
		l.plugins.EmitOperationFailed(ctx, string(OpClaim), who, restoreErr)
	}
	if err != nil {
		return types.Zero, l.fail(ctx, span, OpClaim, who, fmt.Errorf("distribution: claim transfer: %w", err))
	}

	ev := event.Claim(id.NewOperationID(), who, owed)
	recordErr := l.record(ctx, ev)
	// Hooks get the event even when the log write failed.
	l.publish(ctx, []*event.Event{ev})
	if recordErr != nil {
		return owed, l.fail(ctx, span, OpClaim, who, recordErr)
	}

	l.logger.Info("reward claimed",
		"beneficiary", who.Hex(),
		"amount", owed.String(),
	)
	return owed, nil
}

// reserveClaim validates a claim and commits the entitlement to zero.
// The returned amount is counted as in flight.
func (l *Ledger) reserveClaim(ctx context.Context, who common.Address) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	owed, err := l.store.GetEntitlement(ctx, who)
	if err != nil {
		return types.Zero, err
	}
	if owed.IsZero() {
		return types.Zero, fmt.Errorf("%w: %s", ErrNothingToClaim, who.Hex())
	}

	locked, err := l.store.IsLocked(ctx)
	if err != nil {
		return types.Zero, err
	}
	if locked {
		return types.Zero, ErrRewardsLocked
	}

	available, err := l.availableLocked(ctx)
	if err != nil {
		return types.Zero, err
	}
	if owed.GreaterThan(available) {
		return types.Zero, fmt.Errorf("%w: owed %s, reserve %s", ErrInsufficientReserve, owed, available)
	}

	err = l.store.Apply(ctx, &store.Mutation{
		Changes: []entitlement.Change{{Beneficiary: who, Before: owed, After: types.Zero}},
	})
	if err != nil {
		return types.Zero, err
	}

	l.inflight = l.inflight.Add(owed)
	return owed, nil
}

// restoreLocked credits back a claim whose transfer failed. The current
// value is re-read because bookkeeping may have run during the transfer.
// l.mu must be held.
func (l *Ledger) restoreLocked(ctx context.Context, who common.Address, owed types.Amount) error {
	current, err := l.store.GetEntitlement(ctx, who)
	if err == nil {
		err = l.store.Apply(ctx, &store.Mutation{
			Changes: []entitlement.Change{{Beneficiary: who, Before: current, After: current.Add(owed)}},
		})
	}
	if err != nil {
		l.logger.Error("failed to restore entitlement after failed claim",
			"beneficiary", who.Hex(),
			"amount", owed.String(),
			"error", err,
		)
		return fmt.Errorf("distribution: restore %s to %s after failed claim: %w", owed, who.Hex(), err)
	}
	return nil
}

// record appends events that follow a completed transfer. Its errors wrap
// ErrEventNotRecorded.
func (l *Ledger) record(ctx context.Context, events ...*event.Event) error {
	if err := l.store.Apply(ctx, &store.Mutation{Events: events}); err != nil {
		l.logger.Error("transfer completed but event not recorded",
			"kind", string(events[0].Kind),
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrEventNotRecorded, err)
	}
	return nil
}
