package distribution

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/id"
	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/types"
)

// ──────────────────────────────────────────────────
// Entitlement Management
// ──────────────────────────────────────────────────

// AddBeneficiary raises beneficiary's entitlement by amount. No reserve
// check is made: an entitlement may exceed what custody currently holds.
func (l *Ledger) AddBeneficiary(ctx context.Context, beneficiary common.Address, amount types.Amount) error {
	ctx, span := l.startSpan(ctx, OpAddBeneficiary,
		attrBeneficiary.String(beneficiary.Hex()),
		attrAmount.String(amount.String()),
	)
	defer span.End()

	who, err := l.authorize(ctx, OpAddBeneficiary)
	if err != nil {
		return l.fail(ctx, span, OpAddBeneficiary, who, err)
	}
	if err := validatePair(beneficiary, amount); err != nil {
		return l.fail(ctx, span, OpAddBeneficiary, who, err)
	}

	events, err := l.credit(ctx, []common.Address{beneficiary}, []types.Amount{amount})
	if err != nil {
		return l.fail(ctx, span, OpAddBeneficiary, who, err)
	}

	l.publish(ctx, events)
	l.logger.Info("beneficiary added",
		"beneficiary", beneficiary.Hex(),
		"amount", amount.String(),
		"balance", events[0].BalanceAfter.String(),
	)
	return nil
}

// AddBeneficiaries credits each beneficiary with the amount at the same
// index. Every pair is validated before anything is written; one bad pair
// rejects the whole batch with a *BatchError. A beneficiary listed more
// than once is credited once per occurrence, in order.
func (l *Ledger) AddBeneficiaries(ctx context.Context, beneficiaries []common.Address, amounts []types.Amount) error {
	ctx, span := l.startSpan(ctx, OpAddBeneficiaries, attrBatchSize.Int(len(beneficiaries)))
	defer span.End()

	who, err := l.authorize(ctx, OpAddBeneficiaries)
	if err != nil {
		return l.fail(ctx, span, OpAddBeneficiaries, who, err)
	}
	if len(beneficiaries) != len(amounts) {
		err := fmt.Errorf("%w: %d beneficiaries, %d amounts", ErrLengthMismatch, len(beneficiaries), len(amounts))
		return l.fail(ctx, span, OpAddBeneficiaries, who, err)
	}
	for i := range beneficiaries {
		if err := validatePair(beneficiaries[i], amounts[i]); err != nil {
			return l.fail(ctx, span, OpAddBeneficiaries, who, &BatchError{Index: i, Err: err})
		}
	}
	if len(beneficiaries) == 0 {
		return nil
	}

	events, err := l.credit(ctx, beneficiaries, amounts)
	if err != nil {
		return l.fail(ctx, span, OpAddBeneficiaries, who, err)
	}

	l.publish(ctx, events)
	l.logger.Info("beneficiaries added",
		"count", len(beneficiaries),
		"total", types.Sum(amounts...).String(),
	)
	return nil
}

// DecreaseReward lowers beneficiary's entitlement by amount.
func (l *Ledger) DecreaseReward(ctx context.Context, beneficiary common.Address, amount types.Amount) error {
	ctx, span := l.startSpan(ctx, OpDecreaseReward,
		attrBeneficiary.String(beneficiary.Hex()),
		attrAmount.String(amount.String()),
	)
	defer span.End()

	who, err := l.authorize(ctx, OpDecreaseReward)
	if err != nil {
		return l.fail(ctx, span, OpDecreaseReward, who, err)
	}
	if err := validatePair(beneficiary, amount); err != nil {
		return l.fail(ctx, span, OpDecreaseReward, who, err)
	}

	l.mu.Lock()
	before, err := l.store.GetEntitlement(ctx, beneficiary)
	if err != nil {
		l.mu.Unlock()
		return l.fail(ctx, span, OpDecreaseReward, who, err)
	}
	after, err := before.Sub(amount)
	if err != nil {
		l.mu.Unlock()
		err = fmt.Errorf("%w: %s has %s, decrease of %s", ErrInsufficientEntitlement, beneficiary.Hex(), before, amount)
		return l.fail(ctx, span, OpDecreaseReward, who, err)
	}

	ev := event.BalanceChanged(id.NewOperationID(), beneficiary, before, after)
	err = l.store.Apply(ctx, &store.Mutation{
		Changes: []entitlement.Change{{Beneficiary: beneficiary, Before: before, After: after}},
		Events:  []*event.Event{ev},
	})
	l.mu.Unlock()
	if err != nil {
		return l.fail(ctx, span, OpDecreaseReward, who, err)
	}

	l.publish(ctx, []*event.Event{ev})
	l.logger.Info("reward decreased",
		"beneficiary", beneficiary.Hex(),
		"amount", amount.String(),
		"balance", after.String(),
	)
	return nil
}

// ──────────────────────────────────────────────────
// Lock Switch
// ──────────────────────────────────────────────────

// LockRewards sets the lock switch. While locked every claim fails with
// ErrRewardsLocked; administrative bookkeeping is unaffected.
func (l *Ledger) LockRewards(ctx context.Context, locked bool) error {
	ctx, span := l.startSpan(ctx, OpLockRewards, attrLocked.Bool(locked))
	defer span.End()

	who, err := l.authorize(ctx, OpLockRewards)
	if err != nil {
		return l.fail(ctx, span, OpLockRewards, who, err)
	}

	ev := event.LockRewards(id.NewOperationID(), locked)

	l.mu.Lock()
	err = l.store.Apply(ctx, &store.Mutation{Locked: &locked, Events: []*event.Event{ev}})
	l.mu.Unlock()
	if err != nil {
		return l.fail(ctx, span, OpLockRewards, who, err)
	}

	l.publish(ctx, []*event.Event{ev})
	l.logger.Info("rewards lock set", "locked", locked)
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// credit adds amounts[i] to beneficiaries[i] in one atomic mutation and
// returns the committed events. Pairs must already be validated.
func (l *Ledger) credit(ctx context.Context, beneficiaries []common.Address, amounts []types.Amount) ([]*event.Event, error) {
	op := id.NewOperationID()

	l.mu.Lock()
	defer l.mu.Unlock()

	running := make(map[common.Address]types.Amount, len(beneficiaries))
	changes := make([]entitlement.Change, 0, len(beneficiaries))
	events := make([]*event.Event, 0, len(beneficiaries))

	for i, b := range beneficiaries {
		before, ok := running[b]
		if !ok {
			current, err := l.store.GetEntitlement(ctx, b)
			if err != nil {
				return nil, err
			}
			before = current
		}
		after := before.Add(amounts[i])
		running[b] = after

		changes = append(changes, entitlement.Change{Beneficiary: b, Before: before, After: after})
		events = append(events, event.BalanceChanged(op, b, before, after))
	}

	if err := l.store.Apply(ctx, &store.Mutation{Changes: changes, Events: events}); err != nil {
		return nil, err
	}
	return events, nil
}

func validatePair(beneficiary common.Address, amount types.Amount) error {
	if beneficiary == (common.Address{}) {
		return ValidationError{Field: "beneficiary", Message: "zero address", Err: ErrInvalidBeneficiary}
	}
	return validateAmount(amount)
}

func validateAmount(amount types.Amount) error {
	if amount.IsZero() {
		return ValidationError{Field: "amount", Message: "must be greater than zero", Err: ErrInvalidAmount}
	}
	return nil
}
