package distribution

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/caller"
)

// Operation names a ledger command.
type Operation string

const (
	OpDeposit           Operation = "deposit"
	OpAddBeneficiary    Operation = "add_beneficiary"
	OpAddBeneficiaries  Operation = "add_beneficiaries"
	OpDecreaseReward    Operation = "decrease_reward"
	OpEmergencyWithdraw Operation = "emergency_withdraw"
	OpLockRewards       Operation = "lock_rewards"
	OpClaim             Operation = "claim"
)

// Privileged reports whether op passes through the access policy.
// Claim is open to any caller acting on their own behalf.
func (op Operation) Privileged() bool {
	return op != OpClaim
}

// AccessPolicy decides whether who may run a privileged operation.
// Implementations return an error wrapping ErrUnauthorized to deny.
type AccessPolicy interface {
	Authorize(ctx context.Context, who, administrator common.Address, op Operation) error
}

// AccessPolicyFunc adapts a function to AccessPolicy.
type AccessPolicyFunc func(ctx context.Context, who, administrator common.Address, op Operation) error

// Authorize implements AccessPolicy.
func (f AccessPolicyFunc) Authorize(ctx context.Context, who, administrator common.Address, op Operation) error {
	return f(ctx, who, administrator, op)
}

// AdministratorOnly admits the administrator and nobody else.
var AdministratorOnly AccessPolicy = AccessPolicyFunc(
	func(_ context.Context, who, administrator common.Address, op Operation) error {
		if who != administrator {
			return fmt.Errorf("%w: %s may not %s", ErrUnauthorized, who.Hex(), op)
		}
		return nil
	},
)

// authorize resolves the caller and checks it against the policy.
func (l *Ledger) authorize(ctx context.Context, op Operation) (common.Address, error) {
	who, ok := caller.From(ctx)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no caller identity", ErrUnauthorized)
	}
	if err := l.policy.Authorize(ctx, who, l.administrator, op); err != nil {
		return who, err
	}
	return who, nil
}
