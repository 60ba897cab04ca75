package audithook_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	audithook "github.com/xraph/distribution/audit_hook"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/id"
	"github.com/xraph/distribution/types"
)

var (
	admin = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000001")
)

type sink struct {
	events []*audithook.AuditEvent
	err    error
}

func (s *sink) Record(_ context.Context, e *audithook.AuditEvent) error {
	s.events = append(s.events, e)
	return s.err
}

func newExtension(s *sink, opts ...audithook.Option) *audithook.Extension {
	opts = append([]audithook.Option{audithook.WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return audithook.New(s, opts...)
}

func TestEventHooks(t *testing.T) {
	op := id.NewOperationID()
	ctx := context.Background()

	tests := []struct {
		name     string
		fire     func(*audithook.Extension) error
		action   string
		severity string
		resource string
	}{
		{
			name: "balance changed",
			fire: func(e *audithook.Extension) error {
				return e.OnBeneficiaryBalanceChanged(ctx, event.BalanceChanged(op, alice, types.Zero, types.NewAmount(5)))
			},
			action:   audithook.ActionBalanceChanged,
			severity: audithook.SeverityInfo,
			resource: alice.Hex(),
		},
		{
			name: "deposit",
			fire: func(e *audithook.Extension) error {
				return e.OnDeposit(ctx, event.Deposit(op, admin, types.NewAmount(100)))
			},
			action:   audithook.ActionDeposit,
			severity: audithook.SeverityInfo,
			resource: admin.Hex(),
		},
		{
			name: "emergency withdraw",
			fire: func(e *audithook.Extension) error {
				return e.OnEmergencyWithdraw(ctx, event.EmergencyWithdraw(op, admin, types.NewAmount(100)))
			},
			action:   audithook.ActionEmergencyWithdraw,
			severity: audithook.SeverityCritical,
			resource: admin.Hex(),
		},
		{
			name: "claim",
			fire: func(e *audithook.Extension) error {
				return e.OnClaim(ctx, event.Claim(op, alice, types.NewAmount(5)))
			},
			action:   audithook.ActionClaim,
			severity: audithook.SeverityInfo,
			resource: alice.Hex(),
		},
		{
			name: "lock",
			fire: func(e *audithook.Extension) error {
				return e.OnLockRewards(ctx, event.LockRewards(op, true))
			},
			action:   audithook.ActionRewardsLocked,
			severity: audithook.SeverityWarning,
		},
		{
			name: "unlock",
			fire: func(e *audithook.Extension) error {
				return e.OnLockRewards(ctx, event.LockRewards(op, false))
			},
			action:   audithook.ActionRewardsUnlock,
			severity: audithook.SeverityInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &sink{}
			if err := tt.fire(newExtension(s)); err != nil {
				t.Fatalf("hook returned %v", err)
			}
			if len(s.events) != 1 {
				t.Fatalf("recorded %d events, want 1", len(s.events))
			}
			got := s.events[0]
			if got.Action != tt.action {
				t.Errorf("action = %q, want %q", got.Action, tt.action)
			}
			if got.Severity != tt.severity {
				t.Errorf("severity = %q, want %q", got.Severity, tt.severity)
			}
			if got.ResourceID != tt.resource {
				t.Errorf("resource id = %q, want %q", got.ResourceID, tt.resource)
			}
			if got.Outcome != audithook.OutcomeSuccess {
				t.Errorf("outcome = %q", got.Outcome)
			}
			if got.Metadata["operation_id"] != nil && got.Metadata["operation_id"] != op.String() {
				t.Errorf("operation_id = %v, want %s", got.Metadata["operation_id"], op)
			}
		})
	}
}

func TestOperationFailedClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		action   string
		severity string
		category string
	}{
		{"denied", fmt.Errorf("deposit: %w", distribution.ErrUnauthorized),
			audithook.ActionOperationDenied, audithook.SeverityWarning, audithook.CategoryAccess},
		{"invalid", distribution.ErrInvalidAmount,
			audithook.ActionOperationFailed, audithook.SeverityInfo, audithook.CategorySettlement},
		{"settlement", distribution.ErrInsufficientReserve,
			audithook.ActionOperationFailed, audithook.SeverityError, audithook.CategorySettlement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &sink{}
			ext := newExtension(s)
			if err := ext.OnOperationFailed(context.Background(), "claim", alice, tt.err); err != nil {
				t.Fatal(err)
			}
			got := s.events[0]
			if got.Action != tt.action || got.Severity != tt.severity || got.Category != tt.category {
				t.Errorf("got %s/%s/%s, want %s/%s/%s",
					got.Action, got.Severity, got.Category, tt.action, tt.severity, tt.category)
			}
			if got.Outcome != audithook.OutcomeFailure || got.Reason != tt.err.Error() {
				t.Errorf("outcome = %q, reason = %q", got.Outcome, got.Reason)
			}
			if got.ResourceID != "claim" || got.Metadata["caller"] != alice.Hex() {
				t.Errorf("resource = %q, caller = %v", got.ResourceID, got.Metadata["caller"])
			}
		})
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	op := id.NewOperationID()

	t.Run("enabled", func(t *testing.T) {
		s := &sink{}
		ext := newExtension(s, audithook.WithEnabledActions(audithook.ActionClaim))
		_ = ext.OnDeposit(ctx, event.Deposit(op, admin, types.NewAmount(1)))
		_ = ext.OnClaim(ctx, event.Claim(op, alice, types.NewAmount(1)))
		if len(s.events) != 1 || s.events[0].Action != audithook.ActionClaim {
			t.Errorf("events = %+v", s.events)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		s := &sink{}
		ext := newExtension(s, audithook.WithDisabledActions(audithook.ActionBalanceChanged))
		_ = ext.OnBeneficiaryBalanceChanged(ctx, event.BalanceChanged(op, alice, types.Zero, types.NewAmount(1)))
		_ = ext.OnDeposit(ctx, event.Deposit(op, admin, types.NewAmount(1)))
		if len(s.events) != 1 || s.events[0].Action != audithook.ActionDeposit {
			t.Errorf("events = %+v", s.events)
		}
	})
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	s := &sink{err: errors.New("backend down")}
	ext := newExtension(s)
	err := ext.OnClaim(context.Background(), event.Claim(id.NewOperationID(), alice, types.NewAmount(1)))
	if err != nil {
		t.Errorf("hook returned %v, want nil", err)
	}
}

func TestRecorderFunc(t *testing.T) {
	var got string
	r := audithook.RecorderFunc(func(_ context.Context, e *audithook.AuditEvent) error {
		got = e.Action
		return nil
	})
	ext := audithook.New(r)
	_ = ext.OnLockRewards(context.Background(), event.LockRewards(id.NewOperationID(), true))
	if got != audithook.ActionRewardsLocked {
		t.Errorf("action = %q", got)
	}
}
