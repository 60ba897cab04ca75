// Package audithook bridges distribution ledger events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                      = (*Extension)(nil)
	_ plugin.OnBeneficiaryBalanceChanged = (*Extension)(nil)
	_ plugin.OnLockRewards               = (*Extension)(nil)
	_ plugin.OnDeposit                   = (*Extension)(nil)
	_ plugin.OnEmergencyWithdraw         = (*Extension)(nil)
	_ plugin.OnClaim                     = (*Extension)(nil)
	_ plugin.OnOperationFailed           = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnBeneficiaryBalanceChanged implements plugin.OnBeneficiaryBalanceChanged.
func (e *Extension) OnBeneficiaryBalanceChanged(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionBalanceChanged, SeverityInfo, OutcomeSuccess,
		ResourceEntitlement, evt.Account.Hex(), CategoryBookkeeping, nil,
		"event_id", evt.ID.String(),
		"operation_id", evt.OperationID.String(),
		"balance_before", evt.BalanceBefore.String(),
		"balance_after", evt.BalanceAfter.String(),
	)
}

// OnLockRewards implements plugin.OnLockRewards.
func (e *Extension) OnLockRewards(ctx context.Context, evt *event.Event) error {
	action := ActionRewardsUnlock
	severity := SeverityInfo
	if evt.Locked {
		action = ActionRewardsLocked
		severity = SeverityWarning
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceSettings, "", CategoryAdmin, nil,
		"event_id", evt.ID.String(),
		"operation_id", evt.OperationID.String(),
		"locked", evt.Locked,
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnDeposit implements plugin.OnDeposit.
func (e *Extension) OnDeposit(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionDeposit, SeverityInfo, OutcomeSuccess,
		ResourceReserve, evt.Account.Hex(), CategorySettlement, nil,
		"event_id", evt.ID.String(),
		"amount", evt.Amount.String(),
	)
}

// OnEmergencyWithdraw implements plugin.OnEmergencyWithdraw.
func (e *Extension) OnEmergencyWithdraw(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionEmergencyWithdraw, SeverityCritical, OutcomeSuccess,
		ResourceReserve, evt.Account.Hex(), CategorySettlement, nil,
		"event_id", evt.ID.String(),
		"amount", evt.Amount.String(),
	)
}

// OnClaim implements plugin.OnClaim.
func (e *Extension) OnClaim(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionClaim, SeverityInfo, OutcomeSuccess,
		ResourceEntitlement, evt.Account.Hex(), CategorySettlement, nil,
		"event_id", evt.ID.String(),
		"amount", evt.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed. Access denials are
// recorded separately from other failures.
func (e *Extension) OnOperationFailed(ctx context.Context, op string, who common.Address, opErr error) error {
	action, severity, category := ActionOperationFailed, SeverityError, CategorySettlement
	switch {
	case distribution.IsAuthorization(opErr):
		action, severity, category = ActionOperationDenied, SeverityWarning, CategoryAccess
	case distribution.IsValidation(opErr):
		severity = SeverityInfo
	}
	return e.record(ctx, action, severity, OutcomeFailure,
		ResourceOperation, op, category, opErr,
		"caller", who.Hex(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
