package audithook

// Action constants for audit events.
const (
	// Entitlement actions
	ActionBalanceChanged = "entitlement.balance_changed"
	ActionRewardsLocked  = "rewards.locked"
	ActionRewardsUnlock  = "rewards.unlocked"

	// Settlement actions
	ActionDeposit           = "reserve.deposit"
	ActionEmergencyWithdraw = "reserve.emergency_withdraw"
	ActionClaim             = "entitlement.claimed"

	// Failures
	ActionOperationDenied = "operation.denied"
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceEntitlement = "entitlement"
	ResourceReserve     = "reserve"
	ResourceSettings    = "settings"
	ResourceOperation   = "operation"
)

// Category constants for audit events.
const (
	CategoryBookkeeping = "bookkeeping"
	CategorySettlement  = "settlement"
	CategoryAccess      = "access"
	CategoryAdmin       = "admin"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
