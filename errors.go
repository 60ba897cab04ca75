package distribution

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// Access errors
	ErrUnauthorized         = errors.New("distribution: unauthorized")
	ErrInvalidConfiguration = errors.New("distribution: invalid configuration")

	// Validation errors
	ErrInvalidBeneficiary = errors.New("distribution: invalid beneficiary")
	ErrInvalidAmount      = errors.New("distribution: invalid amount")
	ErrLengthMismatch     = errors.New("distribution: beneficiaries and amounts differ in length")

	// Settlement errors
	ErrInsufficientEntitlement = errors.New("distribution: insufficient entitlement")
	ErrInsufficientReserve     = errors.New("distribution: insufficient reserve")
	ErrNothingToClaim          = errors.New("distribution: nothing to claim")
	ErrRewardsLocked           = errors.New("distribution: rewards are locked")

	// Store errors
	ErrConflict    = errors.New("distribution: concurrent modification")
	ErrStoreClosed = errors.New("distribution: store is closed")

	// ErrEventNotRecorded means the token transfer completed but its event
	// could not be written. The operation took effect.
	ErrEventNotRecorded = errors.New("distribution: transfer completed but event not recorded")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("distribution: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel the failure maps to.
func (e ValidationError) Unwrap() error { return e.Err }

// BatchError reports the first invalid pair of an AddBeneficiaries call.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("distribution: batch entry %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// IsAuthorization returns true if the caller was not allowed to act.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation returns true if the error is caused by bad arguments.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidBeneficiary) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrLengthMismatch)
}

// IsSettlement returns true if the ledger state rejected the operation.
func IsSettlement(err error) bool {
	return errors.Is(err, ErrInsufficientEntitlement) ||
		errors.Is(err, ErrInsufficientReserve) ||
		errors.Is(err, ErrNothingToClaim) ||
		errors.Is(err, ErrRewardsLocked)
}

// IsSettled returns true if the transfer behind err went through and only
// the bookkeeping that follows it failed. Callers must not retry.
func IsSettled(err error) bool {
	return errors.Is(err, ErrEventNotRecorded)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
