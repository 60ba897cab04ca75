// Package entitlement defines per-beneficiary reward entitlements.
package entitlement

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/types"
)

// Entitlement is the amount a beneficiary is owed but has not yet claimed.
// A beneficiary with a zero amount is indistinguishable from one that was
// never added.
type Entitlement struct {
	types.Entity
	Beneficiary common.Address `json:"beneficiary"`
	Amount      types.Amount   `json:"amount"`
}

// Change is a single intended entitlement write. Before is the value the
// writer observed; stores reject the change when the current value differs.
type Change struct {
	Beneficiary common.Address `json:"beneficiary"`
	Before      types.Amount   `json:"before"`
	After       types.Amount   `json:"after"`
}

// Delta returns how far the change moves the entitlement and whether it is
// an increase.
func (c Change) Delta() (types.Amount, bool) {
	if c.After.LessThan(c.Before) {
		d, _ := c.Before.Sub(c.After) //nolint:errcheck // After < Before
		return d, false
	}
	d, _ := c.After.Sub(c.Before) //nolint:errcheck // After >= Before
	return d, true
}
