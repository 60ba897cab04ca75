package entitlement

import "github.com/xraph/distribution/types"

// ListOpts pages through non-zero entitlements ordered by beneficiary.
type ListOpts struct {
	Limit  int
	Offset int
}

// Total sums entitlements.
func Total(list []*Entitlement) types.Amount {
	total := types.Zero
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return total
}
