package event

import "github.com/ethereum/go-ethereum/common"

// ListOpts filters the event log. Results are in recording order.
type ListOpts struct {
	Kind    Kind
	Account common.Address
	Limit   int
	Offset  int
}

// Matches reports whether e passes the Kind and Account filters.
func (o ListOpts) Matches(e *Event) bool {
	if o.Kind != "" && e.Kind != o.Kind {
		return false
	}
	if o.Account != (common.Address{}) && e.Account != o.Account {
		return false
	}
	return true
}
