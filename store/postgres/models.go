package postgres

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"

	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/id"
	"github.com/xraph/distribution/types"
)

// ==================== Settings model ====================

// settingsID is the key of the single settings row.
const settingsID = 1

type settingsModel struct {
	grove.BaseModel `grove:"table:distribution_settings"`

	ID            int       `grove:"id,pk"`
	Administrator string    `grove:"administrator"`
	Locked        bool      `grove:"locked"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

// ==================== Entitlement model ====================

type entitlementModel struct {
	grove.BaseModel `grove:"table:distribution_entitlements"`

	Beneficiary string    `grove:"beneficiary,pk"`
	Amount      string    `grove:"amount"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func fromEntitlementModel(m *entitlementModel) (*entitlement.Entitlement, error) {
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &entitlement.Entitlement{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Beneficiary: common.HexToAddress(m.Beneficiary),
		Amount:      amount,
	}, nil
}

// ==================== Event model ====================

type eventModel struct {
	grove.BaseModel `grove:"table:distribution_events"`

	Seq           int64     `grove:"seq,autoincrement"`
	ID            string    `grove:"id,pk"`
	Kind          string    `grove:"kind"`
	OperationID   string    `grove:"operation_id"`
	Account       string    `grove:"account"`
	BalanceBefore string    `grove:"balance_before"`
	BalanceAfter  string    `grove:"balance_after"`
	Amount        string    `grove:"amount"`
	Locked        bool      `grove:"locked"`
	CreatedAt     time.Time `grove:"created_at"`
}

func toEventModel(e *event.Event) *eventModel {
	return &eventModel{
		ID:            e.ID.String(),
		Kind:          string(e.Kind),
		OperationID:   e.OperationID.String(),
		Account:       addressKey(e.Account),
		BalanceBefore: e.BalanceBefore.String(),
		BalanceAfter:  e.BalanceAfter.String(),
		Amount:        e.Amount.String(),
		Locked:        e.Locked,
		CreatedAt:     e.CreatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	var opID id.OperationID
	if m.OperationID != "" {
		if opID, err = id.ParseOperationID(m.OperationID); err != nil {
			return nil, err
		}
	}
	before, err := types.ParseAmount(m.BalanceBefore)
	if err != nil {
		return nil, err
	}
	after, err := types.ParseAmount(m.BalanceAfter)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}

	return &event.Event{
		ID:            eventID,
		Kind:          event.Kind(m.Kind),
		OperationID:   opID,
		Account:       common.HexToAddress(m.Account),
		BalanceBefore: before,
		BalanceAfter:  after,
		Amount:        amount,
		Locked:        m.Locked,
		CreatedAt:     m.CreatedAt,
	}, nil
}

// addressKey is the stored form of an address. Lower-case hex sorts in
// byte order.
func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}
