// Package allocation reads reward allocation files and applies them to a
// ledger as one atomic AddBeneficiaries call.
//
// An allocation file is YAML:
//
//	decimals: 18          # optional; amounts are whole-token decimals
//	allocations:
//	  - beneficiary: "0x5B38Da6a701c568545dCfcB03FcB875f56beddC4"
//	    amount: "1.5"
//	  - beneficiary: "0xAb8483F64d9C6d1EcF9b849Ae677dD3315835cb2"
//	    amount: "20"
//
// Without decimals the amounts are base units and must be integers.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/xraph/distribution/types"
)

// ErrInvalidEntry reports a malformed allocation line.
var ErrInvalidEntry = errors.New("allocation: invalid entry")

// MaxDecimals bounds the decimals field.
const MaxDecimals = 36

// Entry is one line of an allocation file.
type Entry struct {
	Beneficiary string `yaml:"beneficiary"`
	Amount      string `yaml:"amount"`
}

// File is the on-disk allocation format.
type File struct {
	Decimals    int     `yaml:"decimals"`
	Allocations []Entry `yaml:"allocations"`
}

// Plan is a parsed allocation ready for AddBeneficiaries. The two slices
// have equal length and keep file order.
type Plan struct {
	Beneficiaries []common.Address
	Amounts       []types.Amount
}

// Distributor is the ledger operation a Plan is applied through.
type Distributor interface {
	AddBeneficiaries(ctx context.Context, beneficiaries []common.Address, amounts []types.Amount) error
}

// Load reads and parses the allocation file at path.
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("allocation: open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes an allocation file. Unknown fields are rejected. The
// ledger still validates zero addresses and zero amounts; Parse only
// rejects what cannot be represented.
func Parse(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &Plan{}, nil
		}
		return nil, fmt.Errorf("allocation: decode: %w", err)
	}
	if file.Decimals < 0 || file.Decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d out of range", ErrInvalidEntry, file.Decimals)
	}

	plan := &Plan{
		Beneficiaries: make([]common.Address, len(file.Allocations)),
		Amounts:       make([]types.Amount, len(file.Allocations)),
	}
	for i, e := range file.Allocations {
		if !common.IsHexAddress(e.Beneficiary) {
			return nil, fmt.Errorf("%w: allocations[%d]: beneficiary %q is not an address", ErrInvalidEntry, i, e.Beneficiary)
		}
		amount, err := ParseUnits(e.Amount, file.Decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: allocations[%d]: %v", ErrInvalidEntry, i, err)
		}
		plan.Beneficiaries[i] = common.HexToAddress(e.Beneficiary)
		plan.Amounts[i] = amount
	}
	return plan, nil
}

// Len returns the number of entries.
func (p *Plan) Len() int { return len(p.Beneficiaries) }

// Total returns the sum of all amounts.
func (p *Plan) Total() types.Amount {
	return types.Sum(p.Amounts...)
}

// Apply credits every entry through d in one call.
func (p *Plan) Apply(ctx context.Context, d Distributor) error {
	return d.AddBeneficiaries(ctx, p.Beneficiaries, p.Amounts)
}

// ParseUnits converts a decimal string with at most decimals fractional
// digits to base units.
func ParseUnits(s string, decimals int) (types.Amount, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && decimals == 0 {
		return types.Zero, fmt.Errorf("amount %q has a fraction but decimals is 0", s)
	}
	if len(frac) > decimals {
		return types.Zero, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	if strings.ContainsAny(digits, "+-") {
		return types.Zero, fmt.Errorf("amount %q must be unsigned", s)
	}

	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return types.Zero, fmt.Errorf("amount %q is not a number", s)
	}
	return types.AmountFromBig(n)
}
