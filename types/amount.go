// Package types provides common value types used across the distribution ledger.
package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrNegativeAmount is returned when an operation would produce a value below zero.
var ErrNegativeAmount = errors.New("amount: result would be negative")

// ErrInvalidAmount is returned when a string cannot be parsed as an Amount.
var ErrInvalidAmount = errors.New("amount: invalid value")

// Amount is an unsigned token quantity in the token's smallest unit.
// The zero value is a valid zero amount. Amounts are immutable: every
// arithmetic method returns a new value.
//
// Examples:
//   - NewAmount(100000) = 100000 base units
//   - MustParseAmount("1000000000000000000") = 1 TEVA (18 decimals)
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Amount struct {
	v *big.Int
}

// Zero is the zero Amount.
var Zero Amount

// NewAmount creates an Amount from a uint64.
func NewAmount(n uint64) Amount {
	if n == 0 {
		return Zero
	}
	return Amount{v: new(big.Int).SetUint64(n)}
}

// AmountFromBig creates an Amount from a big.Int. The input is copied.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() == 0 {
		return Zero, nil
	}
	if b.Sign() < 0 {
		return Zero, ErrNegativeAmount
	}
	return Amount{v: new(big.Int).Set(b)}, nil
}

// ParseAmount parses a base-10 integer string.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if b.Sign() < 0 {
		return Zero, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}
	return AmountFromBig(b)
}

// MustParseAmount is like ParseAmount but panics on error. Use for constants.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Big returns a copy of the underlying value.
func (a Amount) Big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.v)
}

// Arithmetic operations

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	if other.IsZero() {
		return a
	}
	if a.IsZero() {
		return other
	}
	return Amount{v: new(big.Int).Add(a.v, other.v)}
}

// Sub returns a - other, or ErrNegativeAmount when other exceeds a.
func (a Amount) Sub(other Amount) (Amount, error) {
	if a.LessThan(other) {
		return Zero, ErrNegativeAmount
	}
	if other.IsZero() {
		return a, nil
	}
	r := new(big.Int).Sub(a.v, other.v)
	if r.Sign() == 0 {
		return Zero, nil
	}
	return Amount{v: r}, nil
}

// SaturatingSub returns a - other, clamped at zero.
func (a Amount) SaturatingSub(other Amount) Amount {
	r, err := a.Sub(other)
	if err != nil {
		return Zero
	}
	return r
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.v == nil || a.v.Sign() == 0 }

// Cmp compares a and other and returns -1, 0 or +1.
func (a Amount) Cmp(other Amount) int {
	return a.Big().Cmp(other.Big())
}

// Equal returns true if both amounts hold the same value.
func (a Amount) Equal(other Amount) bool { return a.Cmp(other) == 0 }

// LessThan returns true if a < other.
func (a Amount) LessThan(other Amount) bool { return a.Cmp(other) < 0 }

// GreaterThan returns true if a > other.
func (a Amount) GreaterThan(other Amount) bool { return a.Cmp(other) > 0 }

// Formatting methods

// String returns the base-10 representation in base units.
func (a Amount) String() string {
	if a.v == nil {
		return "0"
	}
	return a.v.String()
}

// FormatUnits renders the amount in whole-token units with the given number
// of decimals, trimming trailing zeros: FormatUnits(18) of 1.5e18 is "1.5".
func (a Amount) FormatUnits(decimals int) string {
	s := a.String()
	if decimals <= 0 {
		return s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// MarshalText implements encoding.TextMarshaler. JSON encodes amounts as
// strings so values above 2^53 survive JavaScript clients.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Amounts are stored as decimal text.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return ErrNegativeAmount
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("amount: cannot scan %T into Amount", src)
	}
}

// Sum adds all values.
func Sum(values ...Amount) Amount {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
