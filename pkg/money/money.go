// Package money provides rouble amounts in integer kopecks on top of go-money.
// Bill amounts are parsed into shopspring decimals; this package converts
// them to minor units for storage and formats them the Russian way.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// RUB is the only currency EPD bills are issued in.
const RUB = "RUB"

const fraction = 2

// ErrCurrencyMismatch is returned when combining amounts in different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// 1 243,09 ₽
var rubFormatter = money.NewFormatter(fraction, ",", " ", "₽", "1 $")

// Money is a monetary value in minor units.
type Money struct {
	m *money.Money
}

// New creates Money from kopecks.
func New(minor int64) *Money {
	return &Money{m: money.New(minor, RUB)}
}

// NewFromDecimal creates Money from a decimal amount, rounding half away
// from zero to whole kopecks.
func NewFromDecimal(amount decimal.Decimal) *Money {
	return New(Minor(amount))
}

// Zero returns zero roubles.
func Zero() *Money {
	return New(0)
}

// Minor converts a decimal amount to kopecks.
func Minor(amount decimal.Decimal) int64 {
	return amount.Shift(fraction).Round(0).IntPart()
}

// FromMinor converts kopecks back to a decimal amount with two places.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -fraction)
}

// Amount returns the amount in kopecks.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code.
func (m *Money) Currency() string {
	return RUB
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// IsNegative returns true if the amount is less than zero
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Add adds two amounts.
func (m *Money) Add(other *Money) (*Money, error) {
	if m.IsZero() {
		return other.orZero(), nil
	}
	if other.IsZero() {
		return m, nil
	}
	sum, err := m.m.Add(other.m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCurrencyMismatch, err)
	}
	return &Money{m: sum}, nil
}

// Subtract subtracts other from m.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if other.IsZero() {
		return m.orZero(), nil
	}
	diff, err := m.orZero().m.Subtract(other.m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCurrencyMismatch, err)
	}
	return &Money{m: diff}, nil
}

// Equals returns true if both values are equal
func (m *Money) Equals(other *Money) bool {
	return m.Amount() == other.Amount()
}

// Sum adds up decimal amounts in kopecks, so the result never carries
// fractions of a kopeck.
func Sum(amounts ...decimal.Decimal) *Money {
	var total int64
	for _, a := range amounts {
		total += Minor(a)
	}
	return New(total)
}

// Display formats the amount as "1 243,09 ₽".
func (m *Money) Display() string {
	return rubFormatter.Format(m.Amount())
}

// String returns the amount as a decimal string (e.g., "1243.09")
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(fraction)
}

// ToDecimal converts to decimal.Decimal for precise calculations
func (m *Money) ToDecimal() decimal.Decimal {
	return FromMinor(m.Amount())
}

func (m *Money) orZero() *Money {
	if m == nil || m.m == nil {
		return Zero()
	}
	return m
}

// MarshalJSON encodes the amount as a decimal string.
func (m *Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	*m = *NewFromDecimal(d)
	return nil
}

// Scan reads a BIGINT kopeck column.
func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = *Zero()
	case int64:
		*m = *New(v)
	case int32:
		*m = *New(int64(v))
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	return nil
}

// Value writes the amount as kopecks.
func (m *Money) Value() (driver.Value, error) {
	return m.Amount(), nil
}
