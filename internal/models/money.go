package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MinorPerUnit is the fixed-point scale of every balance and amount.
const MinorPerUnit = 100

// Amount is a currency amount in minor units (1 unit = 100 minor).
type Amount int64

// MaxUnits is the largest whole-unit count Units can convert without overflow.
const MaxUnits = math.MaxInt64 / MinorPerUnit

// MaxOpeningBalance bounds balances set at registration, leaving room for
// later credits.
const MaxOpeningBalance = Amount(math.MaxInt64 / 2)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Units converts whole currency units to an Amount. n must be within
// ±MaxUnits.
func Units(n int64) Amount { return Amount(n * MinorPerUnit) }

// Decimal returns the amount in currency units.
func (a Amount) Decimal() decimal.Decimal { return decimal.New(int64(a), -2) }

func (a Amount) String() string { return a.Decimal().String() }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	minor := d.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return fmt.Errorf("amount %s has more than 2 decimal places", d)
	}
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return fmt.Errorf("amount %s out of range", d)
	}
	*a = Amount(minor.IntPart())
	return nil
}
