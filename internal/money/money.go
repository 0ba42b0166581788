package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in paise (minor units). Keeping money integral
// avoids the rounding drift that floating-point rupee values accumulate when
// line subtotals are summed repeatedly.
type Amount int64

// FromDecimal converts a rupee value to paise, rounding to the nearest paisa.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// Parse accepts a rupee string such as "250.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Decimal returns the rupee value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) Mul(qty int) Amount {
	return a * Amount(qty)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a plain JSON number with two decimals,
// e.g. 250.50, matching what clients already send and receive.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts both 250.5 and "250.50".
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
