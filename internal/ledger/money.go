package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MinorExponent is the number of decimal places kept for every amount.
// Balances are stored as integer minor units.
const MinorExponent = 2

// MaxAmount bounds every amount and balance. It leaves headroom below
// the int64 range of minor units so sums of a few bounded amounts stay
// representable.
var MaxAmount = decimal.New(1, 15)

// ToMinor converts an amount to integer minor units. Callers must have
// validated the amount with CheckAmount first.
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(MinorExponent).IntPart()
}

// FromMinor converts stored minor units back to a decimal amount.
func FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -MinorExponent)
}

// ParseAmount parses plain decimal notation such as "1500" or "+10.50".
// Locale formats like "1.500,00" are rejected. Empty input is zero.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, Validation(field, "invalid amount %q", s)
	}
	if err := CheckAmount(field, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckAmount rejects amounts with more precision than minor units and
// amounts whose magnitude reaches MaxAmount.
func CheckAmount(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MinorExponent)) {
		return Validation(field, "amount %s has more than %d decimal places", d.String(), MinorExponent)
	}
	if d.Abs().GreaterThanOrEqual(MaxAmount) {
		return Validation(field, "amount %s exceeds the maximum of %s", d.String(), MaxAmount.String())
	}
	return nil
}

// MinorUnits is ToMinor for values that were not validated upstream,
// such as computed balances and totals.
func MinorUnits(field string, d decimal.Decimal) (int64, error) {
	if err := CheckAmount(field, d); err != nil {
		return 0, err
	}
	if !d.Shift(MinorExponent).BigInt().IsInt64() {
		return 0, Validation(field, "amount %s is out of range", d.String())
	}
	return ToMinor(d), nil
}

// CheckPositive requires a strictly positive amount with valid scale.
func CheckPositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return Validation(field, "amount must be greater than zero")
	}
	return CheckAmount(field, d)
}

// CheckNonNegative requires a zero or positive amount with valid scale.
func CheckNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return Validation(field, "amount must not be negative")
	}
	return CheckAmount(field, d)
}

// FormatAmount renders an amount with two decimals, e.g. "150000.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MinorExponent)
}
