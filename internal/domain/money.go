package domain

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Amounts are plain decimals: up to 15 integer digits and 8 fractional
// digits, no sign and no exponent. This keeps every product of two
// amounts small enough to compare and render cheaply.
var amountPattern = regexp.MustCompile(`^\d{1,15}(\.\d{1,8})?$`)

// ParsePositive parses s as a decimal amount and requires it to be
// strictly greater than zero. Failures are reported as *ValidationError
// naming field.
func ParsePositive(field, s string) (decimal.Decimal, error) {
	if !amountPattern.MatchString(s) {
		return decimal.Zero, &ValidationError{
			Message: fmt.Sprintf("%s must be a plain decimal with at most 15 integer and 8 fractional digits, got %q", field, s),
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{
			Message: fmt.Sprintf("%s must be a number, got %q", field, s),
		}
	}
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{
			Message: fmt.Sprintf("%s must be > 0", field),
		}
	}
	return d, nil
}

// FormatAmount renders a cash or quantity value with two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
