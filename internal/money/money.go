package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// Hundred converts a percentage into a rate.
var Hundred = decimal.NewFromInt(100)

const (
	AmountPlaces     = 2
	PercentagePlaces = 4
)

// Parse reads a signed amount with at most AmountPlaces fractional digits.
func Parse(input string) (decimal.Decimal, error) {
	return parse(input, AmountPlaces)
}

// ParsePercentage reads a signed percentage with at most PercentagePlaces fractional digits.
func ParsePercentage(input string) (decimal.Decimal, error) {
	return parse(input, PercentagePlaces)
}

func parse(input string, places int32) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	unsigned := strings.TrimLeft(trimmed, "+-")
	if len(trimmed)-len(unsigned) > 1 || !isNumeric(unsigned) {
		return decimal.Zero, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if value.Exponent() < -places {
		return decimal.Zero, ErrTooManyDecimals
	}
	return value, nil
}

// Rate turns a percentage such as 15 into the multiplier 0.15.
func Rate(percentage decimal.Decimal) decimal.Decimal {
	return percentage.Div(Hundred)
}

// Format renders an amount with two decimals, keeping any extra precision tax arithmetic produced.
func Format(value decimal.Decimal) string {
	if value.Exponent() >= -AmountPlaces {
		return value.StringFixed(AmountPlaces)
	}
	return value.String()
}

// Sum adds up the given amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, value := range values {
		total = total.Add(value)
	}
	return total
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	dots := 0
	digits := 0
	for _, r := range value {
		switch {
		case r == '.':
			dots++
		case r >= '0' && r <= '9':
			digits++
		default:
			return false
		}
	}
	return dots <= 1 && digits > 0
}
