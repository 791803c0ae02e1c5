// Package money converts between integer minor units and decimal amounts.
// Cents are authoritative everywhere; decimals are for input parsing and display.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")

	MinFeePercent = decimal.NewFromInt(1)
	MaxFeePercent = decimal.NewFromInt(30)

	hundred = decimal.NewFromInt(100)
)

// ClampFeePercent bounds pct to [MinFeePercent, MaxFeePercent]. Fractional
// percents such as 12.5 are kept as is.
func ClampFeePercent(pct decimal.Decimal) decimal.Decimal {
	if pct.LessThan(MinFeePercent) {
		return MinFeePercent
	}
	if pct.GreaterThan(MaxFeePercent) {
		return MaxFeePercent
	}
	return pct
}

// ApplicationFee returns round(priceCents * pct / 100) with half-up rounding.
func ApplicationFee(priceCents int64, pct decimal.Decimal) int64 {
	fee := decimal.NewFromInt(priceCents).
		Mul(ClampFeePercent(pct)).
		Div(hundred).
		Round(0)
	return fee.IntPart()
}

// Display renders cents as a major-unit float rounded to 2 decimals.
func Display(cents int64) float64 {
	f, _ := decimal.NewFromInt(cents).Div(hundred).Round(2).Float64()
	return f
}

// ParseMajor converts a major-unit amount ("12.5", "12,50") to cents.
func ParseMajor(raw string) (int64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if normalized == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// FromMajorFloat converts a JSON number in major units to cents.
func FromMajorFloat(v float64) (int64, error) {
	cents := decimal.NewFromFloat(v).Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}
