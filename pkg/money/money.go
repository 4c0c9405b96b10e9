// Package money centralizes monetary arithmetic and formatting for the
// invoicing paths. All math runs on shopspring decimals; floats never touch
// an amount except at the display boundary.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Precision is the number of significant digits kept by the arithmetic
// helpers, matching the precision used across the invoicing module.
const Precision = 8

// RoundSig rounds d to sig significant digits, half away from zero.
func RoundSig(d decimal.Decimal, sig int32) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	// Digits before the decimal point: coefficient length plus exponent.
	intDigits := int32(d.NumDigits()) + d.Exponent()
	return d.Round(sig - intDigits)
}

// Add returns a+b at Precision significant digits.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return RoundSig(a.Add(b), Precision)
}

// Mul returns a*b at Precision significant digits.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return RoundSig(a.Mul(b), Precision)
}

// Div returns a/b at Precision significant digits.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return RoundSig(a.DivRound(b, 2*Precision), Precision)
}

// FormatAmount renders d as a fixed two-decimal string with no grouping.
// This is the wire format required in every monetary field of the UBL
// document; it must stay locale-independent.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

var roPrinter = message.NewPrinter(language.Romanian)

// FormatDisplay renders d with Romanian grouping and two decimals, followed
// by the currency code. Display only; never feed the result back into math.
func FormatDisplay(d decimal.Decimal, currency string) string {
	f, _ := d.Round(2).Float64()
	return roPrinter.Sprintf("%v %s",
		number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)),
		currency)
}
