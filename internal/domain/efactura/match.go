package efactura

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

// MatchExpense links an inbound parsed invoice to a local expense using the
// established heuristic: the trailing two digits of the invoice number must
// close the expense number, the tax-inclusive amounts must be equal to the
// cent, and the supplier VAT numbers must match as digit substrings.
//
// The heuristic is deliberately kept exactly as the business uses it; it is
// known to be fragile (two-digit collisions are possible) and must not be
// tightened without confirming the intended semantics with accounting.
// Returns the first candidate that matches, or nil.
func MatchExpense(number, supplierVAT string, amount decimal.Decimal, candidates []*entity.NationalExpense) *entity.NationalExpense {
	tail := trailingDigits(number, 2)
	if tail == "" {
		return nil
	}
	vat := digitsOnly(supplierVAT)
	for _, e := range candidates {
		if e == nil || e.Supplier == nil {
			continue
		}
		if !strings.HasSuffix(e.Number, tail) {
			continue
		}
		if !e.Amount.Equal(amount) {
			continue
		}
		if !vatMatches(vat, digitsOnly(e.Supplier.VATNumber)) {
			continue
		}
		return e
	}
	return nil
}

// vatMatches treats the VAT comparison as a substring match in either
// direction, so "RO12345678" reconciles with a locally stored "12345678".
func vatMatches(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// trailingDigits returns the last n digits of s, ignoring any non-digit
// suffix characters. Empty when s carries fewer than n digits.
func trailingDigits(s string, n int) string {
	d := digitsOnly(s)
	if len(d) < n {
		return ""
	}
	return d[len(d)-n:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
