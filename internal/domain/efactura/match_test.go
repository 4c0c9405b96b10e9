package efactura_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bct-trans/efactura-api/internal/domain/efactura"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

func expense(number, vat string, amount string) *entity.NationalExpense {
	return &entity.NationalExpense{
		Number:   number,
		Amount:   decimal.RequireFromString(amount),
		Supplier: &entity.Company{VATNumber: vat},
	}
}

// TestMatchExpense_SpecScenario: inbound invoice "0099" / 500.00 /
// RO12345678 must reconcile against local expense "XX99" with the same
// amount and supplier.
func TestMatchExpense_SpecScenario(t *testing.T) {
	candidates := []*entity.NationalExpense{
		expense("XX98", "RO12345678", "500.00"),
		expense("XX99", "RO12345678", "500.00"),
	}
	got := efactura.MatchExpense("0099", "RO12345678", decimal.RequireFromString("500.00"), candidates)
	require.NotNil(t, got)
	assert.Equal(t, "XX99", got.Number)
}

func TestMatchExpense_AllCriteriaRequired(t *testing.T) {
	amount := decimal.RequireFromString("500.00")

	// trailing digits differ
	assert.Nil(t, efactura.MatchExpense("0098", "RO12345678", amount,
		[]*entity.NationalExpense{expense("XX99", "RO12345678", "500.00")}))

	// amount differs by a cent
	assert.Nil(t, efactura.MatchExpense("0099", "RO12345678", amount,
		[]*entity.NationalExpense{expense("XX99", "RO12345678", "500.01")}))

	// supplier VAT unrelated
	assert.Nil(t, efactura.MatchExpense("0099", "RO12345678", amount,
		[]*entity.NationalExpense{expense("XX99", "RO99999999", "500.00")}))
}

// VAT comparison is a digit-substring match in either direction, so the
// country prefix and local formatting do not break reconciliation.
func TestMatchExpense_VATPrefixInsensitive(t *testing.T) {
	amount := decimal.RequireFromString("123.45")
	got := efactura.MatchExpense("FF07", "RO12345678", amount,
		[]*entity.NationalExpense{expense("07", "12345678", "123.45")})
	require.NotNil(t, got)

	got = efactura.MatchExpense("FF07", "12345678", amount,
		[]*entity.NationalExpense{expense("07", "RO12345678", "123.45")})
	require.NotNil(t, got)
}

func TestMatchExpense_EdgeInputs(t *testing.T) {
	amount := decimal.RequireFromString("10.00")

	// fewer than two digits in the inbound number: no match possible
	assert.Nil(t, efactura.MatchExpense("7", "RO12345678", amount,
		[]*entity.NationalExpense{expense("07", "RO12345678", "10.00")}))

	// candidate without a loaded supplier is skipped, not a panic
	assert.Nil(t, efactura.MatchExpense("0007", "RO12345678", amount,
		[]*entity.NationalExpense{{Number: "07", Amount: amount}}))

	assert.Nil(t, efactura.MatchExpense("0007", "RO12345678", amount, nil))
}

// First match wins when the heuristic is ambiguous; pinned so a future
// "improvement" does not silently change which expense gets reconciled.
func TestMatchExpense_FirstMatchWins(t *testing.T) {
	amount := decimal.RequireFromString("99.99")
	a := expense("A99", "RO12345678", "99.99")
	b := expense("B99", "RO12345678", "99.99")
	got := efactura.MatchExpense("1299", "RO12345678", amount,
		[]*entity.NationalExpense{a, b})
	require.NotNil(t, got)
	assert.Same(t, a, got)
}
